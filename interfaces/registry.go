package interfaces

import "context"

// UserRegistry is durable CRUD over user records keyed by signer address.
// Every operation is treated as atomic by callers; no retries are layered on top.
type UserRegistry interface {
	// GetUser returns ErrUserNotFound when no record exists.
	GetUser(ctx context.Context, address string) (*User, error)

	// RegisterUser creates a record. Returns ErrUserExists if one is present.
	RegisterUser(ctx context.Context, address, bucketAddress string) (*User, error)

	// UpdateUser replaces the stored record with user.
	UpdateUser(ctx context.Context, user *User) error

	// DeleteUser removes the record and its file index.
	DeleteUser(ctx context.Context, address string) error

	// GetUserIndex lists files stored in the user's own bucket.
	GetUserIndex(ctx context.Context, user *User) (FileIndex, error)

	// GetGlobalUserIndex lists files in every bucket the user can reach.
	GetGlobalUserIndex(ctx context.Context, user *User) (FileIndex, error)
}

// FileIndexer is implemented by registries that accept index updates from
// the storage data path.
type FileIndexer interface {
	IndexFile(ctx context.Context, entry IndexEntry) error
	UnindexFile(ctx context.Context, bucket, path string) error
}
