package registry

import (
	"context"
	"sync"
	"time"

	"github.com/ruteri/identity-gateway/interfaces"
)

// MemoryRegistry is an in-process UserRegistry and FileIndexer.
type MemoryRegistry struct {
	mu    sync.RWMutex
	users map[string]*interfaces.User
	files map[string]map[string]interfaces.IndexEntry // bucket -> path -> entry
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		users: map[string]*interfaces.User{},
		files: map[string]map[string]interfaces.IndexEntry{},
	}
}

func (r *MemoryRegistry) GetUser(ctx context.Context, address string) (*interfaces.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[address]
	if !ok {
		return nil, interfaces.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (r *MemoryRegistry) RegisterUser(ctx context.Context, address, bucketAddress string) (*interfaces.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[address]; ok {
		return nil, interfaces.ErrUserExists
	}
	user := interfaces.NewUser(address, bucketAddress)
	r.users[address] = user
	return user.Clone(), nil
}

func (r *MemoryRegistry) UpdateUser(ctx context.Context, user *interfaces.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Address]; !ok {
		return interfaces.ErrUserNotFound
	}
	r.users[user.Address] = user.Clone()
	return nil
}

func (r *MemoryRegistry) DeleteUser(ctx context.Context, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[address]; !ok {
		return interfaces.ErrUserNotFound
	}
	delete(r.users, address)
	delete(r.files, address)
	return nil
}

func (r *MemoryRegistry) GetUserIndex(ctx context.Context, user *interfaces.User) (interfaces.FileIndex, error) {
	return r.index(userBuckets(user)), nil
}

func (r *MemoryRegistry) GetGlobalUserIndex(ctx context.Context, user *interfaces.User) (interfaces.FileIndex, error) {
	return r.index(globalBuckets(user)), nil
}

func (r *MemoryRegistry) index(buckets []string) interfaces.FileIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index := interfaces.FileIndex{}
	for _, bucket := range buckets {
		entries := make([]interfaces.IndexEntry, 0, len(r.files[bucket]))
		for _, entry := range r.files[bucket] {
			entries = append(entries, entry)
		}
		index[bucket] = entries
	}
	sortIndex(index)
	return index
}

func (r *MemoryRegistry) IndexFile(ctx context.Context, entry interfaces.IndexEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.LastModified.IsZero() {
		entry.LastModified = time.Now().UTC()
	}
	bucket, ok := r.files[entry.Bucket]
	if !ok {
		bucket = map[string]interfaces.IndexEntry{}
		r.files[entry.Bucket] = bucket
	}
	bucket[entry.Path] = entry
	return nil
}

func (r *MemoryRegistry) UnindexFile(ctx context.Context, bucket, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.files[bucket], path)
	return nil
}
