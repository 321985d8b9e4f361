package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/identity-gateway/database"
	"github.com/ruteri/identity-gateway/interfaces"
)

// SQLRegistry persists user records and the file index in SQL.
type SQLRegistry struct {
	db  *database.DB
	log *slog.Logger
}

// NewSQLRegistry creates a registry on an opened, migrated database.
func NewSQLRegistry(db *database.DB, log *slog.Logger) *SQLRegistry {
	return &SQLRegistry{db: db, log: log}
}

func (r *SQLRegistry) GetUser(ctx context.Context, address string) (*interfaces.User, error) {
	query := r.db.Rebind(
		`SELECT address, internal_bucket_address, default_connection, connections
		 FROM users WHERE address = ?`)

	var (
		user        interfaces.User
		connections string
	)
	err := r.db.QueryRowContext(ctx, query, address).Scan(
		&user.Address, &user.InternalBucketAddress, &user.DefaultConnection, &connections)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal([]byte(connections), &user.Connections); err != nil {
		return nil, fmt.Errorf("decoding connections of %s: %w", address, err)
	}
	if user.Connections == nil {
		user.Connections = map[string]*interfaces.Connection{}
	}
	for _, conn := range user.Connections {
		if conn != nil && string(conn.Config) == "null" {
			conn.Config = nil
		}
	}

	return &user, nil
}

func (r *SQLRegistry) RegisterUser(ctx context.Context, address, bucketAddress string) (*interfaces.User, error) {
	now := time.Now().UnixMilli()
	query := r.db.Rebind(
		`INSERT INTO users (address, internal_bucket_address, default_connection, connections, created_at, updated_at)
		 VALUES (?, ?, '', '{}', ?, ?)
		 ON CONFLICT (address) DO NOTHING`)

	res, err := r.db.ExecContext(ctx, query, address, bucketAddress, now, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return nil, interfaces.ErrUserExists
	}

	r.log.Debug("Registered user", slog.String("user", address))
	return interfaces.NewUser(address, bucketAddress), nil
}

func (r *SQLRegistry) UpdateUser(ctx context.Context, user *interfaces.User) error {
	connections := user.Connections
	if connections == nil {
		connections = map[string]*interfaces.Connection{}
	}
	encoded, err := json.Marshal(connections)
	if err != nil {
		return fmt.Errorf("encoding connections of %s: %w", user.Address, err)
	}

	query := r.db.Rebind(
		`UPDATE users
		 SET internal_bucket_address = ?, default_connection = ?, connections = ?, updated_at = ?
		 WHERE address = ?`)

	res, err := r.db.ExecContext(ctx, query,
		user.InternalBucketAddress, user.DefaultConnection, string(encoded), time.Now().UnixMilli(), user.Address)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return interfaces.ErrUserNotFound
	}
	return nil
}

func (r *SQLRegistry) DeleteUser(ctx context.Context, address string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM users WHERE address = ?`), address)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return interfaces.ErrUserNotFound
	}

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM file_index WHERE bucket = ?`), address); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return tx.Commit()
}

func (r *SQLRegistry) GetUserIndex(ctx context.Context, user *interfaces.User) (interfaces.FileIndex, error) {
	return r.index(ctx, userBuckets(user))
}

func (r *SQLRegistry) GetGlobalUserIndex(ctx context.Context, user *interfaces.User) (interfaces.FileIndex, error) {
	return r.index(ctx, globalBuckets(user))
}

func (r *SQLRegistry) index(ctx context.Context, buckets []string) (interfaces.FileIndex, error) {
	index := interfaces.FileIndex{}
	if len(buckets) == 0 {
		return index, nil
	}

	args := make([]interface{}, len(buckets))
	for i, bucket := range buckets {
		args[i] = bucket
		index[bucket] = []interfaces.IndexEntry{}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(buckets)), ",")

	query := r.db.Rebind(fmt.Sprintf(
		`SELECT bucket, path, connection_id, size, content_type, updated_at
		 FROM file_index WHERE bucket IN (%s)
		 ORDER BY bucket, path`, placeholders))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry   interfaces.IndexEntry
			updated int64
		)
		if err := rows.Scan(&entry.Bucket, &entry.Path, &entry.Connection, &entry.Size, &entry.ContentType, &updated); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		entry.LastModified = time.UnixMilli(updated).UTC()
		index[entry.Bucket] = append(index[entry.Bucket], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return index, nil
}

func (r *SQLRegistry) IndexFile(ctx context.Context, entry interfaces.IndexEntry) error {
	if entry.LastModified.IsZero() {
		entry.LastModified = time.Now().UTC()
	}

	query := r.db.Rebind(
		`INSERT INTO file_index (bucket, path, connection_id, size, content_type, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (bucket, path) DO UPDATE SET
		   connection_id = excluded.connection_id,
		   size = excluded.size,
		   content_type = excluded.content_type,
		   updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query,
		entry.Bucket, entry.Path, entry.Connection, entry.Size, entry.ContentType, entry.LastModified.UnixMilli())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRegistry) UnindexFile(ctx context.Context, bucket, path string) error {
	query := r.db.Rebind(`DELETE FROM file_index WHERE bucket = ? AND path = ?`)
	if _, err := r.db.ExecContext(ctx, query, bucket, path); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
