package interfaces

import (
	"context"
	"encoding/json"
)

// Row is one key/value pair of a table.
type Row struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// TableStore manages named key/value tables.
type TableStore interface {
	ListTables(ctx context.Context) ([]string, error)

	// CreateTable is a no-op when the table already exists.
	CreateTable(ctx context.Context, name string) error

	DropTable(ctx context.Context, name string) error

	// ListRows returns ErrTableNotFound for unknown tables.
	ListRows(ctx context.Context, table string) ([]Row, error)

	// GetRow returns ErrRowNotFound when key is absent.
	GetRow(ctx context.Context, table, key string) (json.RawMessage, error)

	// PutRow replaces the whole value stored under key.
	PutRow(ctx context.Context, table, key string, value json.RawMessage) error

	DeleteRow(ctx context.Context, table, key string) error
}
