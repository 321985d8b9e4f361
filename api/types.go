package api

import (
	"context"
	"encoding/json"

	"github.com/ruteri/identity-gateway/interfaces"
)

const (
	UserAPIPrefix = "/api/v1/user"
	AppDBPrefix   = "/api/v1/plugins/app-db"

	PathValidateToken = "/validate-token"
	PathLogin         = "/login"
	PathRegister      = "/register"
	PathUnregister    = "/unregister"
	PathGdpr          = "/gdpr"
	PathListFiles     = "/list-files"
	PathTables        = "/tables"

	// AuthKeyParam is the query parameter carrying the app db shared secret.
	AuthKeyParam = "authKey"

	// GlobalParam selects the global file index on list-files.
	GlobalParam = "global"

	// StatusTableMutated acknowledges app db mutations.
	StatusTableMutated = 203
)

// CreateTableRequest is the body of POST /tables.
type CreateTableRequest struct {
	Name string `json:"name"`
}

// UserProvider is the user API as seen by a client holding signing keys.
type UserProvider interface {
	ValidateToken(ctx context.Context) error
	Login(ctx context.Context) error
	Register(ctx context.Context) error
	Unregister(ctx context.Context) error
	Gdpr(ctx context.Context) (*interfaces.User, error)
	ListFiles(ctx context.Context, global bool) (interfaces.FileIndex, error)
}

// TableProvider is the app db API as seen by a client holding the shared secret.
type TableProvider interface {
	ListTables(ctx context.Context) ([]string, error)
	CreateTable(ctx context.Context, name string) error
	DropTable(ctx context.Context, name string) error
	ListRows(ctx context.Context, table string) ([]interfaces.Row, error)
	GetRow(ctx context.Context, table, key string) (json.RawMessage, error)
	PutRow(ctx context.Context, table, key string, value json.RawMessage) error
	DeleteRow(ctx context.Context, table, key string) error
}
