package tables

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ruteri/identity-gateway/cryptoutils"
	"github.com/ruteri/identity-gateway/interfaces"
	"github.com/ruteri/identity-gateway/metrics"
)

// Gate authenticates table operations against a shared secret.
type Gate struct {
	key   *cryptoutils.AppKey
	store interfaces.TableStore
	log   *slog.Logger
}

// NewGate creates a gate for secret. An empty secret rejects every request.
func NewGate(secret string, store interfaces.TableStore, log *slog.Logger) *Gate {
	return &Gate{key: cryptoutils.NewAppKey(secret), store: store, log: log}
}

func (g *Gate) authorize(key string) error {
	if !g.key.Matches(key) {
		metrics.TableAuthRejectedTotal.Inc()
		g.log.Warn("Rejected table request with invalid key")
		return interfaces.NewAuthError("invalid app key", nil)
	}
	return nil
}

func (g *Gate) ListTables(ctx context.Context, key string) ([]string, error) {
	if err := g.authorize(key); err != nil {
		return nil, err
	}
	return g.store.ListTables(ctx)
}

func (g *Gate) CreateTable(ctx context.Context, key, name string) error {
	if err := g.authorize(key); err != nil {
		return err
	}
	if err := validName("table", name); err != nil {
		return err
	}
	return g.store.CreateTable(ctx, name)
}

func (g *Gate) DropTable(ctx context.Context, key, name string) error {
	if err := g.authorize(key); err != nil {
		return err
	}
	return g.store.DropTable(ctx, name)
}

func (g *Gate) ListRows(ctx context.Context, key, table string) ([]interfaces.Row, error) {
	if err := g.authorize(key); err != nil {
		return nil, err
	}
	return g.store.ListRows(ctx, table)
}

func (g *Gate) GetRow(ctx context.Context, key, table, rowKey string) (json.RawMessage, error) {
	if err := g.authorize(key); err != nil {
		return nil, err
	}
	return g.store.GetRow(ctx, table, rowKey)
}

// PutRow replaces the value under rowKey. The value must be a JSON document.
func (g *Gate) PutRow(ctx context.Context, key, table, rowKey string, value json.RawMessage) error {
	if err := g.authorize(key); err != nil {
		return err
	}
	if err := validName("row key", rowKey); err != nil {
		return err
	}
	if !json.Valid(value) {
		return &interfaces.ValidationError{Reason: "row value must be valid JSON"}
	}
	return g.store.PutRow(ctx, table, rowKey, value)
}

func (g *Gate) DeleteRow(ctx context.Context, key, table, rowKey string) error {
	if err := g.authorize(key); err != nil {
		return err
	}
	return g.store.DeleteRow(ctx, table, rowKey)
}

func validName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return &interfaces.ValidationError{Reason: kind + " name is required"}
	}
	if len(name) > 255 {
		return &interfaces.ValidationError{Reason: kind + " name too long"}
	}
	return nil
}
