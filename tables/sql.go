package tables

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ruteri/identity-gateway/database"
	"github.com/ruteri/identity-gateway/interfaces"
)

// SQLStore keeps tables in the kv_tables and kv_rows relations.
type SQLStore struct {
	db  *database.DB
	log *slog.Logger
}

func NewSQLStore(db *database.DB, log *slog.Logger) *SQLStore {
	return &SQLStore{db: db, log: log}
}

func (s *SQLStore) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM kv_tables ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLStore) CreateTable(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO kv_tables (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`),
		name, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLStore) DropTable(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM kv_tables WHERE name = ?`), name)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("db error: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", interfaces.ErrTableNotFound, name)
	}

	if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM kv_rows WHERE table_name = ?`), name); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	s.log.Debug("Dropped table", slog.String("table", name))
	return tx.Commit()
}

func (s *SQLStore) ListRows(ctx context.Context, table string) ([]interfaces.Row, error) {
	if err := s.requireTable(ctx, table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(
		`SELECT row_key, value FROM kv_rows WHERE table_name = ? ORDER BY row_key`), table)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []interfaces.Row{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, interfaces.Row{Key: key, Value: json.RawMessage(value)})
	}
	return out, rows.Err()
}

func (s *SQLStore) GetRow(ctx context.Context, table, key string) (json.RawMessage, error) {
	if err := s.requireTable(ctx, table); err != nil {
		return nil, err
	}

	var value string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT value FROM kv_rows WHERE table_name = ? AND row_key = ?`), table, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", interfaces.ErrRowNotFound, table, key)
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return json.RawMessage(value), nil
}

func (s *SQLStore) PutRow(ctx context.Context, table, key string, value json.RawMessage) error {
	if err := s.requireTable(ctx, table); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO kv_rows (table_name, row_key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (table_name, row_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		table, key, string(value), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLStore) DeleteRow(ctx context.Context, table, key string) error {
	if err := s.requireTable(ctx, table); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM kv_rows WHERE table_name = ? AND row_key = ?`), table, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLStore) requireTable(ctx context.Context, table string) error {
	var one int
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT 1 FROM kv_tables WHERE name = ?`), table).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", interfaces.ErrTableNotFound, table)
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
