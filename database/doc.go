// Package database opens the SQL databases backing the user registry and the
// table store, and applies the embedded goose migrations.
//
// Two dialects are supported with the same schema:
//
//   - sqlite, through the pure-Go modernc.org/sqlite driver (default, tests)
//   - postgres, through the pgx stdlib driver
//
// Queries are written with "?" placeholders and rebound per dialect.
package database
