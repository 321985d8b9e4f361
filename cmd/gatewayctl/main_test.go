package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/identity-gateway/database"
	"github.com/ruteri/identity-gateway/interfaces"
	"github.com/ruteri/identity-gateway/registry"
)

const bucket = "0x1111111111111111111111111111111111111111"

func TestIndexCommands(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "gateway.db")

	require.NoError(t, newApp().Run([]string{"gatewayctl", "index", "add",
		"--db-dsn", dsn, "--bucket", bucket, "--path", "notes.txt",
		"--connection", "c1", "--size", "42", "--content-type", "text/plain"}))
	require.NoError(t, newApp().Run([]string{"gatewayctl", "index", "add",
		"--db-dsn", dsn, "--bucket", bucket, "--path", "old.txt"}))
	require.NoError(t, newApp().Run([]string{"gatewayctl", "index", "remove",
		"--db-dsn", dsn, "--bucket", bucket, "--path", "old.txt"}))

	db, err := database.Open(ctx, database.DialectSQLite, dsn)
	require.NoError(t, err)
	defer db.Close()

	reg := registry.NewSQLRegistry(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	index, err := reg.GetUserIndex(ctx, interfaces.NewUser(bucket, ""))
	require.NoError(t, err)

	require.Len(t, index[bucket], 1)
	entry := index[bucket][0]
	assert.Equal(t, "notes.txt", entry.Path)
	assert.Equal(t, "c1", entry.Connection)
	assert.Equal(t, int64(42), entry.Size)
	assert.Equal(t, "text/plain", entry.ContentType)
}

func TestIndexRejectsMemoryStore(t *testing.T) {
	err := newApp().Run([]string{"gatewayctl", "index", "add",
		"--db-driver", "memory", "--bucket", bucket, "--path", "notes.txt"})
	assert.ErrorContains(t, err, "persistent database")
}
