package registry

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/identity-gateway/database"
	"github.com/ruteri/identity-gateway/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indexedRegistry interface {
	interfaces.UserRegistry
	interfaces.FileIndexer
}

func registries(t *testing.T) map[string]indexedRegistry {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	lite, err := database.Open(ctx, database.DialectSQLite, filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })

	regs := map[string]indexedRegistry{
		"memory": NewMemoryRegistry(),
		"sqlite": NewSQLRegistry(lite, logger),
	}

	if dsn := os.Getenv("GATEWAY_TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := database.Open(ctx, database.DialectPostgres, dsn)
		require.NoError(t, err)
		_, err = pg.ExecContext(ctx, "DELETE FROM users")
		require.NoError(t, err)
		_, err = pg.ExecContext(ctx, "DELETE FROM file_index")
		require.NoError(t, err)
		t.Cleanup(func() { pg.Close() })
		regs["postgres"] = NewSQLRegistry(pg, logger)
	}

	return regs
}

func TestRegistry_Lifecycle(t *testing.T) {
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := reg.GetUser(ctx, "0xA")
			assert.ErrorIs(t, err, interfaces.ErrUserNotFound)

			user, err := reg.RegisterUser(ctx, "0xA", "0xI")
			require.NoError(t, err)
			assert.Equal(t, "0xA", user.Address)
			assert.Equal(t, "0xI", user.InternalBucketAddress)
			assert.Empty(t, user.Connections)

			_, err = reg.RegisterUser(ctx, "0xA", "")
			assert.ErrorIs(t, err, interfaces.ErrUserExists)

			user.Connections["c1"] = &interfaces.Connection{
				Driver:  "disk",
				Name:    "Disk",
				Config:  json.RawMessage(`{"path":"/data/0xA"}`),
				Buckets: []string{"0xA"},
			}
			user.Connections["c2"] = &interfaces.Connection{
				Driver:  "s3",
				Name:    "S3",
				Buckets: []string{"0xA"},
			}
			user.DefaultConnection = "c1"
			require.NoError(t, reg.UpdateUser(ctx, user))

			stored, err := reg.GetUser(ctx, "0xA")
			require.NoError(t, err)
			assert.Equal(t, user, stored)
			assert.Nil(t, stored.Connections["c2"].Config)
			assert.JSONEq(t, `{"path":"/data/0xA"}`, string(stored.Connections["c1"].Config))

			// returned records are copies
			stored.Connections["c1"].Name = "mutated"
			again, err := reg.GetUser(ctx, "0xA")
			require.NoError(t, err)
			assert.Equal(t, "Disk", again.Connections["c1"].Name)

			require.NoError(t, reg.DeleteUser(ctx, "0xA"))
			_, err = reg.GetUser(ctx, "0xA")
			assert.ErrorIs(t, err, interfaces.ErrUserNotFound)

			assert.ErrorIs(t, reg.DeleteUser(ctx, "0xA"), interfaces.ErrUserNotFound)
			assert.ErrorIs(t, reg.UpdateUser(ctx, user), interfaces.ErrUserNotFound)
		})
	}
}

func TestRegistry_Index(t *testing.T) {
	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			user, err := reg.RegisterUser(ctx, "0xB", "0xIssuer")
			require.NoError(t, err)
			user.Connections["c1"] = &interfaces.Connection{Driver: "disk", Buckets: []string{"0xB", "0xShared"}}

			require.NoError(t, reg.IndexFile(ctx, interfaces.IndexEntry{Bucket: "0xB", Path: "b.txt", Size: 2}))
			require.NoError(t, reg.IndexFile(ctx, interfaces.IndexEntry{Bucket: "0xB", Path: "a.txt", Size: 1}))
			require.NoError(t, reg.IndexFile(ctx, interfaces.IndexEntry{Bucket: "0xIssuer", Path: "profile.json"}))
			require.NoError(t, reg.IndexFile(ctx, interfaces.IndexEntry{Bucket: "0xShared", Path: "doc.md"}))
			require.NoError(t, reg.IndexFile(ctx, interfaces.IndexEntry{Bucket: "0xOther", Path: "nope"}))

			// upsert replaces
			require.NoError(t, reg.IndexFile(ctx, interfaces.IndexEntry{Bucket: "0xB", Path: "b.txt", Size: 20}))

			own, err := reg.GetUserIndex(ctx, user)
			require.NoError(t, err)
			require.Len(t, own, 1)
			require.Len(t, own["0xB"], 2)
			assert.Equal(t, "a.txt", own["0xB"][0].Path)
			assert.Equal(t, int64(20), own["0xB"][1].Size)

			global, err := reg.GetGlobalUserIndex(ctx, user)
			require.NoError(t, err)
			assert.Len(t, global, 3)
			assert.Len(t, global["0xIssuer"], 1)
			assert.Len(t, global["0xShared"], 1)
			assert.NotContains(t, global, "0xOther")

			require.NoError(t, reg.UnindexFile(ctx, "0xB", "a.txt"))
			own, err = reg.GetUserIndex(ctx, user)
			require.NoError(t, err)
			assert.Len(t, own["0xB"], 1)
		})
	}
}
