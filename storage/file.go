package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/identity-gateway/interfaces"
)

// FileBackend implements a storage driver using the local file system.
// Each user gets a directory under the base directory.
type FileBackend struct {
	baseDir string
	log     *slog.Logger
}

// FileUserdata is the connection config produced by FileBackend.
type FileUserdata struct {
	Path string `json:"path"`
}

// NewFileBackend creates a new file driver rooted at baseDir, creating it if needed.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir: baseDir,
		log:     log,
	}, nil
}

// Register creates the user's directory.
func (b *FileBackend) Register(ctx context.Context, user interfaces.DriverUserView) (*interfaces.RegisterResult, error) {
	dir, err := b.userDir(user.Address)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create user directory: %w", err)
	}

	b.log.Debug("Created user directory",
		slog.String("user", user.Address),
		slog.String("path", dir))

	return &interfaces.RegisterResult{Userdata: mustUserdata(FileUserdata{Path: dir})}, nil
}

// PostRegisterCheck verifies that the user's directory is writable.
func (b *FileBackend) PostRegisterCheck(ctx context.Context, user interfaces.DriverUserView, userdata json.RawMessage) error {
	var data FileUserdata
	if err := json.Unmarshal(userdata, &data); err != nil {
		return fmt.Errorf("invalid file userdata: %w", err)
	}

	probe, err := os.CreateTemp(data.Path, ".probe-*")
	if err != nil {
		return fmt.Errorf("user directory not writable: %w", err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}

// Unregister removes the user's directory and everything in it.
func (b *FileBackend) Unregister(ctx context.Context, conn interfaces.ConnectionView) error {
	dir, err := b.userDir(conn.UserAddress)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove user directory: %w", err)
	}

	b.log.Debug("Removed user directory",
		slog.String("user", conn.UserAddress),
		slog.String("path", dir))
	return nil
}

// Available reports whether the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

func (b *FileBackend) userDir(address string) (string, error) {
	ns, err := userNamespace(address)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.baseDir, ns), nil
}
