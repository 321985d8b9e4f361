package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/identity-gateway/interfaces"
)

// ipfsFiles is the subset of the IPFS MFS API the driver uses.
type ipfsFiles interface {
	IsUp() bool
	FilesMkdir(ctx context.Context, path string, options ...shell.FilesOpt) error
	FilesStat(ctx context.Context, path string, options ...shell.FilesOpt) (*shell.FilesStatObject, error)
	FilesRm(ctx context.Context, path string, force bool) error
}

// IPFSBackend implements a storage driver on the IPFS mutable file system.
// Each user gets a directory under the configured MFS root.
type IPFSBackend struct {
	shell ipfsFiles
	host  string
	port  string
	root  string
	log   *slog.Logger
}

// IPFSUserdata is the connection config produced by IPFSBackend.
type IPFSUserdata struct {
	Path string `json:"path"`
	CID  string `json:"cid,omitempty"`
}

// NewIPFSBackend creates a new IPFS storage driver connected to the specified host and port.
func NewIPFSBackend(host, port, root string, log *slog.Logger) *IPFSBackend {
	return newIPFSBackend(shell.NewShell(fmt.Sprintf("%s:%s", host, port)), host, port, root, log)
}

func newIPFSBackend(sh ipfsFiles, host, port, root string, log *slog.Logger) *IPFSBackend {
	root = path.Clean("/" + root)
	return &IPFSBackend{
		shell: sh,
		host:  host,
		port:  port,
		root:  root,
		log:   log,
	}
}

// Register creates the user's MFS directory.
func (b *IPFSBackend) Register(ctx context.Context, user interfaces.DriverUserView) (*interfaces.RegisterResult, error) {
	dir, err := b.userDir(user.Address)
	if err != nil {
		return nil, err
	}

	if !b.shell.IsUp() {
		b.log.Warn("IPFS node unavailable",
			slog.String("host", b.host),
			slog.String("port", b.port))
		return nil, fmt.Errorf("IPFS node %s:%s unavailable", b.host, b.port)
	}

	if err := b.shell.FilesMkdir(ctx, dir, shell.FilesMkdir.Parents(true)); err != nil {
		return nil, fmt.Errorf("failed to create IPFS directory: %w", err)
	}

	userdata := IPFSUserdata{Path: dir}
	if stat, err := b.shell.FilesStat(ctx, dir); err == nil {
		userdata.CID = stat.Hash
	}

	b.log.Debug("Created IPFS user directory",
		slog.String("user", user.Address),
		slog.String("path", dir))

	return &interfaces.RegisterResult{Userdata: mustUserdata(userdata)}, nil
}

// PostRegisterCheck confirms the user's directory exists.
func (b *IPFSBackend) PostRegisterCheck(ctx context.Context, user interfaces.DriverUserView, userdata json.RawMessage) error {
	var data IPFSUserdata
	if err := json.Unmarshal(userdata, &data); err != nil {
		return fmt.Errorf("invalid IPFS userdata: %w", err)
	}

	stat, err := b.shell.FilesStat(ctx, data.Path)
	if err != nil {
		return fmt.Errorf("IPFS directory not found: %w", err)
	}
	if stat.Type != "directory" {
		return fmt.Errorf("IPFS path %s is a %s", data.Path, stat.Type)
	}
	return nil
}

// Unregister removes the user's MFS directory recursively.
func (b *IPFSBackend) Unregister(ctx context.Context, conn interfaces.ConnectionView) error {
	dir, err := b.userDir(conn.UserAddress)
	if err != nil {
		return err
	}

	if err := b.shell.FilesRm(ctx, dir, true); err != nil {
		if !strings.Contains(err.Error(), "does not exist") {
			return fmt.Errorf("failed to remove IPFS directory: %w", err)
		}
		b.log.Debug("IPFS user directory already removed", slog.String("path", dir))
		return nil
	}

	b.log.Debug("Removed IPFS user directory",
		slog.String("user", conn.UserAddress),
		slog.String("path", dir))
	return nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) bool {
	return b.shell.IsUp()
}

func (b *IPFSBackend) userDir(address string) (string, error) {
	ns, err := userNamespace(address)
	if err != nil {
		return "", err
	}
	return path.Join(b.root, ns), nil
}
