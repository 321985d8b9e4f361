package storage

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ruteri/identity-gateway/interfaces"
)

// DriverFactory creates storage drivers from location URIs.
type DriverFactory struct {
	log *slog.Logger
}

// NewDriverFactory creates a new factory instance that can create storage drivers.
func NewDriverFactory(logger *slog.Logger) *DriverFactory {
	return &DriverFactory{log: logger}
}

// DriverFor creates a storage driver from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS mutable file system
//   - vault:// - HashiCorp Vault KV v2
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (df *DriverFactory) DriverFor(location interfaces.DriverLocation) (interfaces.Driver, error) {
	switch location.Scheme {
	case "file":
		return df.createFileBackend(location)
	case "s3":
		return df.createS3Backend(location)
	case "ipfs":
		return df.createIPFSBackend(location)
	case "vault":
		return df.createVaultBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported driver scheme %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// createFileBackend creates a file system storage driver.
// URI format: file:///absolute/path/ or file://./relative/path/
func (df *DriverFactory) createFileBackend(loc interfaces.DriverLocation) (interfaces.Driver, error) {
	df.log.Debug("Creating file driver", slog.String("uri", loc.String()))

	path := loc.Path
	if loc.Host != "" {
		path = loc.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, loc.String())
	}

	return NewFileBackend(path, df.log)
}

// createS3Backend creates an S3 or S3-compatible storage driver.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=http://minio:9000
func (df *DriverFactory) createS3Backend(loc interfaces.DriverLocation) (interfaces.Driver, error) {
	df.log.Debug("Creating S3 driver", slog.String("bucket", loc.Host))

	if loc.Host == "" {
		return nil, fmt.Errorf("%w: missing bucket in S3 URI", interfaces.ErrInvalidLocationURI)
	}

	var accessKey, secretKey string
	if loc.User != nil {
		accessKey = loc.User.Username()
		secretKey, _ = loc.User.Password()
	}

	return NewS3Backend(
		loc.Host,
		strings.TrimPrefix(loc.Path, "/"),
		loc.GetParamDefault("region", "us-east-1"),
		loc.GetParam("endpoint"),
		accessKey,
		secretKey,
		df.log,
	)
}

// createIPFSBackend creates an IPFS storage driver.
// URI format: ipfs://host:port/mfs-root
func (df *DriverFactory) createIPFSBackend(loc interfaces.DriverLocation) (interfaces.Driver, error) {
	df.log.Debug("Creating IPFS driver", slog.String("uri", loc.String()))

	host, port, found := strings.Cut(loc.Host, ":")
	if host == "" {
		host = "127.0.0.1"
	}
	if !found || port == "" {
		port = "5001"
	}

	root := loc.Path
	if root == "" || root == "/" {
		root = "/gateway"
	}

	return NewIPFSBackend(host, port, root, df.log), nil
}

// createVaultBackend creates a Vault KV v2 storage driver.
// URI format: vault://host:port/mount/data/path?token=...&tls=true&insecure=false
// The token falls back to the VAULT_TOKEN environment variable.
func (df *DriverFactory) createVaultBackend(loc interfaces.DriverLocation) (interfaces.Driver, error) {
	df.log.Debug("Creating Vault driver", slog.String("host", loc.Host))

	if loc.Host == "" {
		return nil, fmt.Errorf("%w: missing host in Vault URI", interfaces.ErrInvalidLocationURI)
	}

	mount, dataPath, _ := strings.Cut(strings.TrimPrefix(loc.Path, "/"), "/")
	if mount == "" {
		mount = "secret"
	}

	scheme := "http"
	if loc.GetParamBool("tls") {
		scheme = "https"
	}

	token := loc.GetParam("token")
	if token == "" {
		token = os.Getenv("VAULT_TOKEN")
	}

	return NewVaultBackend(
		fmt.Sprintf("%s://%s", scheme, loc.Host),
		mount,
		dataPath,
		token,
		loc.GetParamBool("insecure"),
		df.log,
	)
}
