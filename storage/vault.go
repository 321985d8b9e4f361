package storage

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/identity-gateway/interfaces"
)

// vaultLogical is the subset of the Vault logical API the driver uses.
type vaultLogical interface {
	ReadWithContext(ctx context.Context, path string) (*api.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*api.Secret, error)
	DeleteWithContext(ctx context.Context, path string) (*api.Secret, error)
}

// VaultBackend implements a storage driver using HashiCorp Vault KV v2.
// Each user gets one secret under the configured data path.
type VaultBackend struct {
	logical   vaultLogical
	address   string
	mountPath string
	dataPath  string
	log       *slog.Logger
}

// VaultUserdata is the connection config produced by VaultBackend.
type VaultUserdata struct {
	Mount string `json:"mount"`
	Path  string `json:"path"`
}

// NewVaultBackend creates a new Vault storage driver authenticated with a token.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "gateway")
//   - token: Vault token
//   - insecureSkipVerify: skip TLS verification for development servers
func NewVaultBackend(address, mountPath, dataPath, token string, insecureSkipVerify bool, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureSkipVerify}, // #nosec G402
		},
		Timeout: 30 * time.Second,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	return newVaultBackend(client.Logical(), address, mountPath, dataPath, log), nil
}

func newVaultBackend(logical vaultLogical, address, mountPath, dataPath string, log *slog.Logger) *VaultBackend {
	return &VaultBackend{
		logical:   logical,
		address:   address,
		mountPath: strings.Trim(mountPath, "/"),
		dataPath:  strings.Trim(dataPath, "/"),
		log:       log,
	}
}

// Register writes the user's initial secret version.
func (b *VaultBackend) Register(ctx context.Context, user interfaces.DriverUserView) (*interfaces.RegisterResult, error) {
	secretPath, err := b.secretPath(user.Address)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/data/%s", b.mountPath, secretPath)
	_, err = b.logical.WriteWithContext(ctx, path, map[string]interface{}{
		"data": map[string]interface{}{
			"owner":      user.Address,
			"registered": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		b.log.Error("Failed to write to Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("failed to write Vault secret: %w", err)
	}

	b.log.Debug("Created Vault user secret", slog.String("vault", b.address), slog.String("path", path))

	return &interfaces.RegisterResult{Userdata: mustUserdata(VaultUserdata{
		Mount: b.mountPath,
		Path:  secretPath,
	})}, nil
}

// PostRegisterCheck reads the secret back and checks its owner.
func (b *VaultBackend) PostRegisterCheck(ctx context.Context, user interfaces.DriverUserView, userdata json.RawMessage) error {
	var data VaultUserdata
	if err := json.Unmarshal(userdata, &data); err != nil {
		return fmt.Errorf("invalid Vault userdata: %w", err)
	}

	secret, err := b.logical.ReadWithContext(ctx, fmt.Sprintf("%s/data/%s", data.Mount, data.Path))
	if err != nil {
		return fmt.Errorf("failed to read Vault secret: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return fmt.Errorf("vault secret %s not found", data.Path)
	}

	// KV v2 nests the payload under "data"
	payload, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid data format in Vault response")
	}
	if owner, _ := payload["owner"].(string); owner != user.Address {
		return fmt.Errorf("vault secret owner mismatch: %q", owner)
	}
	return nil
}

// Unregister deletes all versions and metadata of the user's secret.
func (b *VaultBackend) Unregister(ctx context.Context, conn interfaces.ConnectionView) error {
	secretPath, err := b.secretPath(conn.UserAddress)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("%s/metadata/%s", b.mountPath, secretPath)
	if _, err := b.logical.DeleteWithContext(ctx, path); err != nil {
		b.log.Error("Failed to delete from Vault", slog.String("path", path), "err", err)
		return fmt.Errorf("failed to delete Vault secret: %w", err)
	}

	b.log.Debug("Removed Vault user secret", slog.String("path", path))
	return nil
}

func (b *VaultBackend) secretPath(address string) (string, error) {
	ns, err := userNamespace(address)
	if err != nil {
		return "", err
	}
	if b.dataPath == "" {
		return ns, nil
	}
	return b.dataPath + "/" + ns, nil
}
