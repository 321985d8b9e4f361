package clients

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/identity-gateway/api"
	"github.com/ruteri/identity-gateway/cryptoutils"
	"github.com/ruteri/identity-gateway/interfaces"
)

// UserClient implements api.UserProvider over HTTP.
type UserClient struct {
	// ServerAddr is the base URL of the gateway
	ServerAddr string

	// Hub is the service URL placed in tokens, defaults to ServerAddr
	Hub string

	// Signer signs every request token
	Signer *ecdsa.PrivateKey

	// Issuer, when set, delegates to Signer through an association token
	Issuer *ecdsa.PrivateKey

	// Origin is sent as the Origin header when set
	Origin string

	// TokenTTL bounds token lifetime, defaults to one minute
	TokenTTL time.Duration

	// HTTPClient defaults to http.DefaultClient
	HTTPClient *http.Client
}

var _ api.UserProvider = (*UserClient)(nil)

// Token mints a credential for the configured signer and issuer.
func (c *UserClient) Token() (string, error) {
	ttl := c.TokenTTL
	if ttl == 0 {
		ttl = time.Minute
	}
	hub := c.Hub
	if hub == "" {
		hub = c.ServerAddr
	}

	opts := cryptoutils.TokenOptions{Hub: hub, TTL: ttl}
	if c.Issuer != nil {
		assoc, err := cryptoutils.NewAssociationToken(c.Issuer, crypto.PubkeyToAddress(c.Signer.PublicKey), ttl)
		if err != nil {
			return "", fmt.Errorf("could not sign association token: %w", err)
		}
		opts.Issuer = crypto.PubkeyToAddress(c.Issuer.PublicKey).Hex()
		opts.Association = assoc
	}

	return cryptoutils.NewAuthToken(c.Signer, opts)
}

func (c *UserClient) ValidateToken(ctx context.Context) error {
	return c.command(ctx, http.MethodGet, api.PathValidateToken)
}

func (c *UserClient) Login(ctx context.Context) error {
	return c.command(ctx, http.MethodPost, api.PathLogin)
}

func (c *UserClient) Register(ctx context.Context) error {
	return c.command(ctx, http.MethodPost, api.PathRegister)
}

func (c *UserClient) Unregister(ctx context.Context) error {
	return c.command(ctx, http.MethodPost, api.PathUnregister)
}

func (c *UserClient) Gdpr(ctx context.Context) (*interfaces.User, error) {
	var user interfaces.User
	if err := c.query(ctx, api.PathGdpr, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *UserClient) ListFiles(ctx context.Context, global bool) (interfaces.FileIndex, error) {
	path := api.PathListFiles
	if global {
		path += "?" + api.GlobalParam + "=1"
	}

	var index interfaces.FileIndex
	if err := c.query(ctx, path, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (c *UserClient) command(ctx context.Context, method, path string) error {
	resp, err := c.do(ctx, method, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return responseError(path, resp)
	}
	return nil
}

func (c *UserClient) query(ctx context.Context, path string, out interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(path, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse %s response: %w", path, err)
	}
	return nil
}

func (c *UserClient) do(ctx context.Context, method, path string) (*http.Response, error) {
	token, err := c.Token()
	if err != nil {
		return nil, fmt.Errorf("could not sign request token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ServerAddr+api.UserAPIPrefix+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "bearer "+token)
	if c.Origin != "" {
		req.Header.Set("Origin", c.Origin)
	}

	resp, err := httpClient(c.HTTPClient).Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request %s endpoint: %w", path, err)
	}
	return resp, nil
}

// StatusError is returned for unexpected response codes.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s endpoint returned error %d: %s", e.Path, e.StatusCode, e.Body)
}

func responseError(path string, resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return &StatusError{Path: path, StatusCode: resp.StatusCode}
	}
	return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: string(trimNewline(body))}
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
