package interfaces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// RegisterResult is what a driver returns from Register.
type RegisterResult struct {
	// Userdata is stored as the connection config. Nil means no config.
	Userdata json.RawMessage
}

// Driver is the operational handle of a configured storage driver.
type Driver interface {
	// Register allocates driver-side resources for a user.
	Register(ctx context.Context, user DriverUserView) (*RegisterResult, error)

	// Unregister releases the resources held by a connection.
	Unregister(ctx context.Context, conn ConnectionView) error
}

// PostRegisterChecker is implemented by drivers that verify a freshly
// registered connection before it is considered usable.
type PostRegisterChecker interface {
	PostRegisterCheck(ctx context.Context, user DriverUserView, userdata json.RawMessage) error
}

// DriverCatalog enumerates configured drivers and resolves their handles.
type DriverCatalog interface {
	// Info returns the metadata of every configured driver in catalog order.
	Info() []DriverInfo

	// Get resolves a driver id. Returns ErrDriverNotFound for unknown ids.
	Get(driverID string) (Driver, error)
}

// DriverLocation is a parsed driver URI in the form
// [scheme]://[auth@]host[:port][/path][?params].
type DriverLocation struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Query  url.Values
	User   *url.Userinfo
}

// NewDriverLocation parses and validates a driver URI.
func NewDriverLocation(uri string) (DriverLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return DriverLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "file", "s3", "ipfs", "vault":
	default:
		return DriverLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return DriverLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		User:   parsed.User,
	}, nil
}

// String returns the original URI string.
func (loc DriverLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc DriverLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamDefault returns a query parameter value or def when unset.
func (loc DriverLocation) GetParamDefault(name, def string) string {
	if v := loc.Query.Get(name); v != "" {
		return v
	}
	return def
}

// GetParamBool returns a boolean query parameter value.
func (loc DriverLocation) GetParamBool(name string) bool {
	return ParseTruthy(loc.Query.Get(name))
}

// ParseTruthy accepts the common truthy encodings of query parameters.
func ParseTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
