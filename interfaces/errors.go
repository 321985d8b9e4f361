package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when no user record exists for an address.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned by RegisterUser when the record is already present.
	ErrUserExists = errors.New("user already exists")

	// ErrDriverNotFound is returned when a driver id is not in the catalog.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrConnectionIDExhausted is returned when no unused connection id could be generated.
	ErrConnectionIDExhausted = errors.New("could not allocate unique connection id")

	// ErrTableNotFound is returned for operations on a missing table.
	ErrTableNotFound = errors.New("table not found")

	// ErrRowNotFound is returned when a key is absent from a table.
	ErrRowNotFound = errors.New("row not found")

	// ErrInvalidLocationURI is returned when a driver URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid driver location URI")
)

// AuthError reports missing or invalid credentials or shared secret.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError builds an AuthError with an optional cause.
func NewAuthError(reason string, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}

// ValidationError reports a malformed request, distinct from an AuthError.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// DriverError wraps a failure reported by a storage driver.
type DriverError struct {
	Driver string
	Op     string
	Err    error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("driver %s: %s: %v", e.Driver, e.Op, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is or wraps an *AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
