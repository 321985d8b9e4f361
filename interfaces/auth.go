package interfaces

// ValidationMode selects how much of the credential chain must be present.
type ValidationMode int

const (
	// StrictMode requires every credential parameter and an intact issuer chain.
	StrictMode ValidationMode = iota
	// PermissiveMode tolerates a same-origin issuer mismatch.
	PermissiveMode
)

// String returns mode name.
func (m ValidationMode) String() string {
	switch m {
	case StrictMode:
		return "strict"
	case PermissiveMode:
		return "permissive"
	default:
		return "unknown"
	}
}

// Credentials carries the credential material extracted from a request.
type Credentials struct {
	// Token is the bearer token without the scheme prefix.
	Token string
}

// CredentialValidator verifies credentials. It has no side effects.
type CredentialValidator interface {
	// Validate returns the verified signer and issuer, or an *AuthError.
	Validate(creds Credentials, mode ValidationMode) (Addresses, error)
}
