package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/ruteri/identity-gateway/cryptoutils"
	"github.com/ruteri/identity-gateway/interfaces"
)

// Validator implements interfaces.CredentialValidator for ES256K-R tokens.
type Validator struct {
	hubURL string
	leeway time.Duration
	now    func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithLeeway allows for clock skew when checking exp/iat.
func WithLeeway(leeway time.Duration) Option {
	return func(v *Validator) { v.leeway = leeway }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a validator for tokens minted for hubURL.
func NewValidator(hubURL string, opts ...Option) *Validator {
	v := &Validator{
		hubURL: normalizeHub(hubURL),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate verifies creds and returns the signer and issuer addresses.
// All failures are *interfaces.AuthError.
func (v *Validator) Validate(creds interfaces.Credentials, mode interfaces.ValidationMode) (interfaces.Addresses, error) {
	if creds.Token == "" {
		return interfaces.Addresses{}, interfaces.NewAuthError("missing authorization token", nil)
	}

	claims := &cryptoutils.TokenClaims{}
	if _, err := v.parser(mode == interfaces.StrictMode).ParseWithClaims(creds.Token, claims, subjectKey); err != nil {
		return interfaces.Addresses{}, interfaces.NewAuthError("invalid authorization token", err)
	}

	signer, err := cryptoutils.ParseAddress(claims.Subject)
	if err != nil {
		return interfaces.Addresses{}, interfaces.NewAuthError("invalid signer address", err)
	}

	if mode == interfaces.StrictMode {
		if err := v.checkStrictParams(claims); err != nil {
			return interfaces.Addresses{}, err
		}
	}

	var declared *common.Address
	if claims.Issuer != "" {
		addr, err := cryptoutils.ParseAddress(claims.Issuer)
		if err != nil {
			return interfaces.Addresses{}, interfaces.NewAuthError("invalid issuer address", err)
		}
		declared = &addr
	}

	var associated *common.Address
	if claims.Association != "" {
		addr, err := v.verifyAssociation(claims.Association, signer)
		if err != nil {
			return interfaces.Addresses{}, err
		}
		associated = &addr
	}

	issuer := signer
	switch mode {
	case interfaces.StrictMode:
		if declared != nil && associated != nil && *declared != *associated {
			return interfaces.Addresses{}, interfaces.NewAuthError(
				fmt.Sprintf("declared issuer %s does not match associated issuer %s", declared.Hex(), associated.Hex()), nil)
		}
		if declared != nil && associated == nil && *declared != signer {
			return interfaces.Addresses{}, interfaces.NewAuthError("issuer declared without association token", nil)
		}
		if associated != nil {
			issuer = *associated
		}
	default:
		if associated != nil {
			issuer = *associated
		} else if declared != nil {
			issuer = *declared
		}
	}

	return interfaces.Addresses{
		SignerAddress: signer.Hex(),
		IssuerAddress: issuer.Hex(),
	}, nil
}

func (v *Validator) parser(strict bool) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{cryptoutils.AlgES256KR}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if strict {
		opts = append(opts, jwt.WithIssuedAt())
	}
	return jwt.NewParser(opts...)
}

func (v *Validator) checkStrictParams(claims *cryptoutils.TokenClaims) error {
	if claims.IssuedAt == nil {
		return interfaces.NewAuthError("missing iat in authorization token", nil)
	}
	if claims.Hub == "" {
		return interfaces.NewAuthError("missing hub in authorization token", nil)
	}
	if v.hubURL != "" && normalizeHub(claims.Hub) != v.hubURL {
		return interfaces.NewAuthError(fmt.Sprintf("token hub %q does not match %q", claims.Hub, v.hubURL), nil)
	}
	return nil
}

func (v *Validator) verifyAssociation(token string, signer common.Address) (common.Address, error) {
	claims := &cryptoutils.AssociationClaims{}
	if _, err := v.parser(false).ParseWithClaims(token, claims, issuerKey); err != nil {
		return common.Address{}, interfaces.NewAuthError("invalid association token", err)
	}

	issuer, err := cryptoutils.ParseAddress(claims.Issuer)
	if err != nil {
		return common.Address{}, interfaces.NewAuthError("invalid association issuer", err)
	}

	child, err := cryptoutils.ParseAddress(claims.Subject)
	if err != nil || child != signer {
		return common.Address{}, interfaces.NewAuthError("association token was not issued for this signer", err)
	}

	return issuer, nil
}

func subjectKey(token *jwt.Token) (interface{}, error) {
	claims, ok := token.Claims.(*cryptoutils.TokenClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return cryptoutils.ParseAddress(claims.Subject)
}

func issuerKey(token *jwt.Token) (interface{}, error) {
	claims, ok := token.Claims.(*cryptoutils.AssociationClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return cryptoutils.ParseAddress(claims.Issuer)
}

func normalizeHub(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(raw), "/")
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + strings.TrimSuffix(u.Path, "/")
}

// BearerToken strips the bearer scheme from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
