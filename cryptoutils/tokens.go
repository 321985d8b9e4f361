package cryptoutils

import (
	"crypto/ecdsa"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims of a request auth token.
type TokenClaims struct {
	jwt.RegisteredClaims

	// Hub is the service URL the token was minted for.
	Hub string `json:"hub,omitempty"`

	// Association is an issuer-signed AssociationClaims token.
	Association string `json:"assoc,omitempty"`
}

// AssociationClaims authorize Subject (the signer) to act for Issuer.
type AssociationClaims struct {
	jwt.RegisteredClaims
}

// TokenOptions parameterize NewAuthToken.
type TokenOptions struct {
	Hub         string
	Issuer      string
	Association string
	IssuedAt    time.Time
	TTL         time.Duration
}

const defaultTokenTTL = time.Hour

// NewAuthToken mints an auth token signed by signer.
func NewAuthToken(signer *ecdsa.PrivateKey, opts TokenOptions) (string, error) {
	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = defaultTokenTTL
	}

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   crypto.PubkeyToAddress(signer.PublicKey).Hex(),
			Issuer:    opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Hub:         opts.Hub,
		Association: opts.Association,
	}

	return jwt.NewWithClaims(SigningMethodES256KRecoverable, claims).SignedString(signer)
}

// NewAssociationToken mints a token in which issuer authorizes signer.
func NewAssociationToken(issuer *ecdsa.PrivateKey, signer common.Address, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now()

	claims := AssociationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    crypto.PubkeyToAddress(issuer.PublicKey).Hex(),
			Subject:   signer.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(SigningMethodES256KRecoverable, claims).SignedString(issuer)
}
