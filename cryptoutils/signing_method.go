package cryptoutils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

// AlgES256KR is the JWT "alg" value of recoverable secp256k1 signatures.
const AlgES256KR = "ES256K-R"

var (
	// ErrSignatureMismatch is returned when a signature recovers to an unexpected address.
	ErrSignatureMismatch = errors.New("signature does not match address")

	// ErrInvalidAddress is returned for strings that are not 20-byte hex addresses.
	ErrInvalidAddress = errors.New("invalid address")
)

// SigningMethodES256KR implements jwt.SigningMethod. Sign expects an
// *ecdsa.PrivateKey on secp256k1, Verify expects the common.Address the
// signature must recover to.
type SigningMethodES256KR struct{}

// SigningMethodES256KRecoverable is the registered instance.
var SigningMethodES256KRecoverable = &SigningMethodES256KR{}

func init() {
	jwt.RegisterSigningMethod(AlgES256KR, func() jwt.SigningMethod {
		return SigningMethodES256KRecoverable
	})
}

func (m *SigningMethodES256KR) Alg() string {
	return AlgES256KR
}

func (m *SigningMethodES256KR) Sign(signingString string, key interface{}) ([]byte, error) {
	privateKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}
	return crypto.Sign(accounts.TextHash([]byte(signingString)), privateKey)
}

func (m *SigningMethodES256KR) Verify(signingString string, sig []byte, key interface{}) error {
	expected, ok := key.(common.Address)
	if !ok {
		return jwt.ErrInvalidKeyType
	}

	recovered, err := RecoverAddress([]byte(signingString), sig)
	if err != nil {
		return err
	}

	if recovered != expected {
		return ErrSignatureMismatch
	}
	return nil
}

// RecoverAddress returns the address that produced sig over the text hash of message.
// Both 0/1 and 27/28 recovery ids are accepted.
func RecoverAddress(message []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(sig))
	}

	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	pubkey, err := crypto.SigToPub(accounts.TextHash(message), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("could not recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

// ParseAddress parses a hex address, with or without 0x prefix.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}
