package auth

import (
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/identity-gateway/cryptoutils"
	"github.com/ruteri/identity-gateway/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHub = "https://hub.example.com"

func newKey(t *testing.T) *ecdsa.PrivateKey {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func address(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func mint(t *testing.T, signer *ecdsa.PrivateKey, opts cryptoutils.TokenOptions) interfaces.Credentials {
	token, err := cryptoutils.NewAuthToken(signer, opts)
	require.NoError(t, err)
	return interfaces.Credentials{Token: token}
}

func associate(t *testing.T, issuer, signer *ecdsa.PrivateKey) string {
	assoc, err := cryptoutils.NewAssociationToken(issuer, crypto.PubkeyToAddress(signer.PublicKey), time.Hour)
	require.NoError(t, err)
	return assoc
}

func TestValidate_NoDelegation(t *testing.T) {
	v := NewValidator(testHub)
	signer := newKey(t)

	for _, mode := range []interfaces.ValidationMode{interfaces.StrictMode, interfaces.PermissiveMode} {
		t.Run(mode.String(), func(t *testing.T) {
			addrs, err := v.Validate(mint(t, signer, cryptoutils.TokenOptions{Hub: testHub}), mode)
			require.NoError(t, err)
			assert.Equal(t, address(signer), addrs.SignerAddress)
			assert.Equal(t, address(signer), addrs.IssuerAddress)
			assert.Equal(t, "", addrs.BucketAddress())
		})
	}
}

func TestValidate_Association(t *testing.T) {
	v := NewValidator(testHub)
	signer, issuer := newKey(t), newKey(t)

	creds := mint(t, signer, cryptoutils.TokenOptions{
		Hub:         testHub + "/",
		Issuer:      address(issuer),
		Association: associate(t, issuer, signer),
	})

	addrs, err := v.Validate(creds, interfaces.StrictMode)
	require.NoError(t, err)
	assert.Equal(t, address(signer), addrs.SignerAddress)
	assert.Equal(t, address(issuer), addrs.IssuerAddress)
	assert.Equal(t, address(issuer), addrs.BucketAddress())
}

func TestValidate_Failures(t *testing.T) {
	v := NewValidator(testHub)
	signer, issuer, other := newKey(t), newKey(t), newKey(t)

	forged, err := cryptoutils.NewAuthToken(signer, cryptoutils.TokenOptions{Hub: testHub})
	require.NoError(t, err)
	forged = forged[:len(forged)-4] + "AAAA"

	tests := []struct {
		name       string
		creds      interfaces.Credentials
		strict     bool
		permissive bool
	}{
		{
			name:  "missing token",
			creds: interfaces.Credentials{},
		},
		{
			name:  "garbage token",
			creds: interfaces.Credentials{Token: "not.a.jwt"},
		},
		{
			name:  "bad signature",
			creds: interfaces.Credentials{Token: forged},
		},
		{
			name:  "expired",
			creds: mint(t, signer, cryptoutils.TokenOptions{Hub: testHub, IssuedAt: time.Now().Add(-2 * time.Hour), TTL: time.Hour}),
		},
		{
			name:       "missing hub",
			creds:      mint(t, signer, cryptoutils.TokenOptions{}),
			permissive: true,
		},
		{
			name:       "hub mismatch",
			creds:      mint(t, signer, cryptoutils.TokenOptions{Hub: "https://elsewhere.example.com"}),
			permissive: true,
		},
		{
			name:       "declared issuer without association",
			creds:      mint(t, signer, cryptoutils.TokenOptions{Hub: testHub, Issuer: address(issuer)}),
			permissive: true,
		},
		{
			name: "declared issuer differs from associated issuer",
			creds: mint(t, signer, cryptoutils.TokenOptions{
				Hub:         testHub,
				Issuer:      address(other),
				Association: associate(t, issuer, signer),
			}),
			permissive: true,
		},
		{
			name: "signer declared as issuer with foreign association",
			creds: mint(t, signer, cryptoutils.TokenOptions{
				Hub:         testHub,
				Issuer:      address(signer),
				Association: associate(t, issuer, signer),
			}),
			permissive: true,
		},
		{
			name: "association issued for another signer",
			creds: mint(t, signer, cryptoutils.TokenOptions{
				Hub:         testHub,
				Association: associate(t, issuer, other),
			}),
		},
		{
			name:  "malformed declared issuer",
			creds: mint(t, signer, cryptoutils.TokenOptions{Hub: testHub, Issuer: "0xnope"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.creds, interfaces.StrictMode)
			if tt.strict {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, interfaces.IsAuthError(err), "expected AuthError, got %T", err)
			}

			_, err = v.Validate(tt.creds, interfaces.PermissiveMode)
			if tt.permissive {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, interfaces.IsAuthError(err), "expected AuthError, got %T", err)
			}
		})
	}
}

func TestValidate_PermissiveIssuerResolution(t *testing.T) {
	v := NewValidator(testHub)
	signer, issuer, other := newKey(t), newKey(t), newKey(t)

	// association wins over a mismatching declaration
	addrs, err := v.Validate(mint(t, signer, cryptoutils.TokenOptions{
		Issuer:      address(other),
		Association: associate(t, issuer, signer),
	}), interfaces.PermissiveMode)
	require.NoError(t, err)
	assert.Equal(t, address(issuer), addrs.IssuerAddress)

	// a bare declaration is taken as the issuer
	addrs, err = v.Validate(mint(t, signer, cryptoutils.TokenOptions{Issuer: address(other)}), interfaces.PermissiveMode)
	require.NoError(t, err)
	assert.Equal(t, address(other), addrs.IssuerAddress)
}

func TestValidate_Clock(t *testing.T) {
	signer := newKey(t)
	creds := mint(t, signer, cryptoutils.TokenOptions{Hub: testHub, TTL: time.Minute})

	future := func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err := NewValidator(testHub, WithClock(future)).Validate(creds, interfaces.StrictMode)
	assert.Error(t, err)

	_, err = NewValidator(testHub, WithClock(future), WithLeeway(5*time.Minute)).Validate(creds, interfaces.StrictMode)
	assert.NoError(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "abc", BearerToken("Bearer  abc "))
	assert.Equal(t, "abc", BearerToken("abc"))
	assert.Equal(t, "", BearerToken(""))
}
