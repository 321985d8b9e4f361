package cryptoutils

import (
	"runtime"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningMethod_SignVerify(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	sig, err := SigningMethodES256KRecoverable.Sign("header.payload", key)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)

	require.NoError(t, SigningMethodES256KRecoverable.Verify("header.payload", sig, addr))

	// Tampered signing string recovers to a different address
	err = SigningMethodES256KRecoverable.Verify("header.payload2", sig, addr)
	assert.Error(t, err)

	// Wrong key type
	err = SigningMethodES256KRecoverable.Verify("header.payload", sig, "not-an-address")
	assert.ErrorIs(t, err, jwt.ErrInvalidKeyType)

	_, err = SigningMethodES256KRecoverable.Sign("header.payload", "not-a-key")
	assert.ErrorIs(t, err, jwt.ErrInvalidKeyType)
}

func TestRecoverAddress_LegacyRecoveryID(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := SigningMethodES256KRecoverable.Sign("message", key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	recovered, err := RecoverAddress([]byte("message"), sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), recovered)

	_, err = RecoverAddress([]byte("message"), sig[:10])
	assert.Error(t, err)
}

func TestNewAuthToken_RoundTrip(t *testing.T) {
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	issuer, err := crypto.GenerateKey()
	require.NoError(t, err)
	signerAddr := crypto.PubkeyToAddress(signer.PublicKey)

	assoc, err := NewAssociationToken(issuer, signerAddr, time.Minute)
	require.NoError(t, err)

	token, err := NewAuthToken(signer, TokenOptions{Hub: "https://hub.example", Association: assoc})
	require.NoError(t, err)

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		return ParseAddress(tok.Claims.(*TokenClaims).Subject)
	}, jwt.WithValidMethods([]string{AlgES256KR}))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, signerAddr.Hex(), claims.Subject)
	assert.Equal(t, "https://hub.example", claims.Hub)
	assert.Equal(t, assoc, claims.Association)
}

func TestParseAddress(t *testing.T) {
	_, err := ParseAddress("0x123")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	addr, err := ParseAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, byte(0xaa), addr[19])
}

func TestAppKeyMatches(t *testing.T) {
	key := NewAppKey("s3cret")

	assert.True(t, key.Matches("s3cret"))
	assert.False(t, key.Matches("s3cret "))
	assert.False(t, key.Matches(""))
	assert.False(t, NewAppKey("").Matches("s3cret"))
	assert.False(t, NewAppKey("").Matches(""))

	var unset *AppKey
	assert.False(t, unset.Matches("s3cret"))
}

func TestAppKeyMatchesSkipsKeyDerivation(t *testing.T) {
	key := NewAppKey("s3cret")

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	for i := 0; i < 50; i++ {
		key.Matches("wrong-key")
	}
	runtime.ReadMemStats(&after)

	// one Argon2id derivation alone allocates 8 MiB
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
}
