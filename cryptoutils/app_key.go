package cryptoutils

import (
	"crypto/hmac"
	"crypto/sha256"

	"golang.org/x/crypto/argon2"
)

var appKeySalt = []byte("IDENTITY-GATEWAY-APP-KEY")

// AppKeyDigest derives a fixed-length Argon2id digest of a shared secret.
func AppKeyDigest(secret string) []byte {
	// Parameters: time=1, memory=8*1024 KiB, threads=1, keyLen=32
	return argon2.IDKey([]byte(secret), appKeySalt, 1, 8*1024, 1, 32)
}

// AppKey verifies candidate secrets against one configured secret.
// Argon2id runs once at construction; each check is a single HMAC-SHA256.
type AppKey struct {
	macKey []byte
	mac    []byte
}

// NewAppKey prepares secret for verification. An empty secret matches nothing.
func NewAppKey(secret string) *AppKey {
	if secret == "" {
		return &AppKey{}
	}
	k := &AppKey{macKey: AppKeyDigest(secret)}
	k.mac = k.sum(secret)
	return k
}

// Matches compares candidate against the configured secret in constant time.
// An empty candidate never matches.
func (k *AppKey) Matches(candidate string) bool {
	if k == nil || candidate == "" || len(k.mac) == 0 {
		return false
	}
	return hmac.Equal(k.mac, k.sum(candidate))
}

func (k *AppKey) sum(value string) []byte {
	h := hmac.New(sha256.New, k.macKey)
	h.Write([]byte(value))
	return h.Sum(nil)
}
