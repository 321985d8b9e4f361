// Package cryptoutils provides the signing primitives behind gateway credentials.
//
// Credentials are JWTs signed with ES256K-R: a 65-byte recoverable secp256k1
// signature over the Ethereum text hash of the JWT signing string. Verifying a
// token recovers the signing address and compares it to the address the token
// claims, so no public key distribution is needed.
//
// # Token Layout
//
// Auth tokens carry the signer address in "sub", an optional declared issuer in
// "iss", the service URL in "hub" and, under delegation, an association token in
// "assoc". Association tokens are signed by the issuer and name the signer they
// authorize in "sub".
//
// # Shared Secrets
//
// NewAppKey derives an Argon2id key from the table gate secret once at startup
// and keeps only an HMAC of the secret under that key. Request keys are
// checked with a single HMAC-SHA256, so the plaintext is never retained.
package cryptoutils
