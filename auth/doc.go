// Package auth implements the gateway's CredentialValidator.
//
// Validation is pure: it parses the bearer token, verifies its signature and
// the optional issuer association, and reports the signer/issuer pair.
//
// Strict mode, used by public self-service endpoints, requires the full set of
// token parameters and an intact issuer chain. Permissive mode, used for
// first-party login from the trusted frontend origin, still verifies every
// signature but tolerates a missing or mismatched hub and a declared issuer
// that differs from the one actually authorizing the signer.
package auth
