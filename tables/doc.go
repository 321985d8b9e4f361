// Package tables exposes named key/value tables behind a shared secret.
//
// Gate checks the secret before it touches the store, so a request with a
// missing or wrong key has no effect. Stores are available in memory and on
// the SQL database used by the user registry.
package tables
