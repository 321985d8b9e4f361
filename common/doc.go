// Package common holds process-wide helpers shared by the gateway binaries:
// logger construction and build metadata.
package common
