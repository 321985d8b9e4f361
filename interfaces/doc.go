// Package interfaces defines the data model and collaborator contracts of the
// identity gateway, separating interface definitions from implementations.
//
// # Data Model
//
// User: a record keyed by signer address, holding the derived internal bucket
// address, the map of storage connections and the default connection id.
//
// Connection: a binding between a user and one storage driver, carrying the
// driver-returned configuration and the buckets the connection may access.
//
// DriverInfo: catalog metadata of a configured driver (id, display name,
// auto-registration flag).
//
// # Safe Views
//
// Drivers never see a *User. They receive DriverUserView and ConnectionView
// value projections that are deep copies scoped to the driver in question.
//
// # Collaborators
//
// CredentialValidator: verifies request credentials in strict or permissive mode.
//
// UserRegistry: durable CRUD over user records plus the file index read paths.
//
// DriverCatalog / Driver: enumerates and operates the configured storage drivers.
//
// TableStore: named key/value tables exposed through the table access gate.
package interfaces
