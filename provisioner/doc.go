// Package provisioner implements the auto-registration pass that connects a
// user to every storage driver flagged for auto-registration.
//
// A pass walks the catalog in order and skips drivers the user is already
// connected to, so running it repeatedly is a no-op once every driver is
// connected. The first connection created for a user becomes its default
// connection and is never replaced afterwards.
//
// A driver failure aborts the remaining drivers of the pass. Connections
// completed before the failure are kept and persisted together with the rest
// of the record in a single registry update.
package provisioner
