// Package gateway composes credential validation, the user registry and the
// connection provisioner into the login, register, unregister and read-only
// user flows.
//
// Provisioning failures during login and registration are logged and do not
// fail the flow. Driver failures during unregistration abort the flow and
// leave the user record in place.
package gateway
