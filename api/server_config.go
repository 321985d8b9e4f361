package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig configures the gateway's API listener and its sidecar
// metrics listener.
type HTTPServerConfig struct {
	// ListenAddr serves the user API, the app db API and the health endpoints.
	ListenAddr string

	// MetricsAddr serves Prometheus metrics. Empty disables the metrics listener.
	MetricsAddr string

	// EnablePprof mounts net/http/pprof under /debug.
	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long GET /drain keeps the process up after /readyz
	// starts failing. Login, registration and table requests are still served
	// meanwhile.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds how long in-flight requests, including
	// provisioning passes and driver teardown, may run after a stop signal.
	GracefulShutdownDuration time.Duration

	// ReadTimeout covers the whole request; app db bodies are capped at 1MB.
	ReadTimeout time.Duration

	// WriteTimeout must leave room for a provisioning pass across every
	// auto-register driver on first login.
	WriteTimeout time.Duration
}
