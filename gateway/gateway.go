package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ruteri/identity-gateway/interfaces"
	"github.com/ruteri/identity-gateway/metrics"
)

// Provisioner runs auto-registration passes for a user.
type Provisioner interface {
	Pending(user *interfaces.User) bool
	Provision(ctx context.Context, user *interfaces.User) (*interfaces.User, error)
}

// Gateway implements the identity flows on top of injected collaborators.
type Gateway struct {
	validator   interfaces.CredentialValidator
	registry    interfaces.UserRegistry
	catalog     interfaces.DriverCatalog
	provisioner Provisioner
	log         *slog.Logger
}

func New(validator interfaces.CredentialValidator, registry interfaces.UserRegistry, catalog interfaces.DriverCatalog, provisioner Provisioner, log *slog.Logger) *Gateway {
	return &Gateway{
		validator:   validator,
		registry:    registry,
		catalog:     catalog,
		provisioner: provisioner,
		log:         log,
	}
}

// ValidateToken checks creds in strict mode.
func (g *Gateway) ValidateToken(ctx context.Context, creds interfaces.Credentials) error {
	_, err := g.validate("validate-token", creds, interfaces.StrictMode)
	return result("validate-token", err)
}

// Login authenticates creds and creates or refreshes the user record.
// Permissive validation is used only when trusted is set, which the
// transport derives from the request origin.
func (g *Gateway) Login(ctx context.Context, creds interfaces.Credentials, trusted bool) error {
	mode := interfaces.StrictMode
	if trusted {
		mode = interfaces.PermissiveMode
	}

	addrs, err := g.validate("login", creds, mode)
	if err != nil {
		return result("login", err)
	}

	bucketAddress := addrs.BucketAddress()
	user, err := g.registry.GetUser(ctx, addrs.SignerAddress)
	switch {
	case errors.Is(err, interfaces.ErrUserNotFound):
		return result("login", g.registerAndProvision(ctx, "login", addrs.SignerAddress, bucketAddress, true))
	case err != nil:
		return result("login", fmt.Errorf("looking up user: %w", err))
	}

	if user.InternalBucketAddress != bucketAddress {
		g.log.Info("Updating bucket address",
			slog.String("user", user.Address),
			slog.String("from", user.InternalBucketAddress),
			slog.String("to", bucketAddress))
		user.InternalBucketAddress = bucketAddress
		if err := g.registry.UpdateUser(ctx, user); err != nil {
			return result("login", fmt.Errorf("updating bucket address: %w", err))
		}
	}

	if g.provisioner.Pending(user) {
		g.provision(ctx, "login", user)
	}
	return result("login", nil)
}

// Register creates the user record for strictly validated creds and runs
// the auto-registration pass. It fails with ErrUserExists for known users.
func (g *Gateway) Register(ctx context.Context, creds interfaces.Credentials) error {
	addrs, err := g.validate("register", creds, interfaces.StrictMode)
	if err != nil {
		return result("register", err)
	}

	return result("register", g.registerAndProvision(ctx, "register", addrs.SignerAddress, addrs.BucketAddress(), false))
}

// Unregister tears down every connection through its driver and deletes the
// user record. Any driver failure aborts the flow before the record is removed.
func (g *Gateway) Unregister(ctx context.Context, creds interfaces.Credentials) error {
	addrs, err := g.validate("unregister", creds, interfaces.StrictMode)
	if err != nil {
		return result("unregister", err)
	}

	user, err := g.registry.GetUser(ctx, addrs.SignerAddress)
	if err != nil {
		return result("unregister", fmt.Errorf("looking up user: %w", err))
	}

	ids := make([]string, 0, len(user.Connections))
	for id := range user.Connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := g.unregisterConnection(ctx, user, id); err != nil {
			g.log.Error("Unregistration aborted, user record kept",
				slog.String("user", user.Address),
				slog.String("connection", id),
				"err", err)
			return result("unregister", err)
		}
	}

	if err := g.registry.DeleteUser(ctx, user.Address); err != nil {
		return result("unregister", fmt.Errorf("deleting user: %w", err))
	}

	g.log.Info("User unregistered",
		slog.String("user", user.Address),
		slog.Int("connections", len(ids)))
	return result("unregister", nil)
}

// Authenticate resolves strictly validated creds to a stored user.
func (g *Gateway) Authenticate(ctx context.Context, creds interfaces.Credentials) (*interfaces.User, error) {
	addrs, err := g.validate("authenticate", creds, interfaces.StrictMode)
	if err != nil {
		return nil, err
	}

	user, err := g.registry.GetUser(ctx, addrs.SignerAddress)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	return user, nil
}

// GdprExport returns the full record of an authenticated user.
func (g *Gateway) GdprExport(ctx context.Context, user *interfaces.User) (*interfaces.User, error) {
	return user.Clone(), nil
}

// ListFiles returns the user's file index, across every reachable bucket
// when global is set.
func (g *Gateway) ListFiles(ctx context.Context, user *interfaces.User, global bool) (interfaces.FileIndex, error) {
	if global {
		return g.registry.GetGlobalUserIndex(ctx, user)
	}
	return g.registry.GetUserIndex(ctx, user)
}

func (g *Gateway) validate(flow string, creds interfaces.Credentials, mode interfaces.ValidationMode) (interfaces.Addresses, error) {
	addrs, err := g.validator.Validate(creds, mode)
	if err != nil {
		metrics.AuthFailuresTotal.WithLabelValues(flow, mode.String()).Inc()
		g.log.Debug("Credential validation failed",
			slog.String("flow", flow),
			slog.String("mode", mode.String()),
			"err", err)
		return interfaces.Addresses{}, err
	}
	return addrs, nil
}

// registerAndProvision creates the record and provisions it. With
// tolerateExisting, losing a registration race is treated as success and
// provisioning is left to the winner.
func (g *Gateway) registerAndProvision(ctx context.Context, flow, address, bucketAddress string, tolerateExisting bool) error {
	user, err := g.registry.RegisterUser(ctx, address, bucketAddress)
	if err != nil {
		if tolerateExisting && errors.Is(err, interfaces.ErrUserExists) {
			g.log.Debug("Concurrent registration, skipping provisioning", slog.String("user", address))
			return nil
		}
		return fmt.Errorf("registering user: %w", err)
	}

	g.log.Info("User registered",
		slog.String("user", address),
		slog.String("flow", flow),
		slog.Bool("delegated", bucketAddress != ""))

	g.provision(ctx, flow, user)
	return nil
}

// provision runs a pass and logs its failure without surfacing it.
func (g *Gateway) provision(ctx context.Context, flow string, user *interfaces.User) {
	if _, err := g.provisioner.Provision(ctx, user); err != nil {
		var driverErr *interfaces.DriverError
		driver := ""
		if errors.As(err, &driverErr) {
			driver = driverErr.Driver
		}
		g.log.Error("Error auto-registering user",
			slog.String("flow", flow),
			slog.String("user", user.Address),
			slog.String("driver", driver),
			"err", err)
	}
}

func (g *Gateway) unregisterConnection(ctx context.Context, user *interfaces.User, id string) error {
	view, ok := user.SafeForConnection(id)
	if !ok {
		return nil
	}

	driver, err := g.catalog.Get(view.Driver)
	if err != nil {
		return &interfaces.DriverError{Driver: view.Driver, Op: "resolve", Err: err}
	}

	if err := driver.Unregister(ctx, view); err != nil {
		metrics.DriverErrorsTotal.WithLabelValues(view.Driver, "unregister").Inc()
		return &interfaces.DriverError{Driver: view.Driver, Op: "unregister", Err: err}
	}

	g.log.Debug("Connection unregistered",
		slog.String("user", user.Address),
		slog.String("driver", view.Driver),
		slog.String("connection", id))
	return nil
}

func result(flow string, err error) error {
	status := "ok"
	switch {
	case err == nil:
	case interfaces.IsAuthError(err):
		status = "unauthorized"
	default:
		status = "error"
	}
	metrics.FlowsTotal.WithLabelValues(flow, status).Inc()
	return err
}
