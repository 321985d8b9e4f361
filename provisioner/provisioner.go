package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ruteri/identity-gateway/interfaces"
	"github.com/ruteri/identity-gateway/metrics"
)

// DefaultMaxIDAttempts bounds connection id generation per connection.
const DefaultMaxIDAttempts = 10

// Provisioner runs auto-registration passes against a driver catalog and
// persists the result through a user registry.
type Provisioner struct {
	catalog       interfaces.DriverCatalog
	registry      interfaces.UserRegistry
	log           *slog.Logger
	newID         func() string
	maxIDAttempts int
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithIDGenerator replaces the connection id source.
func WithIDGenerator(fn func() string) Option {
	return func(p *Provisioner) {
		p.newID = fn
	}
}

// WithMaxIDAttempts overrides DefaultMaxIDAttempts.
func WithMaxIDAttempts(n int) Option {
	return func(p *Provisioner) {
		if n > 0 {
			p.maxIDAttempts = n
		}
	}
}

func New(catalog interfaces.DriverCatalog, registry interfaces.UserRegistry, log *slog.Logger, opts ...Option) *Provisioner {
	p := &Provisioner{
		catalog:       catalog,
		registry:      registry,
		log:           log,
		newID:         uuid.NewString,
		maxIDAttempts: DefaultMaxIDAttempts,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pending reports whether some auto-register driver has no connection for user.
func (p *Provisioner) Pending(user *interfaces.User) bool {
	for _, info := range p.catalog.Info() {
		if info.AutoRegister && !user.HasDriver(info.ID) {
			return true
		}
	}
	return false
}

// Provision runs one auto-registration pass for user and persists the
// updated record once. The input record is not modified.
//
// On a driver failure the returned user holds the connections completed so
// far, which are persisted, and the error is a *interfaces.DriverError.
func (p *Provisioner) Provision(ctx context.Context, user *interfaces.User) (*interfaces.User, error) {
	updated := user.Clone()
	if updated.Connections == nil {
		updated.Connections = map[string]*interfaces.Connection{}
	}

	passErr := p.pass(ctx, updated)

	if err := p.registry.UpdateUser(ctx, updated); err != nil {
		err = fmt.Errorf("persisting provisioned user: %w", err)
		if passErr != nil {
			return updated, errors.Join(passErr, err)
		}
		return updated, err
	}

	return updated, passErr
}

func (p *Provisioner) pass(ctx context.Context, user *interfaces.User) error {
	for _, info := range p.catalog.Info() {
		if !info.AutoRegister || user.HasDriver(info.ID) {
			continue
		}

		if err := p.connect(ctx, user, info); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) connect(ctx context.Context, user *interfaces.User, info interfaces.DriverInfo) error {
	driver, err := p.catalog.Get(info.ID)
	if err != nil {
		return &interfaces.DriverError{Driver: info.ID, Op: "resolve", Err: err}
	}

	id, err := p.allocateID(user)
	if err != nil {
		return &interfaces.DriverError{Driver: info.ID, Op: "allocate", Err: err}
	}

	start := time.Now()
	res, err := driver.Register(ctx, user.SafeForDriver(info.ID))
	observe(info.ID, "register", start, err)
	if err != nil {
		return &interfaces.DriverError{Driver: info.ID, Op: "register", Err: err}
	}

	var userdata json.RawMessage
	if res != nil && len(res.Userdata) > 0 {
		userdata = res.Userdata
	}

	name := info.Name
	if n := user.CountDriver(info.ID); n > 0 {
		name = fmt.Sprintf("%s-%d", info.Name, n+1)
	}

	user.Connections[id] = &interfaces.Connection{
		Driver:  info.ID,
		Name:    name,
		Config:  userdata,
		Buckets: []string{user.Address},
	}

	if checker, ok := driver.(interfaces.PostRegisterChecker); ok {
		start := time.Now()
		err := checker.PostRegisterCheck(ctx, user.SafeForDriver(info.ID), userdata)
		observe(info.ID, "post_register_check", start, err)
		if err != nil {
			p.rollback(ctx, driver, user, id)
			return &interfaces.DriverError{Driver: info.ID, Op: "post_register_check", Err: err}
		}
	}

	if user.DefaultConnection == "" {
		user.DefaultConnection = id
	}

	metrics.ProvisionedConnectionsTotal.WithLabelValues(info.ID).Inc()
	p.log.Info("Provisioned connection",
		slog.String("user", user.Address),
		slog.String("driver", info.ID),
		slog.String("connection", id),
		slog.String("name", name))
	return nil
}

// rollback removes a connection that failed its post-register check and
// releases its driver resources so a later pass can retry the driver.
func (p *Provisioner) rollback(ctx context.Context, driver interfaces.Driver, user *interfaces.User, id string) {
	view, ok := user.SafeForConnection(id)
	delete(user.Connections, id)
	if !ok {
		return
	}

	if err := driver.Unregister(ctx, view); err != nil {
		metrics.DriverErrorsTotal.WithLabelValues(view.Driver, "rollback").Inc()
		p.log.Warn("Failed to release connection after failed check",
			slog.String("user", user.Address),
			slog.String("driver", view.Driver),
			slog.String("connection", id),
			"err", err)
	}
}

func (p *Provisioner) allocateID(user *interfaces.User) (string, error) {
	for attempt := 0; attempt < p.maxIDAttempts; attempt++ {
		id := p.newID()
		if _, taken := user.Connections[id]; !taken && id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", interfaces.ErrConnectionIDExhausted, p.maxIDAttempts)
}

func observe(driver, op string, start time.Time, err error) {
	metrics.DriverLatency.WithLabelValues(driver, op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DriverErrorsTotal.WithLabelValues(driver, op).Inc()
	}
}
