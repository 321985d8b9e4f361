package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ruteri/identity-gateway/interfaces"
)

// CatalogEntry pairs driver metadata with its operational handle.
type CatalogEntry struct {
	Info   interfaces.DriverInfo
	Driver interfaces.Driver
}

// Catalog is an ordered, immutable set of configured drivers.
type Catalog struct {
	entries []CatalogEntry
	byID    map[string]int
	log     *slog.Logger
}

// availabilityChecker is implemented by drivers that can probe their backend.
type availabilityChecker interface {
	Available(ctx context.Context) bool
}

// NewCatalog creates a catalog preserving the order of entries.
func NewCatalog(entries []CatalogEntry, log *slog.Logger) (*Catalog, error) {
	c := &Catalog{
		entries: make([]CatalogEntry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
		log:     log,
	}

	for _, e := range entries {
		if e.Info.ID == "" {
			return nil, fmt.Errorf("catalog entry without id")
		}
		if _, dup := c.byID[e.Info.ID]; dup {
			return nil, fmt.Errorf("duplicate driver id %q", e.Info.ID)
		}
		if e.Info.Name == "" {
			e.Info.Name = e.Info.ID
		}
		c.byID[e.Info.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}

	return c, nil
}

// BuildCatalog instantiates every driver of a catalog config.
func BuildCatalog(cfg *CatalogConfig, factory *DriverFactory, log *slog.Logger) (*Catalog, error) {
	entries := make([]CatalogEntry, 0, len(cfg.Drivers))
	for _, d := range cfg.Drivers {
		loc, err := interfaces.NewDriverLocation(d.URI)
		if err != nil {
			return nil, fmt.Errorf("driver %s: %w", d.ID, err)
		}

		driver, err := factory.DriverFor(loc)
		if err != nil {
			return nil, fmt.Errorf("driver %s: %w", d.ID, err)
		}

		log.Info("Configured storage driver",
			slog.String("id", d.ID),
			slog.String("scheme", loc.Scheme),
			slog.Bool("autoRegister", d.AutoRegister))
		entries = append(entries, CatalogEntry{Info: d.DriverInfo, Driver: driver})
	}

	return NewCatalog(entries, log)
}

// LoadCatalog reads a catalog file and instantiates its drivers.
func LoadCatalog(path string, log *slog.Logger) (*Catalog, error) {
	cfg, err := LoadCatalogConfig(path)
	if err != nil {
		return nil, err
	}
	return BuildCatalog(cfg, NewDriverFactory(log), log)
}

// Info returns the metadata of every configured driver in catalog order.
func (c *Catalog) Info() []interfaces.DriverInfo {
	infos := make([]interfaces.DriverInfo, len(c.entries))
	for i, e := range c.entries {
		infos[i] = e.Info
	}
	return infos
}

// Get resolves a driver id.
func (c *Catalog) Get(driverID string) (interfaces.Driver, error) {
	i, ok := c.byID[driverID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrDriverNotFound, driverID)
	}
	return c.entries[i].Driver, nil
}

// Unavailable probes every driver that supports it and returns the ids of
// those whose backend is unreachable.
func (c *Catalog) Unavailable(ctx context.Context) []string {
	var down []string
	for _, e := range c.entries {
		checker, ok := e.Driver.(availabilityChecker)
		if !ok {
			continue
		}
		if !checker.Available(ctx) {
			c.log.Warn("Storage driver unavailable", slog.String("id", e.Info.ID))
			down = append(down, e.Info.ID)
		}
	}
	return down
}
