package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/identity-gateway/interfaces"
	"github.com/ruteri/identity-gateway/registry"
	"github.com/ruteri/identity-gateway/storage"
)

const userAddress = "0x1111111111111111111111111111111111111111"

type fixture struct {
	catalog  *storage.Catalog
	drivers  map[string]*storage.MockDriver
	registry *registry.MemoryRegistry
	user     *interfaces.User
}

func newFixture(t *testing.T, infos ...interfaces.DriverInfo) *fixture {
	f := &fixture{
		drivers:  map[string]*storage.MockDriver{},
		registry: registry.NewMemoryRegistry(),
	}

	entries := make([]storage.CatalogEntry, 0, len(infos))
	for _, info := range infos {
		d := new(storage.MockDriver)
		f.drivers[info.ID] = d
		entries = append(entries, storage.CatalogEntry{Info: info, Driver: d})
	}

	var err error
	f.catalog, err = storage.NewCatalog(entries, testLogger())
	require.NoError(t, err)

	f.user, err = f.registry.RegisterUser(context.Background(), userAddress, "")
	require.NoError(t, err)
	return f
}

func (f *fixture) expectRegister(id string) {
	userdata := json.RawMessage(fmt.Sprintf(`{"driver":%q}`, id))
	f.drivers[id].On("Register", mock.Anything, mock.MatchedBy(func(v interfaces.DriverUserView) bool {
		return v.DriverID == id && v.Address == userAddress
	})).Return(&interfaces.RegisterResult{Userdata: userdata}, nil)
	f.drivers[id].On("PostRegisterCheck", mock.Anything, mock.Anything, userdata).Return(nil)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func connectionFor(t *testing.T, u *interfaces.User, driver string) (string, *interfaces.Connection) {
	for id, conn := range u.Connections {
		if conn.Driver == driver {
			return id, conn
		}
	}
	t.Fatalf("no connection for driver %s", driver)
	return "", nil
}

func TestProvisionConnectsEveryAutoRegisterDriver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		interfaces.DriverInfo{ID: "a", Name: "Driver A", AutoRegister: true},
		interfaces.DriverInfo{ID: "manual", Name: "Manual"},
		interfaces.DriverInfo{ID: "b", Name: "Driver B", AutoRegister: true},
	)
	f.expectRegister("a")
	f.expectRegister("b")

	user, err := New(f.catalog, f.registry, testLogger()).Provision(ctx, f.user)
	require.NoError(t, err)

	require.Len(t, user.Connections, 2)
	aID, a := connectionFor(t, user, "a")
	_, b := connectionFor(t, user, "b")
	assert.Equal(t, "Driver A", a.Name)
	assert.Equal(t, "Driver B", b.Name)
	assert.JSONEq(t, `{"driver":"a"}`, string(a.Config))
	assert.Equal(t, []string{userAddress}, a.Buckets)
	assert.Equal(t, aID, user.DefaultConnection)
	assert.Zero(t, user.CountDriver("manual"))

	stored, err := f.registry.GetUser(ctx, userAddress)
	require.NoError(t, err)
	assert.Equal(t, user, stored)

	// Input record is untouched
	assert.Empty(t, f.user.Connections)
	f.drivers["manual"].AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestProvisionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		interfaces.DriverInfo{ID: "a", Name: "A", AutoRegister: true},
		interfaces.DriverInfo{ID: "b", Name: "B", AutoRegister: true},
	)
	f.expectRegister("a")
	f.expectRegister("b")

	p := New(f.catalog, f.registry, testLogger())
	first, err := p.Provision(ctx, f.user)
	require.NoError(t, err)
	assert.False(t, p.Pending(first))

	second, err := p.Provision(ctx, first)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	f.drivers["a"].AssertNumberOfCalls(t, "Register", 1)
	f.drivers["b"].AssertNumberOfCalls(t, "Register", 1)
}

func TestProvisionKeepsDefaultConnection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		interfaces.DriverInfo{ID: "a", Name: "A", AutoRegister: true},
		interfaces.DriverInfo{ID: "b", Name: "B", AutoRegister: true},
	)
	f.expectRegister("a")
	f.expectRegister("b")

	f.user.Connections["existing"] = &interfaces.Connection{Driver: "b", Name: "B", Buckets: []string{userAddress}}
	f.user.DefaultConnection = "existing"

	user, err := New(f.catalog, f.registry, testLogger()).Provision(ctx, f.user)
	require.NoError(t, err)

	assert.Len(t, user.Connections, 2)
	assert.Equal(t, "existing", user.DefaultConnection)
	f.drivers["b"].AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestProvisionDisambiguatesNames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, interfaces.DriverInfo{ID: "a", Name: "A", AutoRegister: true})
	f.expectRegister("a")

	p := New(f.catalog, f.registry, testLogger())
	user := f.user.Clone()
	user.Connections["first"] = &interfaces.Connection{Driver: "a", Name: "A"}
	user.Connections["second"] = &interfaces.Connection{Driver: "a", Name: "A-2"}
	user.DefaultConnection = "first"

	require.NoError(t, p.connect(ctx, user, interfaces.DriverInfo{ID: "a", Name: "A", AutoRegister: true}))

	require.Equal(t, 3, user.CountDriver("a"))
	names := map[string]bool{}
	for _, conn := range user.Connections {
		names[conn.Name] = true
	}
	assert.Equal(t, map[string]bool{"A": true, "A-2": true, "A-3": true}, names)
	assert.Equal(t, "first", user.DefaultConnection)
}

func TestProvisionSuffixCountsExistingConnections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, interfaces.DriverInfo{ID: "a", Name: "A", AutoRegister: true})
	f.expectRegister("a")

	p := New(f.catalog, f.registry, testLogger())
	updated := f.user.Clone()
	updated.Connections["x"] = &interfaces.Connection{Driver: "a", Name: "A"}

	// Connection bound to a is present so the pass is a no-op
	out, err := p.Provision(ctx, updated)
	require.NoError(t, err)
	assert.Len(t, out.Connections, 1)

	conn := &interfaces.Connection{}
	require.NoError(t, p.connect(ctx, out, interfaces.DriverInfo{ID: "a", Name: "A"}))
	for id, c := range out.Connections {
		if id != "x" {
			conn = c
		}
	}
	assert.Equal(t, "A-2", conn.Name)
}

func TestProvisionAbortsPassOnDriverFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		interfaces.DriverInfo{ID: "a", Name: "A", AutoRegister: true},
		interfaces.DriverInfo{ID: "b", Name: "B", AutoRegister: true},
		interfaces.DriverInfo{ID: "c", Name: "C", AutoRegister: true},
	)
	f.expectRegister("a")
	f.drivers["b"].On("Register", mock.Anything, mock.Anything).Return(nil, errors.New("backend down"))

	p := New(f.catalog, f.registry, testLogger())
	user, err := p.Provision(ctx, f.user)

	var driverErr *interfaces.DriverError
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, "b", driverErr.Driver)
	assert.Equal(t, "register", driverErr.Op)
	f.drivers["c"].AssertNotCalled(t, "Register", mock.Anything, mock.Anything)

	// Completed connections are persisted
	require.Len(t, user.Connections, 1)
	aID, _ := connectionFor(t, user, "a")
	assert.Equal(t, aID, user.DefaultConnection)

	stored, err := f.registry.GetUser(ctx, userAddress)
	require.NoError(t, err)
	assert.Equal(t, user, stored)
	assert.True(t, p.Pending(stored))

	// A later pass retries only the missing drivers
	f.drivers["b"].ExpectedCalls = nil
	f.expectRegister("b")
	f.expectRegister("c")
	user, err = p.Provision(ctx, stored)
	require.NoError(t, err)
	assert.Len(t, user.Connections, 3)
	assert.Equal(t, aID, user.DefaultConnection)
	f.drivers["a"].AssertNumberOfCalls(t, "Register", 1)
}

func TestProvisionRollsBackFailedCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		interfaces.DriverInfo{ID: "a", Name: "A", AutoRegister: true},
		interfaces.DriverInfo{ID: "b", Name: "B", AutoRegister: true},
	)
	userdata := json.RawMessage(`{"path":"/a"}`)
	f.drivers["a"].On("Register", mock.Anything, mock.Anything).Return(&interfaces.RegisterResult{Userdata: userdata}, nil)
	f.drivers["a"].On("PostRegisterCheck", mock.Anything, mock.Anything, userdata).Return(errors.New("not writable"))
	f.drivers["a"].On("Unregister", mock.Anything, mock.MatchedBy(func(v interfaces.ConnectionView) bool {
		return v.Driver == "a" && v.UserAddress == userAddress
	})).Return(nil)

	user, err := New(f.catalog, f.registry, testLogger()).Provision(ctx, f.user)

	var driverErr *interfaces.DriverError
	require.ErrorAs(t, err, &driverErr)
	assert.Equal(t, "post_register_check", driverErr.Op)
	assert.Empty(t, user.Connections)
	assert.Empty(t, user.DefaultConnection)
	f.drivers["a"].AssertExpectations(t)
	f.drivers["b"].AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestProvisionDriverWithoutCheckAndUserdata(t *testing.T) {
	ctx := context.Background()
	basic := new(storage.MockBasicDriver)
	basic.On("Register", mock.Anything, mock.Anything).Return(&interfaces.RegisterResult{}, nil)

	catalog, err := storage.NewCatalog([]storage.CatalogEntry{
		{Info: interfaces.DriverInfo{ID: "plain", Name: "Plain", AutoRegister: true}, Driver: basic},
	}, testLogger())
	require.NoError(t, err)

	reg := registry.NewMemoryRegistry()
	user, err := reg.RegisterUser(ctx, userAddress, "")
	require.NoError(t, err)

	user, err = New(catalog, reg, testLogger()).Provision(ctx, user)
	require.NoError(t, err)

	_, conn := connectionFor(t, user, "plain")
	assert.Nil(t, conn.Config)
}

func TestProvisionRetriesIDCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, interfaces.DriverInfo{ID: "a", Name: "A", AutoRegister: true})
	f.expectRegister("a")

	f.user.Connections["taken"] = &interfaces.Connection{Driver: "other", Name: "Other"}

	ids := []string{"taken", "taken", "fresh"}
	gen := func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	user, err := New(f.catalog, f.registry, testLogger(), WithIDGenerator(gen)).Provision(ctx, f.user)
	require.NoError(t, err)

	assert.Equal(t, "other", user.Connections["taken"].Driver)
	assert.Equal(t, "a", user.Connections["fresh"].Driver)
}

func TestProvisionFailsWhenIDsExhausted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, interfaces.DriverInfo{ID: "a", Name: "A", AutoRegister: true})
	f.user.Connections["same"] = &interfaces.Connection{Driver: "other"}

	calls := 0
	gen := func() string {
		calls++
		return "same"
	}

	user, err := New(f.catalog, f.registry, testLogger(), WithIDGenerator(gen), WithMaxIDAttempts(3)).Provision(ctx, f.user)
	assert.ErrorIs(t, err, interfaces.ErrConnectionIDExhausted)
	assert.Equal(t, 3, calls)
	assert.Len(t, user.Connections, 1)
	assert.Equal(t, "other", user.Connections["same"].Driver)
	f.drivers["a"].AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestProvisionReportsPersistFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, interfaces.DriverInfo{ID: "a", Name: "A", AutoRegister: true})
	f.expectRegister("a")

	reg := new(registry.MockUserRegistry)
	reg.On("UpdateUser", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	_, err := New(f.catalog, reg, testLogger()).Provision(ctx, f.user)
	assert.ErrorContains(t, err, "disk full")
	reg.AssertExpectations(t)
}

func TestProvisionUnknownDriver(t *testing.T) {
	ctx := context.Background()
	catalog := &staticCatalog{infos: []interfaces.DriverInfo{{ID: "ghost", Name: "Ghost", AutoRegister: true}}}
	reg := registry.NewMemoryRegistry()
	user, err := reg.RegisterUser(ctx, userAddress, "")
	require.NoError(t, err)

	_, err = New(catalog, reg, testLogger()).Provision(ctx, user)
	assert.ErrorIs(t, err, interfaces.ErrDriverNotFound)
}

type staticCatalog struct {
	infos []interfaces.DriverInfo
}

func (c *staticCatalog) Info() []interfaces.DriverInfo { return c.infos }

func (c *staticCatalog) Get(id string) (interfaces.Driver, error) {
	return nil, interfaces.ErrDriverNotFound
}
