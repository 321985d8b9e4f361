package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/identity-gateway/interfaces"
)

func TestCatalogOrderAndLookup(t *testing.T) {
	a, b := new(MockDriver), new(MockBasicDriver)

	catalog, err := NewCatalog([]CatalogEntry{
		{Info: interfaces.DriverInfo{ID: "b", Name: "B", AutoRegister: true}, Driver: a},
		{Info: interfaces.DriverInfo{ID: "a"}, Driver: b},
	}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []interfaces.DriverInfo{
		{ID: "b", Name: "B", AutoRegister: true},
		{ID: "a", Name: "a"},
	}, catalog.Info())

	got, err := catalog.Get("a")
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = catalog.Get("missing")
	assert.ErrorIs(t, err, interfaces.ErrDriverNotFound)

	// Info returns a copy
	catalog.Info()[0].Name = "changed"
	assert.Equal(t, "B", catalog.Info()[0].Name)
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]CatalogEntry{
		{Info: interfaces.DriverInfo{ID: "x"}, Driver: new(MockDriver)},
		{Info: interfaces.DriverInfo{ID: "x"}, Driver: new(MockDriver)},
	}, testLogger())
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewCatalog([]CatalogEntry{{Driver: new(MockDriver)}}, testLogger())
	assert.Error(t, err)
}

type availableDriver struct {
	MockBasicDriver
	up bool
}

func (d *availableDriver) Available(ctx context.Context) bool { return d.up }

func TestCatalogUnavailable(t *testing.T) {
	catalog, err := NewCatalog([]CatalogEntry{
		{Info: interfaces.DriverInfo{ID: "up"}, Driver: &availableDriver{up: true}},
		{Info: interfaces.DriverInfo{ID: "down"}, Driver: &availableDriver{up: false}},
		{Info: interfaces.DriverInfo{ID: "plain"}, Driver: new(MockDriver)},
	}, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"down"}, catalog.Unavailable(context.Background()))
}

func TestParseCatalogConfig(t *testing.T) {
	t.Setenv("GATEWAY_TEST_DATA_DIR", "/tmp/gateway-data")

	cfg, err := ParseCatalogConfig([]byte(`
drivers:
  - id: local
    name: Local disk
    auto_register: true
    uri: file://${GATEWAY_TEST_DATA_DIR}
  - id: archive
    name: Archive
    uri: s3://archive-bucket/users?region=eu-west-1
`))
	require.NoError(t, err)
	require.Len(t, cfg.Drivers, 2)

	assert.Equal(t, interfaces.DriverInfo{ID: "local", Name: "Local disk", AutoRegister: true}, cfg.Drivers[0].DriverInfo)
	assert.Equal(t, "file:///tmp/gateway-data", cfg.Drivers[0].URI)
	assert.False(t, cfg.Drivers[1].AutoRegister)
}

func TestParseCatalogConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "drivers:\n  - uri: file:///tmp\n"},
		{"duplicate id", "drivers:\n  - id: a\n    uri: file:///tmp\n  - id: a\n    uri: file:///tmp\n"},
		{"bad scheme", "drivers:\n  - id: a\n    uri: ftp://host/\n"},
		{"bad yaml", "drivers: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalogConfig([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogBuildsFileDrivers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
drivers:
  - id: local
    auto_register: true
    uri: file://`+filepath.Join(dir, "data")+`
`), 0600))

	catalog, err := LoadCatalog(path, testLogger())
	require.NoError(t, err)

	driver, err := catalog.Get("local")
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, driver)
	assert.Empty(t, catalog.Unavailable(context.Background()))
}

func TestDriverFactory(t *testing.T) {
	factory := NewDriverFactory(testLogger())

	tests := []struct {
		uri      string
		expected interface{}
		wantErr  bool
	}{
		{uri: "file://" + t.TempDir(), expected: &FileBackend{}},
		{uri: "s3://key:secret@bucket/prefix?region=eu-west-1&endpoint=http://localhost:9000", expected: &S3Backend{}},
		{uri: "ipfs://127.0.0.1:5001/root", expected: &IPFSBackend{}},
		{uri: "vault://127.0.0.1:8200/secret/gateway?token=t", expected: &VaultBackend{}},
		{uri: "s3:///prefix", wantErr: true},
		{uri: "vault:///secret", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			loc, err := interfaces.NewDriverLocation(tt.uri)
			require.NoError(t, err)

			driver, err := factory.DriverFor(loc)
			if tt.wantErr {
				assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.expected, driver)
		})
	}
}

func TestFactoryParsesIPFSAndVaultLocations(t *testing.T) {
	factory := NewDriverFactory(testLogger())

	loc, err := interfaces.NewDriverLocation("ipfs://node")
	require.NoError(t, err)
	driver, err := factory.DriverFor(loc)
	require.NoError(t, err)
	ipfs := driver.(*IPFSBackend)
	assert.Equal(t, "node", ipfs.host)
	assert.Equal(t, "5001", ipfs.port)
	assert.Equal(t, "/gateway", ipfs.root)

	t.Setenv("VAULT_TOKEN", "from-env")
	loc, err = interfaces.NewDriverLocation("vault://vault:8200/kv/apps/gw?tls=true")
	require.NoError(t, err)
	driver, err = factory.DriverFor(loc)
	require.NoError(t, err)
	vault := driver.(*VaultBackend)
	assert.Equal(t, "https://vault:8200", vault.address)
	assert.Equal(t, "kv", vault.mountPath)
	assert.Equal(t, "apps/gw", vault.dataPath)
}

func TestMockDriverSatisfiesInterfaces(t *testing.T) {
	var d interfaces.Driver = new(MockDriver)
	_, ok := d.(interfaces.PostRegisterChecker)
	assert.True(t, ok)

	var basic interfaces.Driver = new(MockBasicDriver)
	_, ok = basic.(interfaces.PostRegisterChecker)
	assert.False(t, ok)

	m := new(MockDriver)
	m.On("Unregister", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, m.Unregister(context.Background(), interfaces.ConnectionView{}))
	m.AssertExpectations(t)
}
