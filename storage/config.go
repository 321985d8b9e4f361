package storage

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ruteri/identity-gateway/interfaces"
)

// CatalogConfig is the on-disk driver catalog.
//
//	drivers:
//	  - id: local
//	    name: Local disk
//	    auto_register: true
//	    uri: file:///var/lib/gateway/data
type CatalogConfig struct {
	Drivers []DriverConfig `yaml:"drivers"`
}

// DriverConfig is one catalog entry.
type DriverConfig struct {
	interfaces.DriverInfo `yaml:",inline"`
	URI                   string `yaml:"uri"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadCatalogConfig reads a catalog file from path.
// Environment variables in the format ${VAR_NAME} are expanded.
func LoadCatalogConfig(path string) (*CatalogConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return ParseCatalogConfig(data)
}

// ParseCatalogConfig parses and validates catalog YAML.
func ParseCatalogConfig(data []byte) (*CatalogConfig, error) {
	expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})

	var cfg CatalogConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	return &cfg, nil
}

// Validate checks ids are present and unique and every URI parses.
func (c *CatalogConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Drivers))
	for i, d := range c.Drivers {
		if d.ID == "" {
			return fmt.Errorf("drivers[%d].id is required", i)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate driver id %q", d.ID)
		}
		seen[d.ID] = struct{}{}

		if _, err := interfaces.NewDriverLocation(d.URI); err != nil {
			return fmt.Errorf("drivers[%d].uri: %w", i, err)
		}
	}
	return nil
}
