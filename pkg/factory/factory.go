// Package factory loads, defaults and validates the coresim YAML
// configuration.
package factory

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/yaml.v2"

	"github.com/free5gc/coresim/internal/logger"
)

// CoresimDefaultConfigPath is used when no -c flag is given.
const CoresimDefaultConfigPath = "config/coresimcfg.yaml"

// ReadConfig reads YAML from the given path, applies defaults, and validates.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger.CfgLog.Tracef("loaded config:\n%s", spew.Sdump(cfg))

	return &cfg, nil
}
