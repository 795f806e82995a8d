package factory

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/free5gc/coresim/internal/model"
)

// Config is the top-level configuration loaded from config/coresimcfg.yaml.
type Config struct {
	Info      InfoSection      `yaml:"info"`
	Sbi       SbiSection       `yaml:"sbi"`
	Storage   StorageSection   `yaml:"storage"`
	Instances InstancesSection `yaml:"instances"`
	LogStream LogStreamSection `yaml:"logStream"`
	Seed      SeedSection      `yaml:"seed"`
	Logging   LoggingSection   `yaml:"logging"`
}

// ---------- info ----------

type InfoSection struct {
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// ---------- sbi ----------

type SbiSection struct {
	ListenAddr string `yaml:"listenAddr"` // e.g. "0.0.0.0:8000"
}

// ---------- storage ----------

type StorageSection struct {
	Driver   string `yaml:"driver"` // "memory" | "mongo"
	DSN      string `yaml:"dsn"`    // mongo connection string, driver-specific
	Database string `yaml:"database,omitempty"`
}

// ---------- instances ----------

// InstancesSection names the simulated NF instances. The AMF and SMF IDs are
// stamped onto the UE and PDUSession records they mutate; DefaultUpfID is the
// fallback UPF when no NFService of type UPF is registered with the NRF.
type InstancesSection struct {
	AmfID        string `yaml:"amfId"`
	SmfID        string `yaml:"smfId"`
	DefaultUpfID string `yaml:"defaultUpfId"`
}

// ---------- log stream ----------

type LogStreamSection struct {
	PollIntervalSec int `yaml:"pollIntervalSec"`
}

// ---------- seed ----------

// SeedSection holds static reference data created at startup. Slices are
// read-only to orchestration, so configuration is their natural origin;
// policies may additionally be managed at runtime through the PCF API.
type SeedSection struct {
	Slices   []model.Slice      `yaml:"slices,omitempty"`
	Policies []model.PolicyRule `yaml:"policies,omitempty"`
}

// ---------- logging ----------

type LoggingSection struct {
	Level        string `yaml:"level"` // "debug" | "info" | "warn" | "error"
	ReportCaller bool   `yaml:"reportCaller"`
}

// ---------- defaults ----------

func applyDefaults(cfg *Config) {
	// sbi
	if strings.TrimSpace(cfg.Sbi.ListenAddr) == "" {
		cfg.Sbi.ListenAddr = "0.0.0.0:8000"
	}
	// storage
	if strings.TrimSpace(cfg.Storage.Driver) == "" {
		cfg.Storage.Driver = "memory"
	}
	if strings.TrimSpace(cfg.Storage.Database) == "" {
		cfg.Storage.Database = "coresim"
	}
	// instances
	if strings.TrimSpace(cfg.Instances.AmfID) == "" {
		cfg.Instances.AmfID = "amf-1"
	}
	if strings.TrimSpace(cfg.Instances.SmfID) == "" {
		cfg.Instances.SmfID = "smf-1"
	}
	if strings.TrimSpace(cfg.Instances.DefaultUpfID) == "" {
		cfg.Instances.DefaultUpfID = "upf-1"
	}
	// log stream
	if cfg.LogStream.PollIntervalSec <= 0 {
		cfg.LogStream.PollIntervalSec = 1
	}
	// logging
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
}

// ---------- validation helpers ----------

func isValidHostPort(hostport string) bool {
	// net.SplitHostPort requires a port; check first if it contains colon
	if !strings.Contains(hostport, ":") {
		return false
	}
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return false
	}
	if strings.TrimSpace(host) == "" || strings.TrimSpace(port) == "" {
		return false
	}
	return true
}

func isValidMongoDSN(dsn string) bool {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return false
	}
	if parsed.Scheme != "mongodb" && parsed.Scheme != "mongodb+srv" {
		return false
	}
	return parsed.Host != ""
}

// ---------- Validate ----------

func validateConfig(cfg *Config) error {
	// sbi.listenAddr
	if !isValidHostPort(cfg.Sbi.ListenAddr) {
		return fmt.Errorf("sbi.listenAddr is invalid: %q", cfg.Sbi.ListenAddr)
	}

	// storage
	switch cfg.Storage.Driver {
	case "memory":
	case "mongo":
		if !isValidMongoDSN(cfg.Storage.DSN) {
			return fmt.Errorf("storage.dsn is invalid for driver mongo: %q", cfg.Storage.DSN)
		}
	default:
		return fmt.Errorf("storage.driver unsupported: %q", cfg.Storage.Driver)
	}

	// log stream
	if cfg.LogStream.PollIntervalSec <= 0 {
		return fmt.Errorf("logStream.pollIntervalSec must be > 0")
	}

	// seed.slices
	seenSlices := make(map[string]struct{}, len(cfg.Seed.Slices))
	for i, slice := range cfg.Seed.Slices {
		if strings.TrimSpace(slice.SliceID) == "" {
			return fmt.Errorf("seed.slices[%d].sliceId is empty", i)
		}
		if _, ok := seenSlices[slice.SliceID]; ok {
			return fmt.Errorf("seed.slices[%d].sliceId duplicated: %q", i, slice.SliceID)
		}
		seenSlices[slice.SliceID] = struct{}{}

		if strings.TrimSpace(slice.Sst) == "" {
			return fmt.Errorf("seed.slices[%d].sst is empty", i)
		}
	}

	// seed.policies
	seenPolicies := make(map[string]struct{}, len(cfg.Seed.Policies))
	for i, policy := range cfg.Seed.Policies {
		if strings.TrimSpace(policy.PolicyID) == "" {
			return fmt.Errorf("seed.policies[%d].policyId is empty", i)
		}
		if _, ok := seenPolicies[policy.PolicyID]; ok {
			return fmt.Errorf("seed.policies[%d].policyId duplicated: %q", i, policy.PolicyID)
		}
		seenPolicies[policy.PolicyID] = struct{}{}
	}

	// logging
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level unsupported: %q", cfg.Logging.Level)
	}
	return nil
}
