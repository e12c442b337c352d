package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/aleksaelezovic/quadstore/pkg/rdf"
	"github.com/aleksaelezovic/quadstore/pkg/store"
)

// EnvConfigPath names the environment variable holding the config file path
const EnvConfigPath = "QUADSTORE_CONFIG"

// Supported storage backends
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config holds all quadstore configuration
type Config struct {
	Storage StorageConfig `yaml:"storage"`

	// Context used for triples added without one
	DefaultContext string `yaml:"default_context"`

	// How often a write is retried after a transaction conflict
	MaxRetries int `yaml:"max_retries"`

	Cache CacheConfig `yaml:"cache"`

	// Extra namespace bindings seeded on open, next to xml/rdf/rdfs/xsd
	Namespaces []store.Binding `yaml:"namespaces"`

	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type StorageConfig struct {
	Backend  string       `yaml:"backend"` // badger, sqlite
	Path     string       `yaml:"path"`
	InMemory bool         `yaml:"in_memory"` // badger only
	Badger   BadgerConfig `yaml:"badger"`
}

type BadgerConfig struct {
	// Memtable size in bytes; 0 keeps Badger's 64 MiB. One write
	// transaction holds about 15% of it, roughly 15k quads at the default.
	MemTableSize int64 `yaml:"mem_table_size"`
}

type CacheConfig struct {
	// Decoded terms kept in memory; 0 disables the cache
	MaxTerms int64 `yaml:"max_terms"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendBadger,
			Path:    "data/quadstore",
		},
		DefaultContext: store.DefaultContextIRI,
		MaxRetries:     store.DefaultMaxRetries,
		Cache: CacheConfig{
			MaxTerms: 100000,
		},
		Namespaces: []store.Binding{
			{Prefix: "owl", URI: rdf.OWLNamespace},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Namespace: "quadstore",
		},
	}
}

// Load reads the config file at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - path is operator supplied
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the config as YAML
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the config to path as YAML, creating its directory
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if backend := os.Getenv("QUADSTORE_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if path := os.Getenv("QUADSTORE_PATH"); path != "" {
		c.Storage.Path = path
	}
	if level := os.Getenv("QUADSTORE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendBadger:
		if c.Storage.Path == "" && !c.Storage.InMemory {
			errs = append(errs, errors.New("storage.path is required unless storage.in_memory is set"))
		}
	case BackendSQLite:
		if c.Storage.InMemory {
			errs = append(errs, errors.New("storage.in_memory is only supported by the badger backend"))
		}
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}

	if c.DefaultContext == "" {
		errs = append(errs, errors.New("default_context must not be empty"))
	} else if err := rdf.ValidateTerm(rdf.NewURIRef(c.DefaultContext)); err != nil {
		errs = append(errs, fmt.Errorf("default_context: %w", err))
	}

	if c.Storage.Badger.MemTableSize < 0 {
		errs = append(errs, fmt.Errorf("storage.badger.mem_table_size must not be negative, got %d", c.Storage.Badger.MemTableSize))
	}

	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries))
	}
	if c.Cache.MaxTerms < 0 {
		errs = append(errs, fmt.Errorf("cache.max_terms must not be negative, got %d", c.Cache.MaxTerms))
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	for i, b := range c.Namespaces {
		if b.URI == "" {
			errs = append(errs, fmt.Errorf("namespaces[%d]: uri must not be empty", i))
		}
		for _, fixed := range store.FixedNamespaces {
			if b.Prefix == fixed.Prefix {
				errs = append(errs, fmt.Errorf("namespaces[%d]: prefix %q is reserved", i, b.Prefix))
			}
		}
	}

	return errors.Join(errs...)
}
