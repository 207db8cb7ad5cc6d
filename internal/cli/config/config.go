package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yndnr/walletlink-go/internal/backend"
	"github.com/yndnr/walletlink-go/internal/infra/confloader"
	"github.com/yndnr/walletlink-go/internal/provider"
	"github.com/yndnr/walletlink-go/internal/storage"
	"github.com/yndnr/walletlink-go/internal/telemetry/logger"
)

// Config is the walletlink CLI configuration.
type Config struct {
	Backend  backend.Config `koanf:"backend"`
	Provider ProviderConfig `koanf:"provider"`
	Storage  storage.Config `koanf:"storage"`
	Log      logger.Config  `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`

	// Output is the default output format (table, json, yaml).
	Output string `koanf:"output"`
}

// ProviderConfig configures the wallet signer connection.
type ProviderConfig struct {
	// URL is the JSON-RPC signer endpoint. Empty means no provider.
	URL string `koanf:"url"`

	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	PollInterval    time.Duration `koanf:"poll_interval"`
	DisconnectAfter int           `koanf:"disconnect_after"`
}

// RPC returns the provider adapter configuration.
func (p ProviderConfig) RPC() provider.RPCConfig {
	return provider.RPCConfig{
		URL: p.URL,
		Watcher: provider.WatcherConfig{
			PollInterval:    p.PollInterval,
			DisconnectAfter: p.DisconnectAfter,
		},
	}
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Address is the listen address for /metrics. Empty disables it.
	Address string `koanf:"address"`
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".walletlink", "config.yaml")
}

// DefaultDataDir returns the default Badger directory.
func DefaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".walletlink", "data")
}

// Defaults returns the default configuration as dotted koanf keys.
func Defaults() map[string]any {
	return map[string]any{
		"backend.url":               "http://localhost:8080",
		"backend.timeout":           backend.DefaultTimeout.String(),
		"backend.tls.ca_file":       "",
		"backend.tls.cert_file":     "",
		"backend.tls.key_file":      "",
		"provider.url":              "",
		"provider.connect_timeout":  "30s",
		"provider.poll_interval":    provider.DefaultPollInterval.String(),
		"provider.disconnect_after": provider.DefaultDisconnectAfter,
		"storage.backend":           storage.BackendBadger,
		"storage.dir":               DefaultDataDir(),
		"storage.sync_writes":       false,
		"storage.redis_addr":        "localhost:6379",
		"storage.redis_password":    "",
		"storage.redis_db":          0,
		"storage.key_prefix":        storage.DefaultKeyPrefix,
		"storage.seal_key":          "",
		"log.level":                 "info",
		"log.format":                "text",
		"log.add_source":            false,
		"metrics.address":           "",
		"output":                    "table",
	}
}

// Load reads the configuration. A missing file at the default path is not
// an error; a missing file given explicitly is. flags holds dotted keys of
// flags the user set and overrides every other source.
func Load(path string, flags map[string]any) (*Config, *confloader.Loader, error) {
	fileOpt := confloader.WithConfigFile(path)
	if path == "" {
		fileOpt = confloader.WithOptionalConfigFile(DefaultConfigPath())
	}
	l := confloader.NewLoader(
		confloader.WithDefaults(Defaults()),
		fileOpt,
		confloader.WithOverrides(flags),
	)

	cfg := &Config{}
	if err := l.Load(cfg); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, l, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Backend.URL == "" {
		errs = append(errs, "backend.url is required")
	} else if _, err := url.Parse(c.Backend.URL); err != nil {
		errs = append(errs, fmt.Sprintf("backend.url: %v", err))
	}
	if c.Backend.Timeout < 0 {
		errs = append(errs, "backend.timeout must not be negative")
	}
	if err := c.Backend.TLS.Validate(); err != nil {
		errs = append(errs, "backend.tls: "+err.Error())
	}
	if c.Provider.ConnectTimeout < 0 || c.Provider.PollInterval < 0 {
		errs = append(errs, "provider timeouts must not be negative")
	}
	if c.Provider.DisconnectAfter < 0 {
		errs = append(errs, "provider.disconnect_after must not be negative")
	}

	switch c.Storage.Backend {
	case storage.BackendMemory:
	case storage.BackendBadger:
		if c.Storage.Dir == "" {
			errs = append(errs, "storage.dir is required for the badger backend")
		}
	case storage.BackendRedis:
		if c.Storage.RedisAddr == "" {
			errs = append(errs, "storage.redis_addr is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q is not one of memory, badger, redis", c.Storage.Backend))
	}
	if c.Storage.SealKey != "" && len(c.Storage.SealKey) != 64 {
		errs = append(errs, "storage.seal_key must be 32 bytes hex-encoded")
	}

	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.Output {
	case "table", "json", "yaml":
	default:
		errs = append(errs, fmt.Sprintf("output %q is not one of table, json, yaml", c.Output))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
