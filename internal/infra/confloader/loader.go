package confloader

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "WALLETLINK_"

// Source names the layer that set a key.
type Source string

const (
	SourceDefault  Source = "default"
	SourceFile     Source = "file"
	SourceEnv      Source = "env"
	SourceOverride Source = "flag"
)

// Loader layers defaults, a YAML file, the environment and overrides, in
// that order, and remembers which layer set each key.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	optional  bool
	defaults  map[string]any
	overrides map[string]any
	sources   map[string]Source
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file. Load fails if it is missing.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
		l.optional = false
	}
}

// WithOptionalConfigFile sets a configuration file that may be absent.
func WithOptionalConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
		l.optional = true
	}
}

// WithDefaults sets the lowest layer, as dotted keys.
func WithDefaults(m map[string]any) Option {
	return func(l *Loader) {
		l.defaults = m
	}
}

// WithOverrides sets the highest layer, as dotted keys. The CLI passes
// the flags the user set.
func WithOverrides(m map[string]any) Option {
	return func(l *Loader) {
		l.overrides = m
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		sources:   make(map[string]Source),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every layer and unmarshals the result into target.
func (l *Loader) Load(target any) error {
	if len(l.defaults) > 0 {
		if err := l.merge(SourceDefault, mapProvider(l.defaults), nil); err != nil {
			return fmt.Errorf("load defaults: %w", err)
		}
	}

	if l.filePath != "" {
		_, err := os.Stat(l.filePath)
		switch {
		case err == nil:
			if err := l.merge(SourceFile, file.Provider(l.filePath), yaml.Parser()); err != nil {
				return fmt.Errorf("load config file %s: %w", l.filePath, err)
			}
		case l.optional && errors.Is(err, os.ErrNotExist):
			l.filePath = ""
		default:
			return fmt.Errorf("config file %s: %w", l.filePath, err)
		}
	}

	if err := l.merge(SourceEnv, env.Provider(l.envPrefix, ".", l.envKey()), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if len(l.overrides) > 0 {
		if err := l.merge(SourceOverride, mapProvider(l.overrides), nil); err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
	}

	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// merge loads one layer into its own koanf instance so the keys it set
// can be attributed, then merges it over the layers below.
func (l *Loader) merge(src Source, p koanf.Provider, parser koanf.Parser) error {
	layer := koanf.New(".")
	if err := layer.Load(p, parser); err != nil {
		return err
	}
	for _, key := range layer.Keys() {
		l.sources[key] = src
	}
	return l.k.Merge(layer)
}

// envKey maps WALLETLINK_STORAGE_KEY_PREFIX to storage.key_prefix. A
// variable matching a key already known from a lower layer (dots read as
// underscores) sets that key; otherwise every underscore becomes a dot.
func (l *Loader) envKey() func(string) string {
	known := make(map[string]string)
	for _, k := range l.k.Keys() {
		known[strings.ReplaceAll(k, ".", "_")] = k
	}
	return func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		if k, ok := known[s]; ok {
			return k
		}
		return strings.ReplaceAll(s, "_", ".")
	}
}

// FilePath returns the configuration file that was read, or "" when an
// optional file was absent.
func (l *Loader) FilePath() string {
	return l.filePath
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// Source reports which layer set key, or "" if no layer did.
func (l *Loader) Source(key string) Source {
	return l.sources[key]
}

// Keys returns all configuration keys, sorted.
func (l *Loader) Keys() []string {
	keys := l.k.Keys()
	sort.Strings(keys)
	return keys
}
