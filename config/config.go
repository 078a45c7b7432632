// Package config loads session configuration from YAML or TOML files and
// the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/syssam/tether/dialect"
)

// Environment variables overriding file values.
const (
	EnvDialect = "TETHER_DIALECT"
	EnvDSN     = "TETHER_DSN"
	EnvDebug   = "TETHER_DEBUG"
)

// DefaultSlowThreshold is the slow statement threshold when none is configured.
const DefaultSlowThreshold = 100 * time.Millisecond

// Config is the configuration of a session.
type Config struct {
	// Dialect is one of dialect.SQLite, dialect.MySQL, or dialect.Postgres.
	Dialect string `yaml:"dialect" toml:"dialect"`
	// DSN is passed to the database/sql driver of the dialect.
	DSN  string `yaml:"dsn" toml:"dsn"`
	Pool Pool   `yaml:"pool" toml:"pool"`
	// Debug logs every statement.
	Debug bool `yaml:"debug" toml:"debug"`
	// SlowThreshold is the duration above which statements are logged as slow.
	SlowThreshold Duration `yaml:"slow_threshold" toml:"slow_threshold"`
	// Schema is the path of a definitions file describing dynamic entities.
	Schema string `yaml:"schema" toml:"schema"`
}

// Pool configures the connection pool.
type Pool struct {
	MaxOpen     int      `yaml:"max_open" toml:"max_open"`
	MaxIdle     int      `yaml:"max_idle" toml:"max_idle"`
	MaxLifetime Duration `yaml:"max_lifetime" toml:"max_lifetime"`
}

// Duration is a time.Duration written as "1m30s" in configuration files.
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the configuration used when no file is given: an
// in-memory SQLite database.
func Default() *Config {
	return &Config{
		Dialect:       dialect.SQLite,
		DSN:           "file::memory:?cache=shared",
		SlowThreshold: Duration(DefaultSlowThreshold),
	}
}

// Load reads the configuration file at path, applies environment overrides
// and validates the result. Files ending in .toml are decoded as TOML, all
// others as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var cfg *Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		cfg, err = ParseTOML(data)
	} else {
		cfg, err = Parse(data)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.Schema != "" && !filepath.IsAbs(cfg.Schema) {
		cfg.Schema = filepath.Join(filepath.Dir(path), cfg.Schema)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a YAML configuration over the defaults. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ParseTOML decodes a TOML configuration over the defaults. Unknown keys
// are rejected.
func ParseTOML(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return cfg, nil
}

// ApplyEnv overrides the dialect, DSN and debug flag from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDialect); ok && v != "" {
		c.Dialect = v
	}
	if v, ok := lookup(EnvDSN); ok && v != "" {
		c.DSN = v
	}
	if v, ok := lookup(EnvDebug); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvDebug, err)
		}
		c.Debug = b
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case !dialect.Valid(c.Dialect):
		return fmt.Errorf("config: unknown dialect %q", c.Dialect)
	case c.DSN == "":
		return errors.New("config: empty dsn")
	case c.Pool.MaxOpen < 0 || c.Pool.MaxIdle < 0 || c.Pool.MaxLifetime < 0:
		return errors.New("config: negative pool setting")
	}
	return nil
}
