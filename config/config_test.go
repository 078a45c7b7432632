package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/tether/dialect"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
dialect: postgres
dsn: postgres://localhost/university?sslmode=disable
pool:
  max_open: 8
  max_idle: 2
  max_lifetime: 5m
debug: true
slow_threshold: 250ms
schema: university.yaml
`))
	require.NoError(t, err)
	assert.Equal(t, dialect.Postgres, cfg.Dialect)
	assert.Equal(t, "postgres://localhost/university?sslmode=disable", cfg.DSN)
	assert.Equal(t, Pool{MaxOpen: 8, MaxIdle: 2, MaxLifetime: Duration(5 * time.Minute)}, cfg.Pool)
	assert.True(t, cfg.Debug)
	assert.Equal(t, Duration(250*time.Millisecond), cfg.SlowThreshold)
	assert.Equal(t, "university.yaml", cfg.Schema)
	require.NoError(t, cfg.Validate())
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())

	_, err = Parse([]byte("dialect: sqlite\nports: 3"))
	require.Error(t, err, "unknown keys are rejected")
	_, err = Parse([]byte("slow_threshold: soon"))
	require.Error(t, err)
}

func TestParseTOML(t *testing.T) {
	cfg, err := ParseTOML([]byte(`
dialect = "mysql"
dsn = "root:pass@tcp(localhost:3306)/university"
slow_threshold = "1s"

[pool]
max_open = 4
max_lifetime = "1h"
`))
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, cfg.Dialect)
	assert.Equal(t, 4, cfg.Pool.MaxOpen)
	assert.Equal(t, Duration(time.Hour), cfg.Pool.MaxLifetime)
	assert.Equal(t, Duration(time.Second), cfg.SlowThreshold)

	_, err = ParseTOML([]byte(`colour = "blue"`))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvDialect: dialect.MySQL,
		EnvDSN:     "root@/test",
		EnvDebug:   "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, dialect.MySQL, cfg.Dialect)
	assert.Equal(t, "root@/test", cfg.DSN)
	assert.True(t, cfg.Debug)

	env[EnvDebug] = "maybe"
	require.Error(t, Default().ApplyEnv(lookup))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"dialect", func(c *Config) { c.Dialect = "oracle" }},
		{"dsn", func(c *Config) { c.DSN = "" }},
		{"pool", func(c *Config) { c.Pool.MaxOpen = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvDSN, "")
	t.Setenv(EnvDialect, "")
	t.Setenv(EnvDebug, "")
	dir := t.TempDir()

	path := filepath.Join(dir, "tether.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dialect: sqlite\ndsn: file:test.db\nschema: schema.yaml\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file:test.db", cfg.DSN)
	assert.Equal(t, filepath.Join(dir, "schema.yaml"), cfg.Schema)

	tomlPath := filepath.Join(dir, "tether.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("dialect = \"sqlite\"\ndsn = \"file:other.db\"\n"), 0o600))
	cfg, err = Load(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, "file:other.db", cfg.DSN)

	t.Setenv(EnvDSN, "file:env.db")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file:env.db", cfg.DSN)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	require.NoError(t, os.WriteFile(path, []byte("dialect: oracle\n"), 0o600))
	_, err = Load(path)
	require.Error(t, err)
}

func TestWatch(t *testing.T) {
	t.Setenv(EnvDSN, "")
	path := filepath.Join(t.TempDir(), "tether.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dsn: file:one.db\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(cfg *Config, err error) {
			if err != nil {
				return
			}
			select {
			case got <- cfg:
			default:
			}
		})
	}()

	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte("dsn: file:two.db\n"), 0o600); err != nil {
			return false
		}
		select {
		case cfg := <-got:
			return cfg.DSN == "file:two.db"
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
