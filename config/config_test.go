package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, "campus-local", cfg.NetworkName)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "CAMPUS_RPC_SECRET", cfg.AuthSecretEnv)
	require.Equal(t, 50, cfg.RateLimitPerSecond)
	require.Equal(t, 100, cfg.RateLimitBurst)

	// The defaults were persisted and load back identically.
	_, err = os.Stat(path)
	require.NoError(t, err)
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("RPCAddress = \":9090\"\nMarkAccumulate = true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.RPCAddress)
	require.True(t, cfg.MarkAccumulate)
	require.Equal(t, "./campus-data", cfg.DataDir)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"rotation size", func(c *Config) { c.LogFile = "campus.log"; c.LogFileMaxSizeMB = -1 }},
		{"burst below rate", func(c *Config) { c.RateLimitPerSecond = 100; c.RateLimitBurst = 10 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tc.mutate(cfg)
			require.Error(t, Validate(cfg))
		})
	}
}

func TestLoadGenesis(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "genesis.yaml")
	raw := `admin: cam1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq
balances:
  - address: cam1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq
    amount: "1000"
teachers:
  - cam1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq
students: []
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	gen, err := LoadGenesis(path)
	require.NoError(t, err)
	require.Len(t, gen.Balances, 1)
	require.Equal(t, "1000", gen.Balances[0].Amount)
	require.Len(t, gen.Teachers, 1)
	require.Empty(t, gen.Students)

	_, err = LoadGenesis(filepath.Join(dir, "absent.yaml"))
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("balances: []\n"), 0o644))
	_, err = LoadGenesis(empty)
	require.Error(t, err)
}
