package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress          string `toml:"RPCAddress"`
	DataDir             string `toml:"DataDir"`
	GenesisFile         string `toml:"GenesisFile"`
	NetworkName         string `toml:"NetworkName"`
	LogLevel            string `toml:"LogLevel"`
	LogFormat           string `toml:"LogFormat"`
	LogFile             string `toml:"LogFile"`
	LogFileMaxSizeMB    int    `toml:"LogFileMaxSizeMB"`
	LogFileMaxBackups   int    `toml:"LogFileMaxBackups"`
	AuthSecretEnv       string `toml:"AuthSecretEnv"`
	RateLimitPerSecond  int    `toml:"RateLimitPerSecond"`
	RateLimitBurst      int    `toml:"RateLimitBurst"`
	MarkAccumulate      bool   `toml:"MarkAccumulate"`
	GraduationThreshold uint64 `toml:"GraduationThreshold"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "campus-local"
	}
	if cfg.RPCAddress == "" {
		cfg.RPCAddress = ":8080"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./campus-data"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.AuthSecretEnv == "" {
		cfg.AuthSecretEnv = "CAMPUS_RPC_SECRET"
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 50
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 100
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
