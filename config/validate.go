package config

import (
	"fmt"
	"strings"
)

func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown LogLevel %q", cfg.LogLevel)
	}
	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown LogFormat %q", cfg.LogFormat)
	}
	if cfg.LogFile != "" && cfg.LogFileMaxSizeMB < 0 {
		return fmt.Errorf("config: LogFileMaxSizeMB < 0")
	}
	if cfg.RateLimitBurst < cfg.RateLimitPerSecond {
		return fmt.Errorf("config: RateLimitBurst < RateLimitPerSecond")
	}
	return nil
}
