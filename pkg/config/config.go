package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EffectiveConfigResult bundles the merged configuration with the values
// the server actually uses, plus where they came from (for the banner).
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Effective merges, in increasing precedence: defaults, the config file
// (if any), PARLEY_* env vars, and explicit flag values. Flags passed as
// empty strings are treated as unset.
func Effective(configPath, flagAddr, flagDB string) (EffectiveConfigResult, error) {
	cfg := &Config{}
	source := "defaults"
	if configPath != "" {
		c, err := LoadFile(configPath)
		if err != nil {
			return EffectiveConfigResult{}, err
		}
		cfg = c
		source = "file:" + configPath
	}
	applyEnv(cfg)
	applyDefaults(cfg)

	addr := cfg.Addr()
	if flagAddr != "" {
		addr = flagAddr
		source += "+flags"
	}
	db := cfg.Storage.DBPath
	if flagDB != "" {
		db = flagDB
	}
	return EffectiveConfigResult{Config: cfg, Addr: addr, DBPath: db, Source: source}, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Engine == "" {
		cfg.Server.Engine = "nethttp"
	}
	if cfg.Limits.MaxBodyChars == 0 {
		cfg.Limits.MaxBodyChars = 5000
	}
	if cfg.Limits.PageSize == 0 {
		cfg.Limits.PageSize = 50
	}
	if cfg.Limits.PreviewChars == 0 {
		cfg.Limits.PreviewChars = 120
	}
	if cfg.Limits.MaxAttachment == 0 {
		cfg.Limits.MaxAttachment = 8 << 20
	}
	if cfg.Fanout.QueueCapacity == 0 {
		cfg.Fanout.QueueCapacity = 4096
	}
	if cfg.Fanout.PublishTimeout == 0 {
		cfg.Fanout.PublishTimeout = Duration(2_000_000_000) // 2s
	}
	if cfg.Security.RateLimit.RPS == 0 {
		cfg.Security.RateLimit.RPS = 25
	}
	if cfg.Security.RateLimit.Burst == 0 {
		cfg.Security.RateLimit.Burst = 50
	}
	if cfg.Retention.Period == "" {
		cfg.Retention.Period = "720h"
	}
}
