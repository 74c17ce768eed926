package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overlays PARLEY_* environment variables onto cfg. Only a small,
// documented set of knobs is exposed this way; everything else comes from
// the YAML file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PARLEY_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("PARLEY_SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("PARLEY_SERVER_ENGINE"); v != "" {
		cfg.Server.Engine = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("PARLEY_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("PARLEY_ALLOW_VOLATILE"); v != "" {
		cfg.Storage.AllowVolatile = parseBool(v)
	}
	if v := os.Getenv("PARLEY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PARLEY_MAX_BODY_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Limits.MaxBodyChars = n
		}
	}
	if v := os.Getenv("PARLEY_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Limits.PageSize = n
		}
	}
	if v := os.Getenv("PARLEY_FANOUT_QUEUE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Fanout.QueueCapacity = n
		}
	}
	if v := os.Getenv("PARLEY_FANOUT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Fanout.PublishTimeout = Duration(d)
		}
	}
	if v := os.Getenv("PARLEY_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("PARLEY_RETENTION_ENABLED"); v != "" {
		cfg.Retention.Enabled = parseBool(v)
	}
	if v := os.Getenv("PARLEY_RETENTION_CRON"); v != "" {
		cfg.Retention.Cron = v
	}
	if v := os.Getenv("PARLEY_RETENTION_PERIOD"); v != "" {
		cfg.Retention.Period = v
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
