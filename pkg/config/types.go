package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
	Limits    LimitsConfig    `yaml:"limits"`
	Fanout    FanoutConfig    `yaml:"fanout"`
	Retention RetentionConfig `yaml:"retention"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	// Engine selects the serving engine: "nethttp" (default) or "fasthttp".
	Engine string    `yaml:"engine"`
	TLS    TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// StorageConfig selects and tunes the persistence backend. The backend is
// chosen once at process start; see internal/app.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
	// AllowVolatile permits falling back to the in-memory backend when the
	// durable store cannot be opened at startup. Data written in this mode
	// does not survive a restart.
	AllowVolatile bool `yaml:"allow_volatile"`
}

// SecurityConfig holds rate limiting settings. Credential verification is
// owned by the upstream gateway; the core only consumes resolved identity.
type SecurityConfig struct {
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LimitsConfig bounds user-supplied payloads and page sizes.
type LimitsConfig struct {
	// MaxBodyChars bounds message body length (default 5000).
	MaxBodyChars int `yaml:"max_body_chars"`
	// PageSize caps conversation-list and message-page sizes (default 50).
	PageSize int `yaml:"page_size"`
	// PreviewChars bounds the conversation preview text (default 120).
	PreviewChars int `yaml:"preview_chars"`
	// MaxAttachment bounds ticket attachment uploads (default 8MB).
	MaxAttachment SizeBytes `yaml:"max_attachment"`
}

// FanoutConfig tunes the real-time gateway publisher.
type FanoutConfig struct {
	QueueCapacity  int      `yaml:"queue_capacity"`
	PublishTimeout Duration `yaml:"publish_timeout"`
}

// RetentionConfig drives the tombstone purge runner.
type RetentionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	Period  string `yaml:"period"`
	DryRun  bool   `yaml:"dry_run"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	host := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly
// strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing
// from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
