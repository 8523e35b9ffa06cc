package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/stackkit/internal/errors"
	"github.com/vango-dev/stackkit/pkg/overlay"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "stackkit.json"

	// DefaultAddr is the default inspector listen address.
	DefaultAddr = "localhost:7070"

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultRedisTTL is the default lifetime of a persisted stack in Redis.
	DefaultRedisTTL = 24 * time.Hour
)

// Persistence kinds.
const (
	PersistNone   = "none"
	PersistMemory = "memory"
	PersistS3     = "s3"
	PersistRedis  = "redis"
)

// Config represents stackkit.json.
type Config struct {
	// Addr is the inspector listen address.
	Addr string `json:"addr,omitempty"`

	// MetricsPath is the path of the Prometheus endpoint. "-" disables it.
	MetricsPath string `json:"metricsPath,omitempty"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `json:"logLevel,omitempty"`

	// LogFormat is "pretty" (default), "text" or "json".
	LogFormat string `json:"logFormat,omitempty"`

	// Overlay contains the stack defaults.
	Overlay OverlayConfig `json:"overlay,omitempty"`

	// Persist selects where the stack is stored between runs.
	Persist PersistConfig `json:"persist,omitempty"`

	configPath string
}

// OverlayConfig contains the defaults applied to every registered overlay.
type OverlayConfig struct {
	// DuplicateBehavior is allow, replace or remove.
	DuplicateBehavior string `json:"duplicateBehavior,omitempty"`

	// Limit is none or once-per-session.
	Limit string `json:"limit,omitempty"`

	// ModalExitDelay is how long closed modals stay mounted (e.g. "400ms").
	ModalExitDelay string `json:"modalExitDelay,omitempty"`

	// Preload resolves every component at startup.
	Preload bool `json:"preload,omitempty"`
}

// PersistConfig contains persistence settings.
type PersistConfig struct {
	// Kind is none, memory, s3 or redis.
	Kind string `json:"kind,omitempty"`

	// Session names the stored stack. Empty generates a new one per run.
	Session string `json:"session,omitempty"`

	// Bucket and Prefix locate objects for kind s3.
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`

	// Region overrides the AWS region for kind s3.
	Region string `json:"region,omitempty"`

	// Endpoint points kind s3 at an S3-compatible server and switches to
	// path-style addressing.
	Endpoint string `json:"endpoint,omitempty"`

	// RedisAddr is host:port for kind redis.
	RedisAddr string `json:"redisAddr,omitempty"`

	// RedisDB selects the Redis database.
	RedisDB int `json:"redisDB,omitempty"`

	// TTL is the Redis key lifetime (e.g. "24h"). "0" keeps keys forever.
	TTL string `json:"ttl,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads stackkit.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from path and validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C003").WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path))
		}
		return nil, errors.New("C001").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("C001").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error())
	}
	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Exists reports whether dir contains stackkit.json.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("C001").Wrap(err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("C001").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from, "" for defaults.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MetricsPath == "" {
		c.MetricsPath = DefaultMetricsPath
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.Overlay.DuplicateBehavior == "" {
		c.Overlay.DuplicateBehavior = string(overlay.DuplicateAllow)
	}
	if c.Overlay.Limit == "" {
		c.Overlay.Limit = string(overlay.LimitNone)
	}
	if c.Persist.Kind == "" {
		c.Persist.Kind = PersistNone
	}
	if c.Persist.Prefix == "" && c.Persist.Kind != PersistNone {
		c.Persist.Prefix = "stackkit/"
	}
}

// Validate checks every field and returns the first problem as a C002 error.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New("C002").WithDetailf(format, args...)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logLevel %q must be debug, info, warn or error", c.LogLevel)
	}
	switch c.LogFormat {
	case "pretty", "text", "json":
	default:
		return invalid("logFormat %q must be pretty, text or json", c.LogFormat)
	}
	if c.MetricsPath != "-" && !strings.HasPrefix(c.MetricsPath, "/") {
		return invalid("metricsPath %q must start with /", c.MetricsPath)
	}
	if !overlay.DuplicateBehavior(c.Overlay.DuplicateBehavior).Valid() {
		return invalid("overlay.duplicateBehavior %q must be allow, replace or remove", c.Overlay.DuplicateBehavior)
	}
	if !overlay.Limit(c.Overlay.Limit).Valid() {
		return invalid("overlay.limit %q must be none or once-per-session", c.Overlay.Limit)
	}
	if _, err := c.ModalExitDelay(); err != nil {
		return invalid("overlay.modalExitDelay %q: %v", c.Overlay.ModalExitDelay, err)
	}

	switch c.Persist.Kind {
	case PersistNone, PersistMemory:
	case PersistS3:
		if c.Persist.Bucket == "" {
			return invalid("persist.bucket is required for kind s3")
		}
	case PersistRedis:
		if c.Persist.RedisAddr == "" {
			return invalid("persist.redisAddr is required for kind redis")
		}
		if _, err := c.TTL(); err != nil {
			return invalid("persist.ttl %q: %v", c.Persist.TTL, err)
		}
	default:
		return invalid("persist.kind %q must be none, memory, s3 or redis", c.Persist.Kind)
	}
	return nil
}

// OverlayDefaults returns the overlay section as an overlay.Config.
func (c *Config) OverlayDefaults() overlay.Config {
	return overlay.Config{
		DuplicateBehavior: overlay.DuplicateBehavior(c.Overlay.DuplicateBehavior),
		Limit:             overlay.Limit(c.Overlay.Limit),
	}
}

// ModalExitDelay parses overlay.modalExitDelay. Zero means the built-in
// default.
func (c *Config) ModalExitDelay() (time.Duration, error) {
	if c.Overlay.ModalExitDelay == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Overlay.ModalExitDelay)
}

// TTL parses persist.ttl, DefaultRedisTTL when unset.
func (c *Config) TTL() (time.Duration, error) {
	switch c.Persist.TTL {
	case "":
		return DefaultRedisTTL, nil
	case "0":
		return 0, nil
	}
	return time.ParseDuration(c.Persist.TTL)
}
