// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

// Package config loads service configuration from defaults, an optional YAML
// file, the environment and command-line flags, in increasing precedence.
package config

import (
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// Session storage backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

const masked = "xxxxx"

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" yaml:"http"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Sessions SessionsConfig `koanf:"sessions" yaml:"sessions"`
	Routine  RoutineConfig  `koanf:"routine" yaml:"routine"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr         string        `koanf:"addr" yaml:"addr"`
	CookieSecure bool          `koanf:"cookie_secure" yaml:"cookie_secure"`
	BodyLimit    int           `koanf:"body_limit" yaml:"body_limit"`
	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// DatabaseConfig configures the Postgres pool.
type DatabaseConfig struct {
	URL             string        `koanf:"url" yaml:"url"`
	MaxConns        int32         `koanf:"max_conns" yaml:"max_conns"`
	MinConns        int32         `koanf:"min_conns" yaml:"min_conns"`
	MaxConnLifetime time.Duration `koanf:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
	RetryDelay      time.Duration `koanf:"retry_delay" yaml:"retry_delay"`
	AutoMigrate     bool          `koanf:"auto_migrate" yaml:"auto_migrate"`
}

// SessionsConfig configures session lifetime and storage.
type SessionsConfig struct {
	TTL           time.Duration `koanf:"ttl" yaml:"ttl"`
	Backend       string        `koanf:"backend" yaml:"backend"`
	RedisURL      string        `koanf:"redis_url" yaml:"redis_url"`
	PurgeInterval time.Duration `koanf:"purge_interval" yaml:"purge_interval"`
}

// RoutineConfig configures generation.
type RoutineConfig struct {
	Timeout          time.Duration `koanf:"timeout" yaml:"timeout"`
	AnthropicBaseURL string        `koanf:"anthropic_base_url" yaml:"anthropic_base_url"`
	AnthropicModel   string        `koanf:"anthropic_model" yaml:"anthropic_model"`
	OpenAIBaseURL    string        `koanf:"openai_base_url" yaml:"openai_base_url"`
	OpenAIModel      string        `koanf:"openai_model" yaml:"openai_model"`
	Temperature      float64       `koanf:"temperature" yaml:"temperature"`
	MaxTokens        int           `koanf:"max_tokens" yaml:"max_tokens"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// defaults are loaded first, keyed by koanf path.
var defaults = map[string]any{
	"http.addr":                  ":8080",
	"http.cookie_secure":         false,
	"http.body_limit":            1 << 20,
	"http.read_timeout":          "15s",
	"http.write_timeout":         "120s",
	"metrics.addr":               "127.0.0.1:9100",
	"database.max_conns":         10,
	"database.min_conns":         0,
	"database.max_conn_lifetime": "1h",
	"database.connect_timeout":   "5s",
	"database.retry_delay":       "50ms",
	"database.auto_migrate":      false,
	"sessions.ttl":               "168h",
	"sessions.backend":           BackendPostgres,
	"sessions.purge_interval":    "1h",
	"routine.timeout":            "90s",
	"routine.anthropic_base_url": "https://api.anthropic.com",
	"routine.anthropic_model":    "claude-3-5-sonnet-latest",
	"routine.openai_base_url":    "https://api.openai.com",
	"routine.openai_model":       "gpt-4o",
	"routine.temperature":        0.7,
	"routine.max_tokens":         8192,
	"log.format":                 "json",
	"log.level":                  "info",
}

// envBindings maps environment variables to koanf paths. Later entries win,
// so GYMBUDDY_DATABASE_URL overrides DATABASE_URL.
var envBindings = []struct {
	name string
	key  string
}{
	{"DATABASE_URL", "database.url"},
	{"GYMBUDDY_DATABASE_URL", "database.url"},
	{"GYMBUDDY_DATABASE_MAX_CONNS", "database.max_conns"},
	{"GYMBUDDY_DATABASE_AUTO_MIGRATE", "database.auto_migrate"},
	{"GYMBUDDY_HTTP_ADDR", "http.addr"},
	{"GYMBUDDY_HTTP_COOKIE_SECURE", "http.cookie_secure"},
	{"GYMBUDDY_METRICS_ADDR", "metrics.addr"},
	{"GYMBUDDY_SESSIONS_TTL", "sessions.ttl"},
	{"GYMBUDDY_SESSIONS_BACKEND", "sessions.backend"},
	{"GYMBUDDY_SESSIONS_REDIS_URL", "sessions.redis_url"},
	{"GYMBUDDY_ROUTINE_TIMEOUT", "routine.timeout"},
	{"GYMBUDDY_ROUTINE_ANTHROPIC_BASE_URL", "routine.anthropic_base_url"},
	{"GYMBUDDY_ROUTINE_OPENAI_BASE_URL", "routine.openai_base_url"},
	{"GYMBUDDY_LOG_FORMAT", "log.format"},
	{"GYMBUDDY_LOG_LEVEL", "log.level"},
}

// flagBindings maps command-line flag names to koanf paths.
var flagBindings = map[string]string{
	"http-addr":       "http.addr",
	"metrics-addr":    "metrics.addr",
	"database-url":    "database.url",
	"session-ttl":     "sessions.ttl",
	"session-backend": "sessions.backend",
	"redis-url":       "sessions.redis_url",
	"routine-timeout": "routine.timeout",
	"auto-migrate":    "database.auto_migrate",
	"log-format":      "log.format",
	"log-level":       "log.level",
}

// BindFlags registers every flag Load understands on fs. Flags override
// other sources only when set on the command line.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", "", "API listen address (default :8080)")
	fs.String("metrics-addr", "", "metrics/health listen address, empty string disables")
	fs.String("database-url", "", "Postgres connection URL (default $DATABASE_URL)")
	fs.Duration("session-ttl", 0, "session lifetime (default 168h)")
	fs.String("session-backend", "", "session storage: postgres or redis")
	fs.String("redis-url", "", "Redis URL for the redis session backend")
	fs.Duration("routine-timeout", 0, "routine generation timeout (default 90s)")
	fs.Bool("auto-migrate", false, "apply pending migrations on startup")
	fs.String("log-format", "", "log format: json or text")
	fs.String("log-level", "", "log level: debug, info, warn or error")
}

// Sources names where configuration comes from. Zero values are skipped.
type Sources struct {
	File   string
	Flags  *pflag.FlagSet
	Getenv func(string) string
}

// Load builds a Config from defaults, then Sources.File, then the
// environment, then flags the user changed.
func Load(src Sources) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if src.File != "" {
		if err := k.Load(file.Provider(src.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("file", src.File).Wrap(err)
		}
	}

	getenv := src.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := loadEnv(k, getenv); err != nil {
		return nil, err
	}

	if src.Flags != nil {
		p := posflag.ProviderWithFlag(src.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagBindings[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(src.Flags, f)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	return &cfg, nil
}

func loadEnv(k *koanf.Koanf, getenv func(string) string) error {
	for _, b := range envBindings {
		v := getenv(b.name)
		if v == "" {
			continue
		}
		if err := k.Set(b.key, v); err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").With("env", b.name).Wrap(err)
		}
	}
	return nil
}

// Validate checks that the configuration can start the server.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Addr == "":
		return invalid("http.addr", "is required")
	case c.Database.URL == "":
		return invalid("database.url", "is required (set DATABASE_URL)")
	case c.Database.MaxConns < 1:
		return invalid("database.max_conns", "must be at least 1")
	case c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns:
		return invalid("database.min_conns", "must be between 0 and database.max_conns")
	case c.Sessions.TTL <= 0:
		return invalid("sessions.ttl", "must be positive")
	case c.Sessions.Backend != BackendPostgres && c.Sessions.Backend != BackendRedis:
		return invalid("sessions.backend", "must be postgres or redis")
	case c.Sessions.Backend == BackendRedis && c.Sessions.RedisURL == "":
		return invalid("sessions.redis_url", "is required for the redis backend")
	case c.Sessions.PurgeInterval < 0:
		return invalid("sessions.purge_interval", "must not be negative")
	case c.Routine.Timeout <= 0:
		return invalid("routine.timeout", "must be positive")
	case c.Routine.Temperature < 0 || c.Routine.Temperature > 2:
		return invalid("routine.temperature", "must be between 0 and 2")
	case c.Log.Format != "json" && c.Log.Format != "text":
		return invalid("log.format", "must be json or text")
	}
	return nil
}

func invalid(key, reason string) error {
	return oops.Code("CONFIG_INVALID").
		With("key", key).
		Errorf("%s %s", key, reason)
}

// Redacted returns a copy with URL passwords masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Database.URL = maskURL(c.Database.URL)
	out.Sessions.RedisURL = maskURL(c.Sessions.RedisURL)
	return &out
}

// YAML renders the redacted configuration.
func (c *Config) YAML() ([]byte, error) {
	data, err := yamlv3.Marshal(c.Redacted())
	if err != nil {
		return nil, oops.Code("CONFIG_MARSHAL_FAILED").Wrap(err)
	}
	return data, nil
}

func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return masked
	}
	if u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), masked)
	}
	return u.String()
}
