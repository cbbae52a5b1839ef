package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings backends selectable with `backend`.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds the server configuration.
type Config struct {
	Addr                   string  `yaml:"addr"`
	Backend                string  `yaml:"backend"`
	ConfigFile             string  `yaml:"config_file"`
	SQLiteDSN              string  `yaml:"sqlite_dsn"`
	DatabaseURL            string  `yaml:"database_url"`
	DefaultLanguage        string  `yaml:"default_language"`
	RateLimitRPS           float64 `yaml:"rate_limit_rps"`
	RateLimitBurst         int     `yaml:"rate_limit_burst"`
	LoginAttemptsPerMinute int     `yaml:"login_attempts_per_minute"`
	TrustedProxies         string  `yaml:"trusted_proxies"`
	SentryDSN              string  `yaml:"sentry_dsn"`
	SentryEnvironment      string  `yaml:"sentry_environment"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Addr:                   ":8080",
		Backend:                BackendFile,
		ConfigFile:             "lam.yaml",
		SQLiteDSN:              "file:lamconf.db?cache=shared&_fk=1",
		DefaultLanguage:        "en",
		RateLimitRPS:           100,
		RateLimitBurst:         200,
		LoginAttemptsPerMinute: 5,
		SentryEnvironment:      "production",
	}
}

// LoadConfig loads configuration from a YAML file and environment variables.
// Environment variables override YAML values. path may be empty.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := []struct {
		env string
		dst *string
	}{
		{"LAMCONF_ADDR", &c.Addr},
		{"LAMCONF_BACKEND", &c.Backend},
		{"LAMCONF_CONFIG_FILE", &c.ConfigFile},
		{"SQLITE_DSN", &c.SQLiteDSN},
		{"DATABASE_URL", &c.DatabaseURL},
		{"LAMCONF_LANG", &c.DefaultLanguage},
		{"LAMCONF_TRUSTED_PROXIES", &c.TrustedProxies},
		{"SENTRY_DSN", &c.SentryDSN},
		{"SENTRY_ENVIRONMENT", &c.SentryEnvironment},
	}
	for _, s := range strs {
		if v := strings.TrimSpace(os.Getenv(s.env)); v != "" {
			*s.dst = v
		}
	}
	if p := os.Getenv("PORT"); p != "" && os.Getenv("LAMCONF_ADDR") == "" {
		c.Addr = ":" + p
	}

	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		c.RateLimitRPS = rps
	}
	ints := []struct {
		env string
		dst *int
	}{
		{"RATE_LIMIT_BURST", &c.RateLimitBurst},
		{"LAMCONF_LOGIN_ATTEMPTS", &c.LoginAttemptsPerMinute},
	}
	for _, i := range ints {
		v := strings.TrimSpace(os.Getenv(i.env))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", i.env, v, err)
		}
		*i.dst = n
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
// Non-positive rate limits are allowed and disable the limiter.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendSQLite, BackendPostgres:
	case BackendFile:
		if c.ConfigFile == "" {
			return errors.New("config_file is required for the file backend (set LAMCONF_CONFIG_FILE or yaml)")
		}
	default:
		return fmt.Errorf("unknown backend %q (want memory, file, sqlite or postgres)", c.Backend)
	}
	if c.Backend == BackendPostgres && c.DatabaseURL == "" {
		return errors.New("database_url is required for the postgres backend (set DATABASE_URL or yaml)")
	}
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	return nil
}
