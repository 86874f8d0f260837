// Package config loads the YAML settings shared by the CLI and the API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"forensic_accounting/pkg/core/logger"
)

// DefaultPath is where the binaries look when no -config flag is given.
const DefaultPath = "config/forensic.yaml"

// Config represents the application configuration
type Config struct {
	Log    logger.LogConfig `yaml:"log"`
	SEC    SECConfig        `yaml:"sec"`
	Cache  CacheConfig      `yaml:"cache"`
	Report ReportConfig     `yaml:"report"`
	API    APIConfig        `yaml:"api"`
}

// SECConfig controls the EDGAR client. SEC rejects requests without a contact User-Agent.
type SECConfig struct {
	UserAgent         string  `yaml:"user_agent" validate:"required"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gt=0,lte=10"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" validate:"gt=0"`
	Years             int     `yaml:"years" validate:"gte=2,lte=20"`
}

// Timeout as a duration.
func (c SECConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type CacheConfig struct {
	Dir         string `yaml:"dir" validate:"required"`
	TTLHours    int    `yaml:"ttl_hours" validate:"gte=0"` // 0 disables expiry
	DatabaseURL string `yaml:"database_url"`               // optional; enables the Postgres cache
}

// TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

type ReportConfig struct {
	OutputDir string `yaml:"output_dir" validate:"required"`
	Format    string `yaml:"format" validate:"oneof=text markdown json html"`
}

type APIConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log: logger.LogConfig{Level: "INFO", Format: "text"},
		SEC: SECConfig{
			UserAgent:         "ForensicAccounting research@example.com",
			RequestsPerSecond: 9,
			TimeoutSeconds:    30,
			Years:             5,
		},
		Cache:  CacheConfig{Dir: ".cache", TTLHours: 24},
		Report: ReportConfig{OutputDir: "reports", Format: "text"},
		API:    APIConfig{Addr: ":8080"},
	}
}

// Load reads .env (if present) and then the YAML file at path.
// A missing file yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SEC_USER_AGENT"); v != "" {
		c.SEC.UserAgent = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Cache.DatabaseURL = v
	}
	if v := os.Getenv("FORENSIC_API_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// fillDefaults restores values a partial YAML section left empty.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.SEC.UserAgent == "" {
		c.SEC.UserAgent = d.SEC.UserAgent
	}
	if c.SEC.RequestsPerSecond == 0 {
		c.SEC.RequestsPerSecond = d.SEC.RequestsPerSecond
	}
	if c.SEC.TimeoutSeconds == 0 {
		c.SEC.TimeoutSeconds = d.SEC.TimeoutSeconds
	}
	if c.SEC.Years == 0 {
		c.SEC.Years = d.SEC.Years
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = d.Cache.Dir
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = d.Report.OutputDir
	}
	if c.Report.Format == "" {
		c.Report.Format = d.Report.Format
	}
	c.Report.Format = strings.ToLower(c.Report.Format)
	if c.API.Addr == "" {
		c.API.Addr = d.API.Addr
	}
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
