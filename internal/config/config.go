// Package config loads the YAML configuration shared by the ais_parser
// binaries and applies environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ais_parser/internal/fragment"
	"ais_parser/internal/publish"
	"ais_parser/internal/storage"
)

// DecoderConfig tunes fragment reassembly and vessel tracking.
type DecoderConfig struct {
	// Horizon is how long an incomplete multi-part message is kept.
	Horizon time.Duration `yaml:"horizon"`
	// SweepInterval is how often stale fragments are evicted while streaming.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// VesselTTL forgets vessels not heard from for this long. Zero keeps them.
	VesselTTL time.Duration `yaml:"vessel_ttl"`
	// Clean drops out-of-range values from rows before they are written.
	Clean bool `yaml:"clean"`
	// BatchSize is the number of rows buffered before a sink write.
	BatchSize int `yaml:"batch_size"`
}

// APIConfig configures the vessel API server.
type APIConfig struct {
	Port        int      `yaml:"port"`
	AuthEnabled bool     `yaml:"auth_enabled"`
	APIKeys     []string `yaml:"api_keys"`
	Metrics     bool     `yaml:"metrics"`
}

// Config is the full configuration.
type Config struct {
	Decoder DecoderConfig  `yaml:"decoder"`
	Logging LoggingConfig  `yaml:"logging"`
	Storage storage.Config `yaml:"storage"`
	NATS    publish.Config `yaml:"nats"`
	API     APIConfig      `yaml:"api"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Decoder: DecoderConfig{
			Horizon:       fragment.DefaultHorizon,
			SweepInterval: 10 * time.Second,
			VesselTTL:     0,
			BatchSize:     500,
		},
		Logging: LoggingConfig{
			Console: ConsoleLogConfig{Level: "normal"},
			File: FileLogConfig{
				Level:      "none",
				Path:       "ais_parser.log",
				MaxSizeMB:  100,
				MaxAgeDays: 30,
				MaxBackups: 5,
			},
		},
		Storage: storage.DefaultConfig(),
		NATS: publish.Config{
			URL:    "nats://localhost:4222",
			Prefix: publish.DefaultPrefix,
		},
		API: APIConfig{
			Port:    8081,
			Metrics: true,
		},
	}
}

// Load reads the YAML file at path on top of the defaults and applies
// environment overrides. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	s := &c.Storage
	s.SQLite.Path = envOrDefault("AIS_SQLITE_PATH", s.SQLite.Path)
	s.SQLite.Enabled = envOrDefaultBool("AIS_SQLITE_ENABLED", s.SQLite.Enabled)

	s.ClickHouse.Host = envOrDefault("CLICKHOUSE_HOST", s.ClickHouse.Host)
	s.ClickHouse.Port = envOrDefaultInt("CLICKHOUSE_PORT", s.ClickHouse.Port)
	s.ClickHouse.Database = envOrDefault("CLICKHOUSE_DATABASE", s.ClickHouse.Database)
	s.ClickHouse.User = envOrDefault("CLICKHOUSE_USER", s.ClickHouse.User)
	s.ClickHouse.Password = envOrDefault("CLICKHOUSE_PASSWORD", s.ClickHouse.Password)

	s.Postgres.Host = envOrDefault("POSTGRES_HOST", s.Postgres.Host)
	s.Postgres.Port = envOrDefaultInt("POSTGRES_PORT", s.Postgres.Port)
	s.Postgres.Database = envOrDefault("POSTGRES_DATABASE", s.Postgres.Database)
	s.Postgres.User = envOrDefault("POSTGRES_USER", s.Postgres.User)
	s.Postgres.Password = envOrDefault("POSTGRES_PASSWORD", s.Postgres.Password)

	c.NATS.URL = envOrDefault("NATS_URL", c.NATS.URL)
	c.NATS.Prefix = envOrDefault("NATS_PREFIX", c.NATS.Prefix)

	c.API.Port = envOrDefaultInt("AIS_API_PORT", c.API.Port)
	if keys := os.Getenv("AIS_API_KEYS"); keys != "" {
		c.API.APIKeys = splitList(keys)
	}

	c.Logging.Console.Level = envOrDefault("AIS_LOG_LEVEL", c.Logging.Console.Level)
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if c.Decoder.Horizon <= 0 {
		return fmt.Errorf("decoder.horizon must be positive, got %s", c.Decoder.Horizon)
	}
	if c.Decoder.SweepInterval <= 0 {
		return fmt.Errorf("decoder.sweep_interval must be positive, got %s", c.Decoder.SweepInterval)
	}
	if c.Decoder.BatchSize <= 0 {
		return fmt.Errorf("decoder.batch_size must be positive, got %d", c.Decoder.BatchSize)
	}
	for _, l := range []string{c.Logging.Console.Level, c.Logging.File.Level} {
		switch l {
		case "", "none", "normal", "debug":
		default:
			return fmt.Errorf("unknown log level %q (want none, normal or debug)", l)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envOrDefaultBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
