package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultMaxExecutionTimeMs bounds statistics queries when nothing else is configured.
const DefaultMaxExecutionTimeMs = 5000

// Config holds the runtime configuration. Values come from defaults, then
// an optional YAML file, then the environment.
type Config struct {
	// ClickHouse connection
	ClickHouseHost     string `envconfig:"CLICKHOUSE_HOST" yaml:"clickhouse_host"`
	ClickHouseUser     string `envconfig:"CLICKHOUSE_USER" yaml:"clickhouse_user"`
	ClickHousePassword string `envconfig:"CLICKHOUSE_PASSWORD" yaml:"clickhouse_password"`
	ClickHouseDatabase string `envconfig:"CLICKHOUSE_DATABASE" yaml:"clickhouse_database"`
	ClickHouseSecure   bool   `envconfig:"CLICKHOUSE_SECURE" yaml:"clickhouse_secure"`

	// Statistics table and per-query server side timeout.
	StatsTable              string `envconfig:"STATS_TABLE" yaml:"stats_table"`
	StatsMaxExecutionTimeMs int    `envconfig:"STATS_MAX_EXECUTION_TIME_MS" yaml:"stats_max_execution_time_ms"`

	// Per-client limit on /api/stats. Zero disables it.
	StatsRateLimit float64 `envconfig:"STATS_RATE_LIMIT" yaml:"stats_rate_limit"`
	StatsRateBurst int     `envconfig:"STATS_RATE_BURST" yaml:"stats_rate_burst"`

	// Local search history
	DuckDBPath    string `envconfig:"DUCKDB_PATH" yaml:"duckdb_path"`
	SearchHistory bool   `envconfig:"SEARCH_HISTORY" yaml:"search_history"`

	// HTTP server
	Port      int    `envconfig:"PORT" yaml:"port"`
	StaticDir string `envconfig:"STATIC_DIR" yaml:"static_dir"`
}

// LoadConfig loads the configuration. configPath may be empty.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.ClickHouseHost = "localhost:9000"
	cfg.ClickHouseUser = "default"
	cfg.ClickHouseDatabase = "default"
	cfg.StatsTable = "sql_stats"
	cfg.StatsMaxExecutionTimeMs = DefaultMaxExecutionTimeMs
	cfg.StatsRateLimit = 5
	cfg.StatsRateBurst = 10
	cfg.DuckDBPath = "./sqltelligence.db"
	cfg.SearchHistory = true
	cfg.Port = 8080
	cfg.StaticDir = "./static"
}

// Validate checks the values envconfig cannot.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}
	if c.ClickHouseHost == "" {
		errs = append(errs, "clickhouse host is required")
	}
	if c.StatsTable == "" {
		errs = append(errs, "stats table is required")
	}
	if c.StatsMaxExecutionTimeMs < 0 {
		errs = append(errs, "stats max execution time must not be negative")
	}
	if c.StatsRateLimit < 0 || c.StatsRateBurst < 0 {
		errs = append(errs, "stats rate limit and burst must not be negative")
	}
	if c.SearchHistory && c.DuckDBPath == "" {
		errs = append(errs, "duckdb path is required when search history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// UseSecure reports whether the ClickHouse connection needs TLS: either
// requested explicitly or implied by the secure native port 9440.
func (c *Config) UseSecure() bool {
	return c.ClickHouseSecure || strings.Contains(c.ClickHouseHost, ":9440")
}

// MaxExecutionTimeMs returns the statistics timeout, falling back to the default.
func (c *Config) MaxExecutionTimeMs() int {
	if c.StatsMaxExecutionTimeMs <= 0 {
		return DefaultMaxExecutionTimeMs
	}
	return c.StatsMaxExecutionTimeMs
}
