package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config holds cartstore configuration.
type Config struct {
	// Profile scopes every stored key, like a browser profile.
	Profile  string `yaml:"profile"`
	Currency string `yaml:"currency"`

	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
	Share   ShareConfig   `yaml:"share"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"` // memory, sqlite, postgres, redis
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
	RedisAddr   string `yaml:"redis_addr"`
}

type SearchConfig struct {
	BaseURL        string `yaml:"base_url"`
	Debounce       string `yaml:"debounce"`
	MinQueryLength int    `yaml:"min_query_length"`
	Timeout        string `yaml:"timeout"`
}

type ShareConfig struct {
	Origin string `yaml:"origin"`
}

// MetricsConfig names a node_exporter textfile the CLI rewrites on exit.
// Empty disables it.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		Profile:  "default",
		Currency: "SAR",
		Storage: StorageConfig{
			Backend:    BackendSQLite,
			SQLitePath: defaultSQLitePath(),
			RedisAddr:  "localhost:6379",
		},
		Search: SearchConfig{
			BaseURL:        "http://localhost:5000",
			Debounce:       "500ms",
			MinQueryLength: 3,
			Timeout:        "5s",
		},
		Share: ShareConfig{
			Origin: "http://localhost:5000",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "cartstore", "storage.db")
}

// Load reads path over the defaults; a missing file yields the defaults.
// Environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("os.ReadFile: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("yaml.Unmarshal: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("yaml.Marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("os.WriteFile: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	overrides := map[string]*string{
		"CARTSTORE_PROFILE":      &c.Profile,
		"CARTSTORE_CURRENCY":     &c.Currency,
		"CARTSTORE_BACKEND":      &c.Storage.Backend,
		"CARTSTORE_SQLITE_PATH":  &c.Storage.SQLitePath,
		"CARTSTORE_POSTGRES_DSN": &c.Storage.PostgresDSN,
		"CARTSTORE_REDIS_ADDR":   &c.Storage.RedisAddr,
		"CARTSTORE_SEARCH_URL":   &c.Search.BaseURL,
		"CARTSTORE_SHARE_ORIGIN": &c.Share.Origin,
		"CARTSTORE_LOG_LEVEL":    &c.Logging.Level,
		"CARTSTORE_METRICS_FILE": &c.Metrics.Textfile,
	}

	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
}

func (c *Config) Validate() error {
	if c.Profile == "" {
		return fmt.Errorf("profile is empty")
	}

	if _, err := c.CurrencyUnit(); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is empty")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is empty")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is empty")
		}
	default:
		return fmt.Errorf("storage.backend[%s] is not supported", c.Storage.Backend)
	}

	if c.Search.MinQueryLength < 1 {
		return fmt.Errorf("search.min_query_length[%d] must be at least 1", c.Search.MinQueryLength)
	}

	for name, value := range map[string]string{
		"search.debounce": c.Search.Debounce,
		"search.timeout":  c.Search.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s[%s] is not valid: %w", name, value, err)
		}
	}

	return nil
}

func (c *Config) CurrencyUnit() (currency.Unit, error) {
	unit, err := currency.ParseISO(strings.ToUpper(c.Currency))
	if err != nil {
		return currency.Unit{}, fmt.Errorf("currency[%s] is not valid: %w", c.Currency, err)
	}
	return unit, nil
}

func (c *Config) SearchDebounce() time.Duration {
	d, _ := time.ParseDuration(c.Search.Debounce)
	return d
}

func (c *Config) SearchTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Search.Timeout)
	return d
}
