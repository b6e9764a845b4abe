// Package config handles loading and parsing application configuration.
// It supports two sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Both binaries (students-api and students-web) read the same file; each
// one only looks at the sections it needs.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers understood by the students-api binary.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	// StorageDriver selects the students-api backend: "sqlite" or "postgres".
	StorageDriver string `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"sqlite"`

	// StoragePath is the filesystem path to the SQLite .db file.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"storage/students.db"`

	// PostgresDSN is used when StorageDriver is "postgres".
	PostgresDSN string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`

	HTTPServer `yaml:"http_server"`

	Web Web `yaml:"web"`
	API API `yaml:"api"`
}

// HTTPServer holds settings for the REST backend.
type HTTPServer struct {
	// Addr is the TCP address the API listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:"localhost:8082"`
}

// Web holds settings for the browser front-end.
type Web struct {
	Addr string `yaml:"address" env:"WEB_ADDR" env-default:"localhost:3000"`

	// PageLimit is the number of students shown per list page.
	PageLimit int `yaml:"page_limit" env:"WEB_PAGE_LIMIT" env-default:"10"`

	// MaxPage is the page from which "Next" is disabled.
	MaxPage int `yaml:"max_page" env:"WEB_MAX_PAGE" env-default:"10"`

	// RenderWait is how long the list page waits for data before it
	// renders the loading skeleton instead.
	RenderWait time.Duration `yaml:"render_wait" env:"WEB_RENDER_WAIT" env-default:"300ms"`

	// StaleTime is how long fetched data is served from the cache.
	StaleTime time.Duration `yaml:"stale_time" env:"WEB_STALE_TIME" env-default:"30s"`

	// CacheTime is how long an unread cache entry survives.
	CacheTime time.Duration `yaml:"cache_time" env:"WEB_CACHE_TIME" env-default:"5m"`
}

// API describes the REST backend as seen by the front-end.
type API struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:8082"`
	Timeout time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"10s"`
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if c.StoragePath == "" {
			return fmt.Errorf("storage_path is required for the %s driver", DriverSQLite)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown storage_driver %q", c.StorageDriver)
	}

	if c.Web.PageLimit < 1 {
		return fmt.Errorf("web.page_limit must be positive, got %d", c.Web.PageLimit)
	}
	if c.Web.MaxPage < 1 {
		return fmt.Errorf("web.max_page must be positive, got %d", c.Web.MaxPage)
	}

	return nil
}

// MustLoad reads, validates, and returns the application config.
// It exits the process when the config cannot be loaded.
func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err.Error())
	}

	return cfg
}
