// Package config loads storefront settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "STOREFRONT_"

type Config struct {
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"https://localhost:7138/api"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"storefront.db"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	// RedisTTL expires every key written to Redis; zero keeps them forever.
	RedisTTL time.Duration `env:"REDIS_TTL" envDefault:"0s"`

	CartScope       string        `env:"CART_SCOPE" envDefault:"shared"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	RateLimit       float64       `env:"RATE_LIMIT" envDefault:"0"`
	RateBurst       int           `env:"RATE_BURST" envDefault:"5"`
	BreakerFailures uint32        `env:"BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout  time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`

	MetricsTextfile string `env:"METRICS_TEXTFILE"`

	// Claim tables override the built-in lookup order when set.
	RoleClaims    []string `env:"ROLE_CLAIMS" envSeparator:","`
	SubjectClaims []string `env:"SUBJECT_CLAIMS" envSeparator:","`
	NameClaims    []string `env:"NAME_CLAIMS" envSeparator:","`
}

// Load reads dotenv (when non-empty and present) into the process environment
// without overriding existing variables, then parses the configuration.
func Load(dotenv string) (Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid %sAPI_BASE_URL %q: must be an absolute url", Prefix, c.APIBaseURL)
	}
	switch c.StorageBackend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("invalid %sSTORAGE_BACKEND %q (must be sqlite, redis or memory)", Prefix, c.StorageBackend)
	}
	if c.StorageBackend == "sqlite" && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("%sSQLITE_PATH is required for the sqlite backend", Prefix)
	}
	switch c.CartScope {
	case "shared", "subject":
	default:
		return fmt.Errorf("invalid %sCART_SCOPE %q (must be shared or subject)", Prefix, c.CartScope)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%sREQUEST_TIMEOUT must be positive", Prefix)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%sRATE_LIMIT must not be negative", Prefix)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid %sLOG_LEVEL %q: %w", Prefix, c.LogLevel, err)
	}
	return l, nil
}
