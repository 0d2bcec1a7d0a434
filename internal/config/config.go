package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Server struct {
	Port               string `json:"port" yaml:"port" env:"PORT" env-description:"HTTP listen port"`
	RequestTimeoutSec  int    `json:"request_timeout_sec" yaml:"request_timeout_sec" env:"REQUEST_TIMEOUT_SEC" env-description:"Upper bound for one inbound request"`
	ShutdownTimeoutSec int    `json:"shutdown_timeout_sec" yaml:"shutdown_timeout_sec" env:"SHUTDOWN_TIMEOUT_SEC"`
	MaxBodyBytes       int64  `json:"max_body_bytes" yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

type Log struct {
	Level       string `json:"level" yaml:"level" env:"LOG_LEVEL" env-description:"debug, info, warn or error"`
	Environment string `json:"environment" yaml:"environment" env:"APP_ENV" env-description:"production selects JSON logs"`
}

type Cache struct {
	// Backend is memory or redis.
	Backend     string `json:"backend" yaml:"backend" env:"CACHE_BACKEND"`
	TTLSeconds  int    `json:"ttl_sec" yaml:"ttl_sec" env:"CACHE_TTL_SEC" env-description:"0 keeps entries forever"`
	MaxEntries  int    `json:"max_entries" yaml:"max_entries" env:"CACHE_MAX_ENTRIES" env-description:"0 means unbounded"`
	SortSymbols bool   `json:"sort_symbols" yaml:"sort_symbols" env:"CACHE_SORT_SYMBOLS" env-description:"Share entries across symbol orderings"`
}

type Redis struct {
	Addr     string `json:"addr" yaml:"addr" env:"REDIS_ADDR"`
	Password string `json:"password" yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" yaml:"db" env:"REDIS_DB"`
	Prefix   string `json:"prefix" yaml:"prefix" env:"REDIS_PREFIX"`
}

type Aggregate struct {
	// Policy is available (default) or strict.
	Policy             string `json:"policy" yaml:"policy" env:"CONSENSUS_POLICY"`
	ProviderTimeoutSec int    `json:"provider_timeout_sec" yaml:"provider_timeout_sec" env:"PROVIDER_TIMEOUT_SEC" env-description:"0 disables the per-provider bound"`
}

type Fawaz struct {
	Enabled               bool   `json:"enabled" yaml:"enabled" env:"FAWAZ_ENABLED"`
	PrimaryURL            string `json:"primary_url" yaml:"primary_url" env:"FAWAZ_PRIMARY_URL"`
	FallbackURL           string `json:"fallback_url" yaml:"fallback_url" env:"FAWAZ_FALLBACK_URL"`
	DisableFallback       bool   `json:"disable_fallback" yaml:"disable_fallback" env:"FAWAZ_DISABLE_FALLBACK"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute" env:"FAWAZ_MAX_RPM"`
	Burst                 int    `json:"burst" yaml:"burst" env:"FAWAZ_BURST"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec" env:"FAWAZ_MIN_INTERVAL_SEC"`
}

type Frankfurter struct {
	Enabled               bool   `json:"enabled" yaml:"enabled" env:"FRANKFURTER_ENABLED"`
	URL                   string `json:"url" yaml:"url" env:"FRANKFURTER_URL"`
	MaxRequestsPerMinute  int    `json:"max_requests_per_minute" yaml:"max_requests_per_minute" env:"FRANKFURTER_MAX_RPM"`
	Burst                 int    `json:"burst" yaml:"burst" env:"FRANKFURTER_BURST"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" yaml:"min_request_interval_sec" env:"FRANKFURTER_MIN_INTERVAL_SEC"`
}

type Config struct {
	Server      Server      `json:"server" yaml:"server"`
	Log         Log         `json:"log" yaml:"log"`
	Cache       Cache       `json:"cache" yaml:"cache"`
	Redis       Redis       `json:"redis" yaml:"redis"`
	Aggregate   Aggregate   `json:"aggregate" yaml:"aggregate"`
	Fawaz       Fawaz       `json:"fawaz" yaml:"fawaz"`
	Frankfurter Frankfurter `json:"frankfurter" yaml:"frankfurter"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 10, ShutdownTimeoutSec: 5, MaxBodyBytes: 1 << 20},
		Log:    Log{Level: "info", Environment: "development"},
		Cache: Cache{
			Backend:    "memory",
			TTLSeconds: 900,
			MaxEntries: 10000,
		},
		Redis: Redis{Addr: "localhost:6379", Prefix: "exr:rate:"},
		Aggregate: Aggregate{
			Policy:             "available",
			ProviderTimeoutSec: 5,
		},
		Fawaz: Fawaz{
			Enabled:              true,
			PrimaryURL:           "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1",
			FallbackURL:          "https://currency-api.pages.dev/v1",
			MaxRequestsPerMinute: 60,
			Burst:                5,
		},
		Frankfurter: Frankfurter{
			Enabled:              true,
			URL:                  "https://api.frankfurter.app",
			MaxRequestsPerMinute: 60,
			Burst:                5,
		},
	}
}

// Load reads config from path (JSON or YAML by extension) over the defaults.
// An empty path picks config.json or config.yaml from the working directory
// when present. A .env file, if any, is loaded into the environment first and
// environment variables win over the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		for _, candidate := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	var err error
	if path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			err = cleanenv.ReadConfig(path, &cfg)
		} else if errors.Is(statErr, os.ErrNotExist) {
			err = cleanenv.ReadEnv(&cfg)
		} else {
			return cfg, fmt.Errorf("read config: %w", statErr)
		}
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("config: server.port is empty")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache.backend %q", c.Cache.Backend)
	}
	switch strings.ToLower(c.Aggregate.Policy) {
	case "", "available", "hardened", "strict":
	default:
		return fmt.Errorf("config: unknown aggregate.policy %q", c.Aggregate.Policy)
	}
	if !c.Fawaz.Enabled && !c.Frankfurter.Enabled {
		return errors.New("config: no provider enabled")
	}
	return nil
}

func (s Server) RequestTimeout() time.Duration  { return time.Duration(s.RequestTimeoutSec) * time.Second }
func (s Server) ShutdownTimeout() time.Duration { return time.Duration(s.ShutdownTimeoutSec) * time.Second }
func (c Cache) TTL() time.Duration              { return time.Duration(c.TTLSeconds) * time.Second }
func (a Aggregate) ProviderTimeout() time.Duration {
	return time.Duration(a.ProviderTimeoutSec) * time.Second
}

// Usage describes the environment variables Load understands.
func Usage() string {
	var cfg Config
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return desc
}
