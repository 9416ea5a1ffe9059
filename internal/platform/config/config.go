package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the process configuration.
type Config struct {
	Server   Server
	Registry Registry
	Store    Store
	Redis    RedisConfig
	Log      Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	MetricsAddr     string
	ShutdownTimeout time.Duration
}

// Registry holds registry bootstrap settings.
type Registry struct {
	// GenesisAdmin seeds the admin of a fresh store. Ignored once an admin has
	// been persisted.
	GenesisAdmin string
}

// Store selects the durable state backend.
type Store struct {
	Backend     string
	DatabaseURL string
}

// RedisConfig configures the Redis connection pool.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Log configures the process logger.
type Log struct {
	Level  string
	Format string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			MetricsAddr:     ":9090",
			ShutdownTimeout: 10 * time.Second,
		},
		Store: Store{Backend: BackendMemory},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// Load builds the configuration from the optional TOML file named by
// TELCO_REGISTRY_CONFIG, then applies environment overrides and validates.
func Load() (Config, error) {
	return load(os.Getenv("TELCO_REGISTRY_CONFIG"), os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the process cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Redis.PoolSize <= 0 {
		errs = append(errs, errors.New("redis pool size must be positive"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type fileConfig struct {
	Addr            string `toml:"addr"`
	MetricsAddr     string `toml:"metrics_addr"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	GenesisAdmin    string `toml:"genesis_admin"`
	Store           struct {
		Backend     string `toml:"backend"`
		DatabaseURL string `toml:"database_url"`
	} `toml:"store"`
	Redis struct {
		URL          string `toml:"url"`
		PoolSize     int    `toml:"pool_size"`
		MinIdleConns int    `toml:"min_idle_conns"`
		DialTimeout  string `toml:"dial_timeout"`
		ReadTimeout  string `toml:"read_timeout"`
		WriteTimeout string `toml:"write_timeout"`
	} `toml:"redis"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config file: unknown key %q", undecoded[0].String())
	}

	setString(meta.IsDefined("addr"), &cfg.Server.Addr, raw.Addr)
	setString(meta.IsDefined("metrics_addr"), &cfg.Server.MetricsAddr, raw.MetricsAddr)
	setString(meta.IsDefined("genesis_admin"), &cfg.Registry.GenesisAdmin, raw.GenesisAdmin)
	setString(meta.IsDefined("store", "backend"), &cfg.Store.Backend, raw.Store.Backend)
	setString(meta.IsDefined("store", "database_url"), &cfg.Store.DatabaseURL, raw.Store.DatabaseURL)
	setString(meta.IsDefined("redis", "url"), &cfg.Redis.URL, raw.Redis.URL)
	setString(meta.IsDefined("log", "level"), &cfg.Log.Level, raw.Log.Level)
	setString(meta.IsDefined("log", "format"), &cfg.Log.Format, raw.Log.Format)
	if meta.IsDefined("redis", "pool_size") {
		cfg.Redis.PoolSize = raw.Redis.PoolSize
	}
	if meta.IsDefined("redis", "min_idle_conns") {
		cfg.Redis.MinIdleConns = raw.Redis.MinIdleConns
	}

	durations := []struct {
		key  []string
		raw  string
		dest *time.Duration
	}{
		{[]string{"shutdown_timeout"}, raw.ShutdownTimeout, &cfg.Server.ShutdownTimeout},
		{[]string{"redis", "dial_timeout"}, raw.Redis.DialTimeout, &cfg.Redis.DialTimeout},
		{[]string{"redis", "read_timeout"}, raw.Redis.ReadTimeout, &cfg.Redis.ReadTimeout},
		{[]string{"redis", "write_timeout"}, raw.Redis.WriteTimeout, &cfg.Redis.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key...) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return fmt.Errorf("parse %s: %w", strings.Join(d.key, "."), err)
		}
		*d.dest = parsed
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dest *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dest = strings.TrimSpace(v)
		}
	}
	str("TELCO_REGISTRY_ADDR", &cfg.Server.Addr)
	str("METRICS_ADDR", &cfg.Server.MetricsAddr)
	str("GENESIS_ADMIN", &cfg.Registry.GenesisAdmin)
	str("STORE_BACKEND", &cfg.Store.Backend)
	str("DATABASE_URL", &cfg.Store.DatabaseURL)
	str("REDIS_URL", &cfg.Redis.URL)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v, ok := lookup("REDIS_POOL_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse REDIS_POOL_SIZE: %w", err)
		}
		cfg.Redis.PoolSize = n
	}
	if v, ok := lookup("SHUTDOWN_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	cfg.Store.Backend = strings.ToLower(cfg.Store.Backend)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	return nil
}

func setString(defined bool, dest *string, v string) {
	if defined {
		*dest = strings.TrimSpace(v)
	}
}
