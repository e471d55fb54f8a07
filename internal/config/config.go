// Package config loads viewer settings from defaults, an optional YAML file
// and CHROMA_VIEWER_* environment variables. Command-line flags are applied
// on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/chroma-viewer/pkg/logging"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CHROMA_VIEWER_"

// Config holds the viewer configuration.
type Config struct {
	// DBPath is the Chroma persistent directory to open at startup.
	DBPath string `yaml:"db_path"`

	// HTTP listener
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	// Optional Redis cache for collection fetches; empty disables it.
	RedisAddr string        `yaml:"redis_addr"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            8000,
		LogLevel:        string(logging.LevelInfo),
		CacheTTL:        5 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.DBPath = getEnv(EnvPrefix+"DB_PATH", c.DBPath)
	c.Host = getEnv(EnvPrefix+"HOST", c.Host)
	c.LogLevel = getEnv(EnvPrefix+"LOG_LEVEL", c.LogLevel)
	c.RedisAddr = getEnv(EnvPrefix+"REDIS_ADDR", c.RedisAddr)

	if v := getEnv(EnvPrefix+"PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: invalid port %q", EnvPrefix, v)
		}
		c.Port = port
	}
	if v := getEnv(EnvPrefix+"CACHE_TTL", ""); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sCACHE_TTL: %w", EnvPrefix, err)
		}
		c.CacheTTL = ttl
	}
	return nil
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range 1-65535", c.Port))
	}
	if err := logging.ValidateLevel(logging.LogLevel(c.LogLevel)); err != nil {
		errs = append(errs, err)
	}
	if c.RedisAddr != "" && c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache TTL must be positive, got %s", c.CacheTTL))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the listen address as host:port.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
