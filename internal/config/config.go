// Package config loads the spatial server configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all settings for cmd/spatial.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Batch   BatchConfig   `yaml:"batch"`
}

// ServerConfig configures the HTTP tool server. Timeouts are Go duration
// strings.
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	ReadHeaderTimeout string `yaml:"read_header_timeout"`
	ReadTimeout       string `yaml:"read_timeout"`
	WriteTimeout      string `yaml:"write_timeout"`
	IdleTimeout       string `yaml:"idle_timeout"`
	MaxBodyBytes      int64  `yaml:"max_body_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

type BatchConfig struct {
	// Workers bounds EvaluateBatch parallelism; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: "5s",
			ReadTimeout:       "15s",
			WriteTimeout:      "15s",
			IdleTimeout:       "60s",
			MaxBodyBytes:      1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if addr := os.Getenv("GOSPATIAL_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("GOSPATIAL_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if w := os.Getenv("GOSPATIAL_BATCH_WORKERS"); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return fmt.Errorf("GOSPATIAL_BATCH_WORKERS: %w", err)
		}
		c.Batch.Workers = n
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs error
	if c.Server.Addr == "" {
		errs = multierr.Append(errs, fmt.Errorf("server.addr is empty"))
	}
	for name, v := range map[string]string{
		"server.read_header_timeout": c.Server.ReadHeaderTimeout,
		"server.read_timeout":        c.Server.ReadTimeout,
		"server.write_timeout":       c.Server.WriteTimeout,
		"server.idle_timeout":        c.Server.IdleTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = multierr.Append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}
	if c.Batch.Workers < 0 {
		errs = multierr.Append(errs, fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers))
	}
	return errs
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func (s ServerConfig) GetReadHeaderTimeout() time.Duration {
	return duration(s.ReadHeaderTimeout, 5*time.Second)
}

func (s ServerConfig) GetReadTimeout() time.Duration  { return duration(s.ReadTimeout, 15*time.Second) }
func (s ServerConfig) GetWriteTimeout() time.Duration { return duration(s.WriteTimeout, 15*time.Second) }
func (s ServerConfig) GetIdleTimeout() time.Duration  { return duration(s.IdleTimeout, 60*time.Second) }

// GetLevel returns the configured level, or info if it does not parse.
func (l LoggingConfig) GetLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
