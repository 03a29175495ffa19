// Package config loads and validates process configuration for the
// benchmark engine: the HTTP server binding, the SQLite database path,
// the inference backend endpoint, default run parameters, and logging.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Run      RunDefaults    `mapstructure:"run"`
	Suites   SuitesConfig   `mapstructure:"suites"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// BackendConfig holds the inference backend's endpoint and connection
// tuning. The backend is treated as a black box exposing a
// chat-completion API and a load/unload/list management API.
type BackendConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RunDefaults holds run-config defaults that are loaded and validated at
// startup. Nothing applies them to submitted runs: a start_run request
// without a config uses models.DefaultRunConfig().
type RunDefaults struct {
	Iterations       int     `mapstructure:"iterations"`
	TimeoutMs        int     `mapstructure:"timeout_ms"`
	Temperature      float64 `mapstructure:"temperature"`
	Streaming        bool    `mapstructure:"streaming"`
	IterationPauseMs int     `mapstructure:"iteration_pause_ms"`
}

// SuitesConfig points at the directory the Suite Loader scans.
type SuitesConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// Load loads configuration from an optional file, then environment
// variables, applying defaults first so every field is always populated.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)

	v.SetDefault("database.path", "./data/llm-bench.db")

	v.SetDefault("backend.endpoint", "http://localhost:11434")
	v.SetDefault("backend.connect_timeout", 10*time.Second)

	v.SetDefault("run.iterations", 5)
	v.SetDefault("run.timeout_ms", 30000)
	v.SetDefault("run.temperature", 0.7)
	v.SetDefault("run.streaming", true)
	// Benchmark-stability measure between iterations, not an accident of
	// the reference implementation; see Open Question 2.
	v.SetDefault("run.iteration_pause_ms", 100)

	v.SetDefault("suites.dir", "./suites")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	bindEnv := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			slog.Warn("failed to bind environment variable",
				slog.String("key", key),
				slog.String("env_var", envVar),
				slog.String("error", err.Error()))
		}
	}

	bindEnv("database.path", "DATABASE_PATH")
	bindEnv("server.host", "SERVER_HOST")
	bindEnv("server.port", "SERVER_PORT")
	bindEnv("backend.endpoint", "BACKEND_ENDPOINT")
	bindEnv("suites.dir", "SUITES_DIR")
	bindEnv("logging.level", "LOG_LEVEL")
	bindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks cross-field invariants and the Run Config ranges
// applied as defaults, so misconfiguration is caught at startup rather
// than at first run submission.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Backend.Endpoint == "" {
		return fmt.Errorf("backend.endpoint is required")
	}
	if c.Run.Iterations < 1 || c.Run.Iterations > 100 {
		return fmt.Errorf("run.iterations must be in 1..100, got %d", c.Run.Iterations)
	}
	if c.Run.TimeoutMs < 5000 {
		return fmt.Errorf("run.timeout_ms must be >= 5000, got %d", c.Run.TimeoutMs)
	}
	if c.Run.Temperature < 0.0 || c.Run.Temperature > 2.0 {
		return fmt.Errorf("run.temperature must be in 0.0..2.0, got %f", c.Run.Temperature)
	}
	if c.Run.IterationPauseMs < 0 {
		return fmt.Errorf("run.iteration_pause_ms must be >= 0, got %d", c.Run.IterationPauseMs)
	}
	return nil
}
