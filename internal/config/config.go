// Package config provides centralized configuration management for the
// entitlement service. Configuration is layered: built-in defaults, then an
// optional config.yaml next to the executable, then BD_* environment
// variables, each layer overriding the previous one.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Paths   PathsConfig   `yaml:"paths"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"SERVER_PORT"`
	Host            string        `yaml:"host" envconfig:"SERVER_HOST"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SERVER_SHUTDOWN_TIMEOUT"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format   string `yaml:"format" envconfig:"LOG_FORMAT"`
	Output   string `yaml:"output" envconfig:"LOG_OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"LOG_FILE_PATH"`
}

// PathsConfig allows overriding the default executable-relative file
// locations. Empty values mean "use the resolved default".
type PathsConfig struct {
	EntitlementFile string `yaml:"entitlement_file" envconfig:"ENTITLEMENT_FILE"`
	KeysFile        string `yaml:"keys_file" envconfig:"KEYS_FILE"`
	DataDir         string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir         string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// LimitsConfig holds request throttling configuration for the HTTP layer.
type LimitsConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"LIMITS_RPS"`
	Burst             int     `yaml:"burst" envconfig:"LIMITS_BURST"`
}

// Load builds the effective configuration: defaults, optional YAML file,
// then environment overrides. The YAML file is looked up next to the
// executable and is entirely optional.
func Load() (*Config, error) {
	cfg := Default()

	if path, err := configFilePath(); err == nil && FileExists(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Environment wins over the file.
	if err := envconfig.Process("BD", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without consulting the
// environment or any file. Used by tests and tooling.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "localhost",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Limits: LimitsConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
	}
}

// Validate checks the configuration for values that would break startup.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}
	if c.Limits.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive: %v", c.Limits.RequestsPerSecond)
	}
	if c.Limits.Burst < 1 {
		return fmt.Errorf("burst must be at least 1: %d", c.Limits.Burst)
	}
	return nil
}

// ResolvePaths merges configured overrides with the executable-relative
// defaults and returns the effective file layout.
func (c *Config) ResolvePaths() (*Paths, error) {
	paths, err := GetPaths()
	if err != nil {
		return nil, err
	}
	if c.Paths.DataDir != "" {
		paths.DataDir = c.Paths.DataDir
		paths.EntitlementFile = filepath.Join(paths.DataDir, "entitlement.json")
		paths.KeysFile = filepath.Join(paths.DataDir, "license_keys.json")
	}
	if c.Paths.LogsDir != "" {
		paths.LogsDir = c.Paths.LogsDir
	}
	if c.Paths.EntitlementFile != "" {
		paths.EntitlementFile = c.Paths.EntitlementFile
	}
	if c.Paths.KeysFile != "" {
		paths.KeysFile = c.Paths.KeysFile
	}
	return paths, nil
}

// Addr returns the host:port address the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func configFilePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), "config.yaml"), nil
}
