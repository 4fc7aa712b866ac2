// Package config loads application configuration from environment
// variables (prefix ICAHT) layered over an optional YAML file. Environment
// values win over file values; unset options fall back to defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"icahtcli/pkg/contracts/domain"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig           `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig          `yaml:"logging" envconfig:"LOGGING"`
	Grading domain.GradingSettings `yaml:"grading" envconfig:"GRADING"`
	Limits  LimitsConfig           `yaml:"limits" envconfig:"LIMITS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"FORMAT" default:"json"`
}

// LimitsConfig bounds resource usage for uploads and batch processing.
type LimitsConfig struct {
	MaxConcurrency int     `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" default:"4"`
	UploadRPS      float64 `yaml:"upload_rps" envconfig:"UPLOAD_RPS" default:"5"`
	UploadBurst    int     `yaml:"upload_burst" envconfig:"UPLOAD_BURST" default:"10"`
}

// Load builds the configuration: file values first (when path exists),
// then environment overrides, then defaults for what remains.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileCfg, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
			cfg = *fileCfg
		}
	}

	// envconfig fills defaults for zero fields and applies ICAHT_* vars on
	// top of whatever the file provided.
	if err := envconfig.Process("ICAHT", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	cfg.Grading = cfg.Grading.Normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Limits.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be positive")
	}
	if c.Limits.UploadRPS <= 0 || c.Limits.UploadBurst <= 0 {
		return fmt.Errorf("upload rate limit must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return c.Grading.Validate()
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Grading: domain.DefaultGradingSettings(),
		Limits: LimitsConfig{
			MaxConcurrency: 4,
			UploadRPS:      5,
			UploadBurst:    10,
		},
	}
}
