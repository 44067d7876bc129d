package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig  `mapstructure:"server" yaml:"server"`
	DBPath      string        `mapstructure:"db_path" yaml:"db_path"`
	ManifestDir string        `mapstructure:"manifest_dir" yaml:"manifest_dir"`
	ArtifactDir string        `mapstructure:"artifact_dir" yaml:"artifact_dir"`
	Backend     BackendConfig `mapstructure:"backend" yaml:"backend"`
	Scan        ScanConfig    `mapstructure:"scan" yaml:"scan"`
	Notify      NotifyConfig  `mapstructure:"notify" yaml:"notify"`
	Log         LogConfig     `mapstructure:"log" yaml:"log"`
}

// ServerConfig controls the HTTP API listener
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// BackendConfig selects where tool processes execute
type BackendConfig struct {
	// Type is "local" for in-process execution or "remote" for a
	// sandbox service reached over HTTP.
	Type string `mapstructure:"type" yaml:"type"`
	URL  string `mapstructure:"url" yaml:"url"`
}

// ScanConfig bounds smart-scan sessions
type ScanConfig struct {
	// MaxSessionMinutes caps a session's wall clock; 0 means unbounded.
	MaxSessionMinutes int `mapstructure:"max_session_minutes" yaml:"max_session_minutes"`
}

// NotifyConfig configures terminal-session webhooks
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
}

// LogConfig controls structured logging output
type LogConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"` // text or json
	File       string `mapstructure:"file" yaml:"file"` // empty logs to stderr only
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// Load reads and parses configuration from a YAML file
// If path is empty, searches for scanhub.yaml in current directory and ~/.config/scanhub/
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("scanhub")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		homeDir, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "scanhub"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path cannot be empty"))
	}

	if c.ManifestDir == "" {
		errs = append(errs, errors.New("manifest_dir cannot be empty"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server.port must be between 1 and 65535"))
	}

	switch c.Backend.Type {
	case "local":
	case "remote":
		if !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://") {
			errs = append(errs, errors.New("backend.url must be an http(s) URL when backend.type is remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.type must be local or remote, got %q", c.Backend.Type))
	}

	if c.Scan.MaxSessionMinutes < 0 {
		errs = append(errs, errors.New("scan.max_session_minutes cannot be negative"))
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
