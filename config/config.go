// Package config loads process configuration from .env, an optional YAML
// file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     int    `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// RulesFile and MappingFile point at factory documents; empty means defaults.
	RulesFile   string `yaml:"rules_file"`
	MappingFile string `yaml:"mapping_file"`

	CORSOrigins []string `yaml:"cors_origins"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	NarrativeModel  string `yaml:"narrative_model"`

	// MaxUploadMB bounds multipart dataset uploads.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

func Default() *Config {
	return &Config{
		Port:        8080,
		DBPath:      "ledger.db",
		LogLevel:    "info",
		CORSOrigins: []string{"*"},
		MaxUploadMB: 10,
	}
}

// Load reads .env (a missing file is fine), then the YAML file named by
// CONFIG_PATH or ./config.yaml if present, then environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	} else if os.Getenv("CONFIG_PATH") != "" {
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Env vars override YAML values
func (c *Config) applyEnv() error {
	envOverride(&c.DBPath, "DB_PATH")
	envOverride(&c.LogLevel, "LOG_LEVEL")
	envOverride(&c.RulesFile, "RULES_FILE")
	envOverride(&c.MappingFile, "MAPPING_FILE")
	envOverride(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&c.NarrativeModel, "NARRATIVE_MODEL")

	if err := envOverrideInt(&c.Port, "PORT"); err != nil {
		return err
	}
	if err := envOverrideInt(&c.MaxUploadMB, "MAX_UPLOAD_MB"); err != nil {
		return err
	}
	if v := os.Getenv("LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LOG_JSON %q: %w", v, err)
		}
		c.LogJSON = b
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.CORSOrigins = append(c.CORSOrigins, origin)
			}
		}
	}
	return nil
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}
	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty (use :memory: for an in-memory store)")
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.MaxUploadMB < 1 {
		problems = append(problems, fmt.Sprintf("invalid max upload %d MB: must be positive", c.MaxUploadMB))
	}
	for _, f := range []struct{ name, path string }{{"rules file", c.RulesFile}, {"mapping file", c.MappingFile}} {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); err != nil {
			problems = append(problems, fmt.Sprintf("%s %q: %v", f.name, f.path, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn or error", c.LogLevel)
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}
