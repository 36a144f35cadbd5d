package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	// GIVEN: A YAML file and environment overrides on top
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9000\ndb_path: from-yaml.db\nlog_level: debug\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DB_PATH", ":memory:")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	// WHEN: Loading
	cfg, err := Load()
	require.NoError(t, err)

	// THEN: Env wins over YAML, YAML wins over defaults
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 10, cfg.MaxUploadMB)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing explicit config file", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", writeEmpty(t))
		t.Setenv("PORT", "eighty")
		_, err := Load()
		assert.ErrorContains(t, err, "PORT")
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("CONFIG_PATH", writeEmpty(t))
		t.Setenv("LOG_JSON", "sometimes")
		_, err := Load()
		assert.ErrorContains(t, err, "LOG_JSON")
	})
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	cfg.DBPath = ""
	cfg.LogLevel = "loud"
	cfg.MaxUploadMB = 0
	cfg.RulesFile = filepath.Join(t.TempDir(), "missing-rules.yaml")

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"invalid port", "database path", "invalid log level", "max upload", "rules file"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		level, err := (&Config{LogLevel: tt.in}).SlogLevel()
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, level, tt.in)
	}
}

func writeEmpty(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}
