// ABOUTME: Unit tests for chat client configuration loading and validation
// ABOUTME: Tests defaults, file loading, env overrides, .env files, and clamping

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:5000/api", cfg.Backend.BaseURL)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1000, cfg.Retry.BaseDelayMs)
	assert.Equal(t, 10, cfg.Notifications.TTLSeconds)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxBytes)
	assert.Contains(t, cfg.Upload.AllowedTypes, "application/pdf")
	assert.False(t, cfg.Escalation.Sticky)
}

func TestLoadConfig_NoFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retry.MaxAttempts)

	configPath := filepath.Join(tmpDir, "wecare-chat", "config.yaml")
	_, err = os.Stat(configPath)
	assert.NoError(t, err, "config file should be created")
}

func TestLoadConfig_ExistingFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `backend:
  base_url: "https://care.example.com/api/"
  timeout_seconds: 12
user:
  id: "patient-42"
retry:
  max_attempts: 5
escalation:
  sticky: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://care.example.com/api", cfg.Backend.BaseURL, "trailing slash trimmed")
	assert.Equal(t, 12, cfg.Backend.TimeoutSeconds)
	assert.Equal(t, "patient-42", cfg.User.ID)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.Escalation.Sticky)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, 10, cfg.Notifications.TTLSeconds)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("user:\n  id: from-file\n"), 0644))

	t.Setenv("WECARE_USER_ID", "from-env")
	t.Setenv("WECARE_RETRY_MAX_ATTEMPTS", "4")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.User.ID)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `backend:
  base_url: "http://localhost
retry: [unclosed
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadEnvFiles(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("WECARE_TEST_DOTENV=loaded\n"), 0644))
	t.Cleanup(func() { _ = os.Unsetenv("WECARE_TEST_DOTENV") })

	err := LoadEnvFiles(filepath.Join(tmpDir, "missing.env"), envPath)
	require.NoError(t, err)

	assert.Equal(t, "loaded", os.Getenv("WECARE_TEST_DOTENV"))
}

func TestValidate_RetryAttempts(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"below minimum", 0, 1},
		{"at minimum", 1, 1},
		{"in range", 3, 3},
		{"above maximum", 50, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Retry.MaxAttempts = tt.input
			cfg.Validate()
			assert.Equal(t, tt.expected, cfg.Retry.MaxAttempts)
		})
	}
}

func TestValidate_UploadLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Upload.MaxBytes = 0
	cfg.Upload.AllowedTypes = nil
	cfg.Validate()

	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Upload.MaxBytes)
	assert.Equal(t, DefaultAllowedTypes, cfg.Upload.AllowedTypes)

	cfg.Upload.MaxBytes = 50 * 1024 * 1024
	cfg.Validate()
	assert.Equal(t, int64(DefaultMaxUploadBytes), cfg.Upload.MaxBytes, "limit cannot be raised above 10MB")
}

func TestValidate_ExpandsPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")

	cfg := DefaultConfig()
	cfg.Validate()

	assert.Equal(t, filepath.Join(home, ".local", "share", "wecare-chat", "state.db"), cfg.Store.Path)
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Second, cfg.RetryBaseDelay())
	assert.Equal(t, 10*time.Second, cfg.NotificationTTL())
	assert.Equal(t, 30*time.Second, cfg.BackendTimeout())
	assert.Equal(t, 5*time.Second, cfg.ProbeInterval())
}
