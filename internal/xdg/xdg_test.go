// ABOUTME: Tests for XDG Base Directory support
// ABOUTME: Covers env overrides, HOME fallback, and path expansion

package xdg

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHomes_DefaultToHOME(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")

	assert.Equal(t, filepath.Join(home, ".config", AppName), ConfigHome())
	assert.Equal(t, filepath.Join(home, ".local", "share", AppName), DataHome())
	assert.Equal(t, filepath.Join(home, ".cache", AppName), CacheHome())
}

func TestHomes_RespectEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/custom-config")
	t.Setenv("XDG_DATA_HOME", "/tmp/custom-data")
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")

	assert.Equal(t, filepath.Join("/tmp/custom-config", AppName), ConfigHome())
	assert.Equal(t, filepath.Join("/tmp/custom-data", AppName), DataHome())
	assert.Equal(t, filepath.Join("/tmp/custom-cache", AppName), CacheHome())
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tilde", "~/chat/state.db", filepath.Join(home, "chat", "state.db")},
		{"data home", "$XDG_DATA_HOME/wecare-chat/state.db", filepath.Join(home, ".local", "share", "wecare-chat", "state.db")},
		{"config home", "$XDG_CONFIG_HOME/wecare-chat/config.yaml", filepath.Join(home, ".config", "wecare-chat", "config.yaml")},
		{"cache home", "$XDG_CACHE_HOME/wecare-chat/uploads", filepath.Join(home, ".cache", "wecare-chat", "uploads")},
		{"absolute passes through", "/absolute/path", "/absolute/path"},
		{"relative passes through", "relative/path", "relative/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.input))
		})
	}
}

func TestExpandPath_MissingHOME(t *testing.T) {
	t.Setenv("HOME", "")
	t.Setenv("XDG_DATA_HOME", "")

	got := ExpandPath("$XDG_DATA_HOME/wecare-chat/state.db")

	if filepath.IsAbs(got) && filepath.Dir(filepath.Dir(got)) == "/" {
		t.Errorf("ExpandPath with missing HOME created root path: %q", got)
	}
	assert.NotEqual(t, "$XDG_DATA_HOME/wecare-chat/state.db", got)
}
