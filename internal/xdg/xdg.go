// ABOUTME: XDG Base Directory support for the chat client's config and state files
// ABOUTME: Resolves config, data, and cache homes with a HOME fallback chain

package xdg

import (
	"os"
	"path/filepath"
	"strings"
)

// AppName is the directory created under each XDG base.
const AppName = "wecare-chat"

type base struct {
	env      string
	fallback []string
}

var (
	configBase = base{env: "XDG_CONFIG_HOME", fallback: []string{".config"}}
	dataBase   = base{env: "XDG_DATA_HOME", fallback: []string{".local", "share"}}
	cacheBase  = base{env: "XDG_CACHE_HOME", fallback: []string{".cache"}}
)

func (b base) root() string {
	if dir := os.Getenv(b.env); dir != "" {
		return dir
	}
	return filepath.Join(append([]string{getHome()}, b.fallback...)...)
}

// ConfigHome returns ~/.config/wecare-chat or respects XDG_CONFIG_HOME.
func ConfigHome() string {
	return filepath.Join(configBase.root(), AppName)
}

// DataHome returns ~/.local/share/wecare-chat or respects XDG_DATA_HOME.
func DataHome() string {
	return filepath.Join(dataBase.root(), AppName)
}

// CacheHome returns ~/.cache/wecare-chat or respects XDG_CACHE_HOME.
func CacheHome() string {
	return filepath.Join(cacheBase.root(), AppName)
}

// ExpandPath expands a leading ~/ or $XDG_* variable in a configured path.
// $XDG_* variables expand to the generic base, not the app directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(getHome(), path[2:])
	}

	for _, b := range []base{dataBase, configBase, cacheBase} {
		prefix := "$" + b.env
		if strings.HasPrefix(path, prefix) {
			return strings.Replace(path, prefix, b.root(), 1)
		}
	}

	return path
}

// getHome returns HOME, falling back to the working directory so paths never
// resolve relative to the filesystem root.
func getHome() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	return "."
}
