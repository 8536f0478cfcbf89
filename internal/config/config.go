// ABOUTME: Configuration loading for the chat client with XDG-compliant file location
// ABOUTME: YAML file with defaults, WECARE_* environment overrides, and .env support

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dheeraj009joshi/WeCare-sub002/internal/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. WECARE_BACKEND_BASE_URL.
const EnvPrefix = "WECARE"

type Config struct {
	Backend       BackendConfig       `yaml:"backend" mapstructure:"backend"`
	User          UserConfig          `yaml:"user" mapstructure:"user"`
	Retry         RetryConfig         `yaml:"retry" mapstructure:"retry"`
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
	Network       NetworkConfig       `yaml:"network" mapstructure:"network"`
	Upload        UploadConfig        `yaml:"upload" mapstructure:"upload"`
	Escalation    EscalationConfig    `yaml:"escalation" mapstructure:"escalation"`
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	UI            UIConfig            `yaml:"ui" mapstructure:"ui"`
	Logging       LoggingConfig       `yaml:"logging" mapstructure:"logging"`
}

type BackendConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type UserConfig struct {
	ID string `yaml:"id" mapstructure:"id"`
}

type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
}

type NotificationsConfig struct {
	TTLSeconds int `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
	MaxVisible int `yaml:"max_visible" mapstructure:"max_visible"`
}

type NetworkConfig struct {
	ProbeIntervalSeconds int `yaml:"probe_interval_seconds" mapstructure:"probe_interval_seconds"`
	ProbeTimeoutSeconds  int `yaml:"probe_timeout_seconds" mapstructure:"probe_timeout_seconds"`
}

type UploadConfig struct {
	MaxBytes     int64    `yaml:"max_bytes" mapstructure:"max_bytes"`
	AllowedTypes []string `yaml:"allowed_types" mapstructure:"allowed_types"`
}

type EscalationConfig struct {
	// Sticky keeps escalation links until dismissed instead of clearing them
	// on the next non-escalating reply.
	Sticky bool `yaml:"sticky" mapstructure:"sticky"`
}

type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type UIConfig struct {
	Theme string `yaml:"theme" mapstructure:"theme"`
}

type LoggingConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" mapstructure:"level"`
	File    string `yaml:"file" mapstructure:"file"`
}

// DefaultAllowedTypes are the MIME types accepted for chat attachments.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/plain",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

const (
	DefaultMaxUploadBytes = 10 * 1024 * 1024
	maxRetryAttempts      = 10
)

func DefaultConfig() *Config {
	allowed := make([]string, len(DefaultAllowedTypes))
	copy(allowed, DefaultAllowedTypes)

	return &Config{
		Backend: BackendConfig{
			BaseURL:        "http://localhost:5000/api",
			TimeoutSeconds: 30,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMs: 1000,
		},
		Notifications: NotificationsConfig{
			TTLSeconds: 10,
			MaxVisible: 3,
		},
		Network: NetworkConfig{
			ProbeIntervalSeconds: 5,
			ProbeTimeoutSeconds:  3,
		},
		Upload: UploadConfig{
			MaxBytes:     DefaultMaxUploadBytes,
			AllowedTypes: allowed,
		},
		Escalation: EscalationConfig{
			Sticky: false,
		},
		Store: StoreConfig{
			Path: "$XDG_DATA_HOME/wecare-chat/state.db",
		},
		UI: UIConfig{
			Theme: "default",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			File:    "$XDG_DATA_HOME/wecare-chat/chat.log",
		},
	}
}

// DefaultPath is the config file used when no path is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome(), "config.yaml")
}

// LoadEnvFiles loads .env style files into the process environment. Missing
// files are skipped; existing variables are never overwritten.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the config file, creating it with defaults if it does not exist,
// then applies WECARE_* environment overrides.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath()
	}

	defaults := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Defaults still apply if the file cannot be written.
		_ = saveDefault(defaults, configPath)
	}

	v := viper.New()
	if err := setDefaults(v, defaults); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Validate()
	return cfg, nil
}

// setDefaults registers every default key with viper so AutomaticEnv can
// override keys that are absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	flatten("", tree, v.SetDefault)
	return nil
}

func flatten(prefix string, tree map[string]interface{}, set func(string, interface{})) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]interface{}); ok {
			flatten(key, sub, set)
			continue
		}
		set(key, val)
	}
}

func (c *Config) Validate() {
	if c.Retry.MaxAttempts < 1 {
		c.Retry.MaxAttempts = 1
	}
	if c.Retry.MaxAttempts > maxRetryAttempts {
		c.Retry.MaxAttempts = maxRetryAttempts
	}
	if c.Retry.BaseDelayMs < 0 {
		c.Retry.BaseDelayMs = 0
	}

	if c.Notifications.TTLSeconds < 1 {
		c.Notifications.TTLSeconds = 1
	}
	if c.Notifications.MaxVisible < 1 {
		c.Notifications.MaxVisible = 1
	}

	if c.Network.ProbeIntervalSeconds < 1 {
		c.Network.ProbeIntervalSeconds = 1
	}
	if c.Network.ProbeTimeoutSeconds < 1 {
		c.Network.ProbeTimeoutSeconds = 1
	}

	if c.Backend.TimeoutSeconds < 1 {
		c.Backend.TimeoutSeconds = 1
	}
	c.Backend.BaseURL = strings.TrimRight(c.Backend.BaseURL, "/")

	if c.Upload.MaxBytes <= 0 || c.Upload.MaxBytes > DefaultMaxUploadBytes {
		c.Upload.MaxBytes = DefaultMaxUploadBytes
	}
	if len(c.Upload.AllowedTypes) == 0 {
		c.Upload.AllowedTypes = append([]string(nil), DefaultAllowedTypes...)
	}

	c.User.ID = strings.TrimSpace(c.User.ID)

	c.Store.Path = xdg.ExpandPath(c.Store.Path)
	c.Logging.File = xdg.ExpandPath(c.Logging.File)
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMs) * time.Millisecond
}

func (c *Config) NotificationTTL() time.Duration {
	return time.Duration(c.Notifications.TTLSeconds) * time.Second
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.Network.ProbeIntervalSeconds) * time.Second
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Network.ProbeTimeoutSeconds) * time.Second
}

func saveDefault(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
