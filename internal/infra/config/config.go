// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/campusbgm/internal/domain/interaction"
)

// Config represents the application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Admin         AdminConfig         `yaml:"admin"`
	Playback      PlaybackConfig      `yaml:"playback"`
	Player        PlayerConfig        `yaml:"player"`
	SettingsStore SettingsStoreConfig `yaml:"settings_store"`
	Storage       StorageConfig       `yaml:"storage"`
	Upload        UploadConfig        `yaml:"upload"`
	Messages      MessagesConfig      `yaml:"messages"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// PlaybackConfig represents background music controller configuration.
type PlaybackConfig struct {
	RefreshIntervalSec    int      `yaml:"refresh_interval_sec" default:"30" validate:"gte=1,lte=3600"`
	FetchTimeoutSec       int      `yaml:"fetch_timeout_sec" default:"10" validate:"gte=1,lte=120"`
	WindowCheckIntervalMs int      `yaml:"window_check_interval_ms" default:"250" validate:"gte=10,lte=5000"`
	RequireInteraction    bool     `yaml:"require_interaction"`
	Triggers              []string `yaml:"triggers"`
}

// PlayerConfig selects the audio output.
type PlayerConfig struct {
	Type     string         `yaml:"type" default:"mpd" validate:"oneof=mpd silent"`
	Settings map[string]any `yaml:"settings"`
}

// SettingsStoreConfig selects the key/value site settings backend.
type SettingsStoreConfig struct {
	Type     string         `yaml:"type" default:"sqlite" validate:"oneof=sqlite redis rest"`
	Settings map[string]any `yaml:"settings"`
}

// StorageConfig represents audio blob storage configuration.
// Uploads are disabled when Endpoint is empty.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket" default:"public-assets"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	UseSSL        bool   `yaml:"use_ssl"`
	Region        string `yaml:"region"`
	PublicBaseURL string `yaml:"public_base_url" validate:"omitempty,url"`
}

// UploadConfig represents audio upload validation configuration.
type UploadConfig struct {
	MaxSizeMB int                   `yaml:"max_size_mb" default:"50" validate:"gte=1,lte=1024"`
	Rules     map[string]RuleConfig `yaml:"rules"`
}

// RuleConfig represents an upload rule's configuration.
type RuleConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// MessagesConfig represents admin-facing messages.
type MessagesConfig struct {
	Success         string `yaml:"success" default:"OK"`
	DefaultError    string `yaml:"default_error" default:"The request could not be processed."`
	UnsupportedType string `yaml:"unsupported_type" default:"Unsupported audio format. Use MP3, WAV, OGG, WebM, AAC or M4A."`
	FileTooLarge    string `yaml:"file_too_large" default:"The audio file is too large."`
	EmptyFile       string `yaml:"empty_file" default:"The audio file is empty."`
	ContentMismatch string `yaml:"content_mismatch" default:"The file content is not audio."`
	Unauthenticated string `yaml:"unauthenticated" default:"Sign in as an administrator first."`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Storage.SecretKey = v
	}
	if v := os.Getenv("SETTINGS_API_KEY"); v != "" && c.SettingsStore.Type == "rest" {
		c.SettingsStore.Settings = setKey(c.SettingsStore.Settings, "api_key", v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" && c.SettingsStore.Type == "redis" {
		c.SettingsStore.Settings = setKey(c.SettingsStore.Settings, "password", v)
	}
	if v := os.Getenv("MPD_PASSWORD"); v != "" && c.Player.Type != "silent" {
		c.Player.Settings = setKey(c.Player.Settings, "password", v)
	}
}

func setKey(m map[string]any, key string, value any) map[string]any {
	if m == nil {
		m = make(map[string]any)
	}
	m[key] = value
	return m
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "success":
		return c.Messages.Success
	case "unsupported_type":
		return c.Messages.UnsupportedType
	case "file_too_large":
		return c.Messages.FileTooLarge
	case "empty_file":
		return c.Messages.EmptyFile
	case "content_mismatch":
		return c.Messages.ContentMismatch
	case "unauthenticated":
		return c.Messages.Unauthenticated
	default:
		return c.Messages.DefaultError
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if _, err := interaction.ParseKinds(c.Playback.Triggers); err != nil {
		return errors.Wrap(err, "invalid playback.triggers")
	}

	if c.Storage.Endpoint != "" {
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return errors.New("storage.access_key and storage.secret_key are required when storage.endpoint is set")
		}
	}

	return nil
}

// RefreshInterval returns the settings refresh period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Playback.RefreshIntervalSec) * time.Second
}

// FetchTimeout returns the timeout of a single settings fetch.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Playback.FetchTimeoutSec) * time.Second
}

// WindowCheckInterval returns the loop window position check period.
func (c *Config) WindowCheckInterval() time.Duration {
	return time.Duration(c.Playback.WindowCheckIntervalMs) * time.Millisecond
}

// TriggerKinds returns the interaction kinds that unlock playback.
// An empty list means every known kind.
func (c *Config) TriggerKinds() []interaction.Kind {
	kinds, err := interaction.ParseKinds(c.Playback.Triggers)
	if err != nil || len(kinds) == 0 {
		return interaction.DefaultKinds()
	}
	return kinds
}

// UploadEnabled reports whether audio uploads have a storage backend.
func (c *Config) UploadEnabled() bool {
	return c.Storage.Endpoint != ""
}

// IsRuleEnabled checks if an upload rule is enabled.
func (c *Config) IsRuleEnabled(ruleName string) bool {
	if r, ok := c.Upload.Rules[ruleName]; ok {
		return r.Enabled
	}
	return false
}

// GetRuleSettings returns the settings for an upload rule.
func (c *Config) GetRuleSettings(ruleName string) map[string]any {
	if r, ok := c.Upload.Rules[ruleName]; ok {
		return r.Settings
	}
	return nil
}
