package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/campusbgm/internal/domain/interaction"
)

func validConfig() Config {
	return Config{
		Admin: AdminConfig{Token: "test-admin-token"},
		Playback: PlaybackConfig{
			RefreshIntervalSec:    30,
			FetchTimeoutSec:       10,
			WindowCheckIntervalMs: 250,
		},
		Player:        PlayerConfig{Type: "mpd"},
		SettingsStore: SettingsStoreConfig{Type: "sqlite"},
		Upload:        UploadConfig{MaxSizeMB: 50},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing admin token",
			modify:  func(c *Config) { c.Admin.Token = "" },
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name:    "refresh interval too small",
			modify:  func(c *Config) { c.Playback.RefreshIntervalSec = 0 },
			wantErr: true,
			errMsg:  "RefreshIntervalSec",
		},
		{
			name:    "unknown player type",
			modify:  func(c *Config) { c.Player.Type = "vlc" },
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "unknown settings store type",
			modify:  func(c *Config) { c.SettingsStore.Type = "postgres" },
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "unknown trigger",
			modify:  func(c *Config) { c.Playback.Triggers = []string{"click", "hover"} },
			wantErr: true,
			errMsg:  "triggers",
		},
		{
			name:    "dom style triggers",
			modify:  func(c *Config) { c.Playback.Triggers = []string{"touch-start", "keyDown"} },
			wantErr: false,
		},
		{
			name: "storage without credentials",
			modify: func(c *Config) {
				c.Storage.Endpoint = "localhost:9000"
			},
			wantErr: true,
			errMsg:  "access_key",
		},
		{
			name: "storage with credentials",
			modify: func(c *Config) {
				c.Storage = StorageConfig{
					Endpoint:      "localhost:9000",
					Bucket:        "public-assets",
					AccessKey:     "minio",
					SecretKey:     "minio123",
					PublicBaseURL: "http://localhost:9000/public-assets",
				}
			},
			wantErr: false,
		},
		{
			name:    "invalid public base url",
			modify:  func(c *Config) { c.Storage.PublicBaseURL = "not a url" },
			wantErr: true,
			errMsg:  "PublicBaseURL",
		},
		{
			name:    "upload size limit out of range",
			modify:  func(c *Config) { c.Upload.MaxSizeMB = 0 },
			wantErr: true,
			errMsg:  "MaxSizeMB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
admin:
  token: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval())
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.WindowCheckInterval())
	assert.Equal(t, "mpd", cfg.Player.Type)
	assert.Equal(t, "sqlite", cfg.SettingsStore.Type)
	assert.Equal(t, "public-assets", cfg.Storage.Bucket)
	assert.Equal(t, 50, cfg.Upload.MaxSizeMB)
	assert.Equal(t, interaction.DefaultKinds(), cfg.TriggerKinds())
	assert.False(t, cfg.UploadEnabled())
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
admin:
  token: secret
playback:
  refresh_interval_sec: 5
  require_interaction: true
  triggers: [click, keydown]
player:
  type: silent
settings_store:
  type: redis
  settings:
    addr: localhost:6379
upload:
  rules:
    mime_type_rule:
      enabled: true
    content_sniff_rule:
      enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval())
	assert.True(t, cfg.Playback.RequireInteraction)
	assert.Equal(t, []interaction.Kind{interaction.KindClick, interaction.KindKeyDown}, cfg.TriggerKinds())
	assert.Equal(t, "silent", cfg.Player.Type)
	assert.Equal(t, "localhost:6379", cfg.SettingsStore.Settings["addr"])
	assert.True(t, cfg.IsRuleEnabled("mime_type_rule"))
	assert.False(t, cfg.IsRuleEnabled("content_sniff_rule"))
	assert.False(t, cfg.IsRuleEnabled("size_limit_rule"))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "from-env")
	t.Setenv("MINIO_ACCESS_KEY", "access")
	t.Setenv("MINIO_SECRET_KEY", "secret")
	t.Setenv("SETTINGS_API_KEY", "anon-key")
	t.Setenv("MPD_PASSWORD", "mpd-pass")

	path := writeConfig(t, `
admin:
  token: from-file
settings_store:
  type: rest
  settings:
    base_url: https://example.supabase.co
storage:
  endpoint: localhost:9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Admin.Token)
	assert.Equal(t, "access", cfg.Storage.AccessKey)
	assert.Equal(t, "secret", cfg.Storage.SecretKey)
	assert.Equal(t, "anon-key", cfg.SettingsStore.Settings["api_key"])
	assert.Equal(t, "mpd-pass", cfg.Player.Settings["password"])
	assert.True(t, cfg.UploadEnabled())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeConfig(t, "admin: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = Load(writeConfig(t, "server:\n  addr: \":1\"\n"))
	assert.ErrorContains(t, err, "config validation failed")
}

func TestConfig_GetMessage(t *testing.T) {
	cfg := validConfig()
	cfg.Messages = MessagesConfig{
		Success:         "ok",
		DefaultError:    "error",
		UnsupportedType: "type",
		FileTooLarge:    "large",
		EmptyFile:       "empty",
		ContentMismatch: "mismatch",
		Unauthenticated: "auth",
	}

	tests := []struct {
		code string
		want string
	}{
		{"success", "ok"},
		{"unsupported_type", "type"},
		{"file_too_large", "large"},
		{"empty_file", "empty"},
		{"content_mismatch", "mismatch"},
		{"unauthenticated", "auth"},
		{"something_else", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.GetMessage(tt.code))
		})
	}
}

func TestConfig_GetRuleSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Upload.Rules = map[string]RuleConfig{
		"size_limit_rule": {Enabled: true, Settings: map[string]any{"max_mb": 10}},
	}

	assert.Equal(t, map[string]any{"max_mb": 10}, cfg.GetRuleSettings("size_limit_rule"))
	assert.Nil(t, cfg.GetRuleSettings("mime_type_rule"))
}
