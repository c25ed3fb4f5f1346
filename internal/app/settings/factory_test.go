package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/campusbgm/internal/infra/config"
	"github.com/osa030/campusbgm/internal/infra/rest"
	"github.com/osa030/campusbgm/internal/infra/sqlite"
)

func TestNewStoreFromConfig_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	store, err := NewStoreFromConfig(context.Background(), config.SettingsStoreConfig{
		Type:     "sqlite",
		Settings: map[string]any{"path": path},
	})
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &sqlite.Store{}, store)

	svc := newTestService(store)
	require.NoError(t, svc.UpdateSiteSetting(context.Background(), "site_title", "Sakura Elementary"))
	v, err := svc.GetSiteSetting(context.Background(), "site_title")
	require.NoError(t, err)
	assert.Equal(t, "Sakura Elementary", v)
}

func TestNewStoreFromConfig_REST(t *testing.T) {
	store, err := NewStoreFromConfig(context.Background(), config.SettingsStoreConfig{
		Type: "rest",
		Settings: map[string]any{
			"base_url": "https://example.supabase.co",
			"api_key":  "anon-key",
		},
	})
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	wrapped, ok := store.(nopCloser)
	require.True(t, ok)
	assert.IsType(t, &rest.Client{}, wrapped.Store)
}

func TestNewStoreFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.SettingsStoreConfig
		errMsg string
	}{
		{
			name:   "unknown type",
			cfg:    config.SettingsStoreConfig{Type: "etcd"},
			errMsg: "unsupported settings store type",
		},
		{
			name:   "rest without api key",
			cfg:    config.SettingsStoreConfig{Type: "rest", Settings: map[string]any{"base_url": "https://example.supabase.co"}},
			errMsg: "invalid rest settings",
		},
		{
			name:   "rest with invalid url",
			cfg:    config.SettingsStoreConfig{Type: "rest", Settings: map[string]any{"base_url": "nope", "api_key": "k"}},
			errMsg: "invalid rest settings",
		},
		{
			name:   "wrong settings type",
			cfg:    config.SettingsStoreConfig{Type: "redis", Settings: map[string]any{"db": "zero"}},
			errMsg: "invalid redis settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStoreFromConfig(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
