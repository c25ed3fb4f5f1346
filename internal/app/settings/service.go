// Package settings provides access to the key/value site settings and the
// background music settings stored among them.
package settings

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/campusbgm/internal/domain/music"
)

// Errors
var (
	ErrSettingNotFound = errors.New("setting not found")
	ErrInvalidKey      = errors.New("invalid setting key")
	ErrInvalidValue    = errors.New("invalid setting value")
)

// Store is a key/value settings backend.
type Store interface {
	All(ctx context.Context) (map[string]string, error)
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Config holds service configuration.
type Config struct {
	MaxRetries int           // Attempts per read, including the first
	RetryDelay time.Duration // Base delay, multiplied by the attempt number
}

// Service reads and writes site settings with retries on transient failures.
type Service struct {
	store      Store
	maxRetries int
	retryDelay time.Duration
}

// NewService creates a new settings service.
func NewService(store Store, cfg Config) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Service{
		store:      store,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// FetchSiteSettings returns every site setting.
func (s *Service) FetchSiteSettings(ctx context.Context) (map[string]string, error) {
	var values map[string]string
	err := s.retry(ctx, func() error {
		var err error
		values, err = s.store.All(ctx)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch site settings")
	}
	return values, nil
}

// GetSiteSetting returns a single setting or ErrSettingNotFound.
func (s *Service) GetSiteSetting(ctx context.Context, key string) (string, error) {
	var (
		value string
		ok    bool
	)
	err := s.retry(ctx, func() error {
		var err error
		value, ok, err = s.store.Get(ctx, key)
		return err
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to fetch site setting: %s", key)
	}
	if !ok {
		return "", errors.Wrapf(ErrSettingNotFound, "%s", key)
	}
	return value, nil
}

// UpdateSiteSetting writes a single setting. Values for background music keys
// must parse as their typed field.
func (s *Service) UpdateSiteSetting(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.Wrap(ErrInvalidKey, "key is empty")
	}
	if isMusicKey(key) {
		if _, err := music.FromValues(map[string]string{key: value}); err != nil {
			return errors.Wrapf(errors.Mark(err, ErrInvalidValue), "invalid value for %s", key)
		}
	}

	if err := s.store.Set(ctx, key, value); err != nil {
		return errors.Wrapf(err, "failed to update site setting: %s", key)
	}
	zlog.Info().Msgf("settings: site setting updated: key=%s", key)
	return nil
}

// FetchBackgroundMusicSettings returns the music settings.
// Fetch failures are returned; invalid or missing values yield disabled settings.
func (s *Service) FetchBackgroundMusicSettings(ctx context.Context) (music.Settings, error) {
	values, err := s.FetchSiteSettings(ctx)
	if err != nil {
		return music.Settings{}, err
	}

	settings, err := music.FromValues(values)
	if err != nil {
		zlog.Warn().Err(err).Msg("settings: invalid background music settings, treating as disabled")
		return music.Disabled(), nil
	}
	return settings, nil
}

// UpdateBackgroundMusicSettings validates and writes every music settings key.
// The store has no transactions, so the enabled flag is ordered around the
// other keys: disabling writes it first and enabling writes it last. A write
// that fails partway never leaves playback enabled on a mix of old and new values.
func (s *Service) UpdateBackgroundMusicSettings(ctx context.Context, settings music.Settings) error {
	if err := settings.Validate(); err != nil {
		return errors.Wrap(errors.Mark(err, ErrInvalidValue), "invalid background music settings")
	}

	values := settings.Values()
	for i, key := range writeOrder(settings.Enabled) {
		if err := s.store.Set(ctx, key, values[key]); err != nil {
			return errors.Wrapf(err, "failed to update site setting after %d of %d keys: %s", i, len(values), key)
		}
	}
	zlog.Info().Msgf("settings: background music updated: enabled=%v url=%s volume=%.2f start=%v end=%v duration=%v",
		settings.Enabled, settings.URL, settings.Volume, settings.StartTime, settings.EndTime, settings.Duration)
	return nil
}

// writeOrder returns the music keys with the enabled flag first when
// disabling and last when enabling.
func writeOrder(enabled bool) []string {
	keys := make([]string, 0, len(music.Keys()))
	for _, k := range music.Keys() {
		if k != music.KeyEnabled {
			keys = append(keys, k)
		}
	}
	if enabled {
		return append(keys, music.KeyEnabled)
	}
	return append([]string{music.KeyEnabled}, keys...)
}

func isMusicKey(key string) bool {
	for _, k := range music.Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// retry retries an operation with linear backoff while the error is retryable.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < s.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < s.maxRetries-1 {
			zlog.Debug().Err(err).Msgf("settings: retrying: attempt=%d", i+1)
			select {
			case <-ctx.Done():
				return errors.Wrap(lastErr, "retry cancelled")
			case <-time.After(s.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Rate limits, server errors and busy or unreachable backends are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "i/o timeout")
}
