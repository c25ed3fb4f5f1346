package settings

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/campusbgm/internal/infra/config"
	"github.com/osa030/campusbgm/internal/infra/redisstore"
	"github.com/osa030/campusbgm/internal/infra/rest"
	"github.com/osa030/campusbgm/internal/infra/sqlite"
)

// StoreCloser is a store that holds a connection.
type StoreCloser interface {
	Store
	io.Closer
}

type nopCloser struct{ Store }

func (nopCloser) Close() error { return nil }

// NewStoreFromConfig creates the settings backend selected by configuration.
func NewStoreFromConfig(ctx context.Context, cfg config.SettingsStoreConfig) (StoreCloser, error) {
	zlog.Debug().Msgf("settings: creating store: type=%s", cfg.Type)

	switch cfg.Type {
	case "sqlite", "":
		var c sqlite.Config
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, errors.Wrap(err, "invalid sqlite settings")
		}
		store, err := sqlite.Open(ctx, c)
		if err != nil {
			return nil, err
		}
		return store, nil

	case "redis":
		var c redisstore.Config
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, errors.Wrap(err, "invalid redis settings")
		}
		store, err := redisstore.New(ctx, c)
		if err != nil {
			return nil, err
		}
		return store, nil

	case "rest":
		var c rest.Config
		if err := decodeSettings(cfg.Settings, &c); err != nil {
			return nil, errors.Wrap(err, "invalid rest settings")
		}
		client, err := rest.New(c)
		if err != nil {
			return nil, err
		}
		return nopCloser{client}, nil

	default:
		return nil, errors.Newf("unsupported settings store type: %s", cfg.Type)
	}
}

// decodeSettings decodes a settings map into out, applies defaults and validates it.
func decodeSettings(settings map[string]any, out any) error {
	if len(settings) > 0 {
		if err := mapstructure.Decode(settings, out); err != nil {
			return errors.Wrap(err, "failed to decode settings")
		}
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
