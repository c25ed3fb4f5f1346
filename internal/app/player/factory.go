// Package player builds the audio output used by the playback controller.
package player

import (
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/campusbgm/internal/app/playback"
	"github.com/osa030/campusbgm/internal/app/unlock"
	"github.com/osa030/campusbgm/internal/infra/config"
	"github.com/osa030/campusbgm/internal/infra/mpd"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewOpenerFromConfig creates the resource opener selected by configuration.
// When playback.require_interaction is set, resources refuse to play until the
// latch is unlocked. The returned closer releases the output connection.
func NewOpenerFromConfig(cfg *config.Config, latch *unlock.Latch) (playback.Opener, io.Closer, error) {
	zlog.Debug().Msgf("creating player: type=%s settings=%+v", cfg.Player.Type, redact(cfg.Player.Settings))

	var (
		open   playback.Opener
		closer io.Closer
	)

	switch cfg.Player.Type {
	case "mpd", "":
		var c mpd.Config
		if err := decodeSettings(cfg.Player.Settings, &c); err != nil {
			return nil, nil, errors.Wrap(err, "invalid mpd settings")
		}
		client := mpd.NewClient(c)
		if err := client.Connect(); err != nil {
			// Commands reconnect on use
			zlog.Warn().Err(err).Msg("player: mpd not reachable yet")
		}
		open = func(url string) playback.Resource {
			return mpd.NewResource(client, url)
		}
		closer = client

	case "silent":
		var c SilentConfig
		if err := decodeSettings(cfg.Player.Settings, &c); err != nil {
			return nil, nil, errors.Wrap(err, "invalid silent settings")
		}
		length := time.Duration(c.TrackLengthSec * float64(time.Second))
		open = func(url string) playback.Resource {
			return NewSilentResource(url, length, nil)
		}
		closer = nopCloser{}

	default:
		return nil, nil, errors.Newf("unsupported player type: %s", cfg.Player.Type)
	}

	if cfg.Playback.RequireInteraction {
		if latch == nil {
			return nil, nil, errors.New("require_interaction needs an interaction latch")
		}
		open = playback.GuardOpener(open, latch)
		zlog.Info().Msg("player: playback waits for the first visitor interaction")
	}

	zlog.Info().Msgf("registered player: type=%s", cfg.Player.Type)
	return open, closer, nil
}

// decodeSettings decodes a settings map into out, applies defaults and validates it.
func decodeSettings(settings map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}

func redact(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		if k == "password" {
			v = "***"
		}
		out[k] = v
	}
	return out
}
