package player

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrSilentClosed is returned by a closed silent resource.
var ErrSilentClosed = errors.New("silent resource closed")

// SilentConfig represents the settings of the silent output.
type SilentConfig struct {
	// Simulated track length; 0 means unknown.
	TrackLengthSec float64 `mapstructure:"track_length_sec" validate:"gte=0"`
}

// SilentResource simulates playback without producing sound.
// Its position advances with the clock while playing.
type SilentResource struct {
	mu      sync.Mutex
	url     string
	length  time.Duration
	now     func() time.Time
	loaded  bool
	closed  bool
	playing bool
	loop    bool
	gain    float64
	offset  time.Duration // Position when playback last started or paused
	since   time.Time     // Wall time playback last started
}

// NewSilentResource creates a silent resource.
func NewSilentResource(url string, length time.Duration, now func() time.Time) *SilentResource {
	if now == nil {
		now = time.Now
	}
	return &SilentResource{url: url, length: length, now: now}
}

func (r *SilentResource) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrSilentClosed
	}
	if r.url == "" {
		return errors.New("no source url")
	}
	r.loaded = true
	zlog.Debug().Msgf("silent: loaded: url=%s", r.url)
	return nil
}

func (r *SilentResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(); err != nil {
		return err
	}
	if !r.playing {
		r.playing = true
		r.since = r.now()
		zlog.Debug().Msgf("silent: playing: url=%s at=%s", r.url, r.offset)
	}
	return nil
}

func (r *SilentResource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(); err != nil {
		return err
	}
	if r.playing {
		r.offset = r.positionLocked()
		r.playing = false
	}
	return nil
}

func (r *SilentResource) Seek(offset time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(); err != nil {
		return err
	}
	if offset < 0 {
		offset = 0
	}
	r.offset = offset
	r.since = r.now()
	return nil
}

func (r *SilentResource) Position() (time.Duration, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(); err != nil {
		return 0, 0, err
	}
	return r.positionLocked(), r.length, nil
}

func (r *SilentResource) SetVolume(gain float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrSilentClosed
	}
	r.gain = gain
	return nil
}

// Volume returns the last gain set.
func (r *SilentResource) Volume() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gain
}

func (r *SilentResource) SetLoop(loop bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrSilentClosed
	}
	r.loop = loop
	return nil
}

// Playing reports whether the resource is playing.
func (r *SilentResource) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing && !r.ended()
}

func (r *SilentResource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.playing = false
	zlog.Debug().Msgf("silent: closed: url=%s", r.url)
	return nil
}

func (r *SilentResource) checkLocked() error {
	if r.closed {
		return ErrSilentClosed
	}
	if !r.loaded {
		return errors.New("silent resource not loaded")
	}
	return nil
}

// ended reports whether a non-looping resource ran past its length (must hold lock).
func (r *SilentResource) ended() bool {
	return !r.loop && r.length > 0 && r.rawPositionLocked() >= r.length
}

func (r *SilentResource) rawPositionLocked() time.Duration {
	if !r.playing {
		return r.offset
	}
	return r.offset + r.now().Sub(r.since)
}

func (r *SilentResource) positionLocked() time.Duration {
	pos := r.rawPositionLocked()
	if r.length <= 0 {
		return pos
	}
	if r.loop {
		return pos % r.length
	}
	if pos > r.length {
		return r.length
	}
	return pos
}
