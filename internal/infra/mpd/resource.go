package mpd

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fhs/gompd/v2/mpd"
	zlog "github.com/rs/zerolog/log"
)

// ErrResourceClosed is returned by a resource after Close.
var ErrResourceClosed = errors.New("mpd resource closed")

// Player is the subset of daemon commands a resource needs.
type Player interface {
	Status() (mpd.Attrs, error)
	Play(pos int) error
	Pause(pause bool) error
	Stop() error
	Seek(songPos, secs int) error
	SetVolume(vol int) error
	SetRepeat(on bool) error
	SetSingle(on bool) error
	Clear() error
	Add(uri string) error
}

// Resource is one background music source queued on the daemon.
// The daemon queue holds only this source while the resource is open.
type Resource struct {
	player Player
	url    string

	mu          sync.Mutex
	loaded      bool
	closed      bool
	pendingSeek time.Duration // Applied on the next play from a stopped state; -1 for none
}

// NewResource creates a resource for url. Nothing is sent to the daemon until Load.
func NewResource(player Player, url string) *Resource {
	return &Resource{
		player:      player,
		url:         url,
		pendingSeek: -1,
	}
}

// URL returns the source location.
func (r *Resource) URL() string {
	return r.url
}

// Load replaces the daemon queue with the source.
func (r *Resource) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrResourceClosed
	}
	if err := r.player.Clear(); err != nil {
		return errors.Wrap(err, "failed to clear queue")
	}
	if err := r.player.Add(r.url); err != nil {
		return errors.Wrapf(err, "failed to queue source: %s", r.url)
	}
	r.loaded = true
	zlog.Debug().Msgf("mpd: source queued: url=%s", r.url)
	return nil
}

// Play starts playback, or resumes it when paused.
func (r *Resource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(); err != nil {
		return err
	}

	status, err := r.player.Status()
	if err != nil {
		return errors.Wrap(err, "failed to read status")
	}

	switch status["state"] {
	case "play":
		return nil
	case "pause":
		return r.player.Pause(false)
	default:
		if err := r.player.Play(0); err != nil {
			return errors.Wrap(err, "failed to start playback")
		}
		if r.pendingSeek >= 0 {
			offset := r.pendingSeek
			r.pendingSeek = -1
			if err := r.player.Seek(0, seconds(offset)); err != nil {
				return errors.Wrapf(err, "failed to seek to %v", offset)
			}
		}
		return nil
	}
}

// Pause pauses playback. Pausing a stopped daemon is a no-op.
func (r *Resource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(); err != nil {
		return err
	}

	status, err := r.player.Status()
	if err != nil {
		return errors.Wrap(err, "failed to read status")
	}
	if status["state"] != "play" {
		return nil
	}
	return r.player.Pause(true)
}

// Seek moves the playback position. A stopped daemon cannot seek, so the
// offset is kept for the next Play.
func (r *Resource) Seek(offset time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(); err != nil {
		return err
	}
	if offset < 0 {
		offset = 0
	}

	status, err := r.player.Status()
	if err != nil {
		return errors.Wrap(err, "failed to read status")
	}
	if status["state"] == "stop" || status["state"] == "" {
		r.pendingSeek = offset
		return nil
	}

	pos := 0
	if v, err := strconv.Atoi(status["song"]); err == nil {
		pos = v
	}
	return r.player.Seek(pos, seconds(offset))
}

// Position returns the elapsed time and the track length (0 if unknown).
func (r *Resource) Position() (time.Duration, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkLocked(); err != nil {
		return 0, 0, err
	}

	status, err := r.player.Status()
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to read status")
	}
	elapsed, length := ParsePosition(status)
	return elapsed, length, nil
}

// SetVolume sets the daemon volume from a gain in [0,1].
func (r *Resource) SetVolume(gain float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrResourceClosed
	}
	return r.player.SetVolume(VolumeFromGain(gain))
}

// SetLoop makes the daemon repeat the single queued song.
func (r *Resource) SetLoop(loop bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrResourceClosed
	}
	if err := r.player.SetRepeat(loop); err != nil {
		return errors.Wrap(err, "failed to set repeat")
	}
	if err := r.player.SetSingle(loop); err != nil {
		return errors.Wrap(err, "failed to set single")
	}
	return nil
}

// Close stops playback and clears the queue. The daemon connection stays open.
func (r *Resource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if !r.loaded {
		return nil
	}
	if err := r.player.Stop(); err != nil {
		return errors.Wrap(err, "failed to stop playback")
	}
	if err := r.player.Clear(); err != nil {
		return errors.Wrap(err, "failed to clear queue")
	}
	return nil
}

func (r *Resource) checkLocked() error {
	if r.closed {
		return ErrResourceClosed
	}
	if !r.loaded {
		return errors.New("mpd resource not loaded")
	}
	return nil
}

// VolumeFromGain converts a gain in [0,1] to a daemon volume in [0,100].
// A positive gain never rounds down to silence.
func VolumeFromGain(gain float64) int {
	if math.IsNaN(gain) || gain <= 0 {
		return 0
	}
	if gain >= 1 {
		return 100
	}
	return max(1, int(math.Round(gain*100)))
}

// ParsePosition reads elapsed time and song length from a status response.
// Older daemons report both only through the "time" attribute as "elapsed:total".
func ParsePosition(status mpd.Attrs) (elapsed, length time.Duration) {
	elapsed = parseSeconds(status["elapsed"])
	length = parseSeconds(status["duration"])

	if t := status["time"]; t != "" && (elapsed == 0 || length == 0) {
		if a, b, ok := strings.Cut(t, ":"); ok {
			if elapsed == 0 {
				elapsed = parseSeconds(a)
			}
			if length == 0 {
				length = parseSeconds(b)
			}
		}
	}
	return elapsed, length
}

func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func seconds(d time.Duration) int {
	return int(math.Round(d.Seconds()))
}
