package mpd

import (
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fhs/gompd/v2/mpd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlayer emulates the daemon state relevant to a single queued song.
type fakePlayer struct {
	commands []string
	state    string
	elapsed  float64
	duration float64
	volume   int
	queue    []string
	addErr   error
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{state: "stop", volume: -1}
}

func (p *fakePlayer) record(format string, args ...any) {
	p.commands = append(p.commands, fmt.Sprintf(format, args...))
}

func (p *fakePlayer) Status() (mpd.Attrs, error) {
	return mpd.Attrs{
		"state":    p.state,
		"song":     "0",
		"elapsed":  fmt.Sprintf("%.3f", p.elapsed),
		"duration": fmt.Sprintf("%.3f", p.duration),
	}, nil
}

func (p *fakePlayer) Play(pos int) error {
	p.record("play %d", pos)
	p.state = "play"
	return nil
}

func (p *fakePlayer) Pause(pause bool) error {
	p.record("pause %v", pause)
	if pause {
		p.state = "pause"
	} else {
		p.state = "play"
	}
	return nil
}

func (p *fakePlayer) Stop() error {
	p.record("stop")
	p.state = "stop"
	return nil
}

func (p *fakePlayer) Seek(songPos, secs int) error {
	p.record("seek %d %d", songPos, secs)
	p.elapsed = float64(secs)
	return nil
}

func (p *fakePlayer) SetVolume(vol int) error {
	p.record("setvol %d", vol)
	p.volume = vol
	return nil
}

func (p *fakePlayer) SetRepeat(on bool) error {
	p.record("repeat %v", on)
	return nil
}

func (p *fakePlayer) SetSingle(on bool) error {
	p.record("single %v", on)
	return nil
}

func (p *fakePlayer) Clear() error {
	p.record("clear")
	p.queue = nil
	return nil
}

func (p *fakePlayer) Add(uri string) error {
	p.record("add %s", uri)
	if p.addErr != nil {
		return p.addErr
	}
	p.queue = append(p.queue, uri)
	return nil
}

func TestResource_LoadAndLoop(t *testing.T) {
	p := newFakePlayer()
	r := NewResource(p, "https://x/a.mp3")

	require.NoError(t, r.Load())
	require.NoError(t, r.SetLoop(true))
	require.NoError(t, r.SetVolume(0.0032))

	assert.Equal(t, []string{"https://x/a.mp3"}, p.queue)
	assert.Equal(t, []string{
		"clear",
		"add https://x/a.mp3",
		"repeat true",
		"single true",
		"setvol 1",
	}, p.commands)
}

func TestResource_LoadFailure(t *testing.T) {
	p := newFakePlayer()
	p.addErr = errors.New("command 'add' failed: No such directory")
	r := NewResource(p, "https://x/missing.mp3")

	err := r.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to queue source")

	assert.Error(t, r.Play(), "play on an unloaded resource fails")
	assert.NoError(t, r.Close())
	assert.Equal(t, []string{"clear", "add https://x/missing.mp3"}, p.commands)
}

func TestResource_SeekBeforePlay(t *testing.T) {
	p := newFakePlayer()
	r := NewResource(p, "https://x/a.mp3")
	require.NoError(t, r.Load())
	p.commands = nil

	require.NoError(t, r.Seek(10*time.Second))
	assert.Empty(t, p.commands, "stopped daemon defers the seek")

	require.NoError(t, r.Play())
	assert.Equal(t, []string{"play 0", "seek 0 10"}, p.commands)

	elapsed, _, err := r.Position()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, elapsed)
}

func TestResource_PauseResume(t *testing.T) {
	p := newFakePlayer()
	r := NewResource(p, "https://x/a.mp3")
	require.NoError(t, r.Load())
	p.commands = nil

	require.NoError(t, r.Pause(), "pausing a stopped daemon is a no-op")
	require.NoError(t, r.Play())
	require.NoError(t, r.Play(), "play while playing is a no-op")
	require.NoError(t, r.Pause())
	require.NoError(t, r.Play())

	assert.Equal(t, []string{"play 0", "pause true", "pause false"}, p.commands)
}

func TestResource_SeekWhilePlaying(t *testing.T) {
	p := newFakePlayer()
	r := NewResource(p, "https://x/a.mp3")
	require.NoError(t, r.Load())
	require.NoError(t, r.Play())
	p.commands = nil

	require.NoError(t, r.Seek(5*time.Second))
	assert.Equal(t, []string{"seek 0 5"}, p.commands)
}

func TestResource_Close(t *testing.T) {
	p := newFakePlayer()
	r := NewResource(p, "https://x/a.mp3")
	require.NoError(t, r.Load())
	require.NoError(t, r.Play())
	p.commands = nil

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, []string{"stop", "clear"}, p.commands)

	assert.ErrorIs(t, r.Play(), ErrResourceClosed)
	assert.ErrorIs(t, r.Pause(), ErrResourceClosed)
	assert.ErrorIs(t, r.SetVolume(1), ErrResourceClosed)
	assert.ErrorIs(t, r.Load(), ErrResourceClosed)
	_, _, err := r.Position()
	assert.ErrorIs(t, err, ErrResourceClosed)
}

func TestVolumeFromGain(t *testing.T) {
	tests := []struct {
		gain float64
		want int
	}{
		{-1, 0},
		{0, 0},
		{0.0032, 1},
		{0.176, 18},
		{0.5, 50},
		{1, 100},
		{2, 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.gain), func(t *testing.T) {
			assert.Equal(t, tt.want, VolumeFromGain(tt.gain))
		})
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		name        string
		status      mpd.Attrs
		wantElapsed time.Duration
		wantLength  time.Duration
	}{
		{
			name:        "elapsed and duration",
			status:      mpd.Attrs{"elapsed": "12.500", "duration": "180.250"},
			wantElapsed: 12500 * time.Millisecond,
			wantLength:  180250 * time.Millisecond,
		},
		{
			name:        "legacy time attribute",
			status:      mpd.Attrs{"time": "12:180"},
			wantElapsed: 12 * time.Second,
			wantLength:  180 * time.Second,
		},
		{
			name:        "stream without length",
			status:      mpd.Attrs{"elapsed": "3.000"},
			wantElapsed: 3 * time.Second,
		},
		{
			name:   "stopped",
			status: mpd.Attrs{"state": "stop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elapsed, length := ParsePosition(tt.status)
			assert.Equal(t, tt.wantElapsed, elapsed)
			assert.Equal(t, tt.wantLength, length)
		})
	}
}
