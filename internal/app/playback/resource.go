package playback

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/campusbgm/internal/app/unlock"
	"github.com/osa030/campusbgm/internal/domain/music"
)

// ErrAutoplayBlocked is returned by a guarded resource before the latch opens.
var ErrAutoplayBlocked = errors.New("playback not allowed before a visitor interaction")

// Resource is a single playable audio resource.
// The controller owns at most one at a time.
type Resource interface {
	// Load fetches and prepares the source. A failed load leaves the resource inert.
	Load() error
	// Play starts or resumes playback.
	Play() error
	// Pause pauses playback.
	Pause() error
	// Seek moves the playback position.
	Seek(offset time.Duration) error
	// Position returns the elapsed time and the track length (0 if unknown).
	Position() (elapsed, length time.Duration, err error)
	// SetVolume sets the output gain in [0,1].
	SetVolume(gain float64) error
	// SetLoop makes the resource restart at its natural end.
	SetLoop(loop bool) error
	// Close releases the resource. Later calls on it are no-ops or errors.
	Close() error
}

// Opener creates a resource for a source URL without loading it.
type Opener func(url string) Resource

// SettingsFetcher provides the current music settings.
type SettingsFetcher interface {
	FetchBackgroundMusicSettings(ctx context.Context) (music.Settings, error)
}

// SettingsFetcherFunc adapts a function to SettingsFetcher.
type SettingsFetcherFunc func(ctx context.Context) (music.Settings, error)

// FetchBackgroundMusicSettings calls f.
func (f SettingsFetcherFunc) FetchBackgroundMusicSettings(ctx context.Context) (music.Settings, error) {
	return f(ctx)
}

// GuardOpener wraps an opener so that every resource refuses to play until the
// latch has been unlocked. This applies a browser-style autoplay policy to
// output devices that have none.
func GuardOpener(open Opener, latch *unlock.Latch) Opener {
	return func(url string) Resource {
		return &guardedResource{Resource: open(url), latch: latch}
	}
}

type guardedResource struct {
	Resource
	latch *unlock.Latch
}

func (g *guardedResource) Play() error {
	if !g.latch.Unlocked() {
		return ErrAutoplayBlocked
	}
	return g.Resource.Play()
}
