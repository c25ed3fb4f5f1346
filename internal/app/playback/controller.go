package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/campusbgm/internal/app/unlock"
	"github.com/osa030/campusbgm/internal/domain/interaction"
	"github.com/osa030/campusbgm/internal/domain/music"
)

// Errors
var (
	ErrAlreadyStarted = errors.New("controller already started")
	ErrClosed         = errors.New("controller closed")
)

// Config holds controller configuration.
type Config struct {
	RefreshInterval     time.Duration    // Settings refresh period
	FetchTimeout        time.Duration    // Timeout for a single settings fetch
	WindowCheckInterval time.Duration    // Position check period for loop windows
	TimerResolution     time.Duration    // Tick of the wall-clock stop timer
	Now                 func() time.Time // Clock, defaults to time.Now
}

func (c Config) withDefaults() Config {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = 30 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.WindowCheckInterval <= 0 {
		c.WindowCheckInterval = 250 * time.Millisecond
	}
	if c.TimerResolution <= 0 {
		c.TimerResolution = 100 * time.Millisecond
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Status is a snapshot of the controller.
type Status struct {
	State                State
	Settings             music.Settings
	HasSettings          bool
	URL                  string // Source loaded into the resource
	Gain                 float64
	HasAttemptedAutoplay bool
	Unlocked             bool
	ArmedTriggers        []interaction.Kind
	StartedAt            time.Time     // Last confirmed (re)start
	Elapsed              time.Duration // Position reported by the resource
	Length               time.Duration
	LastError            string
}

// Controller keeps one audio resource in sync with the music settings and
// starts playback once the resource is ready and a visitor interaction allows it.
type Controller struct {
	mu sync.Mutex

	config  Config
	fetcher SettingsFetcher
	open    Opener
	latch   *unlock.Latch

	// Settings
	state       State
	settings    music.Settings
	hasSettings bool

	// Playback session
	resource             Resource
	lastAppliedURL       string
	appliedGain          float64
	loadErr              error
	hasAttemptedAutoplay bool
	playPending          bool
	generation           uint64 // Bumped whenever the resource is replaced or released
	startedAt            time.Time
	lastErr              error

	// Timer
	window       music.Window // Window armed for the current playback
	windowSeq    uint64       // Bumped whenever the window is disarmed
	windowCancel func()       // Cancel function for the stop timer or loop monitor

	// Lifecycle
	poller  *Poller
	started bool
	closed  bool
	wg      sync.WaitGroup

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new background music controller.
func NewController(config Config, fetcher SettingsFetcher, open Opener, latch *unlock.Latch) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	if latch == nil {
		latch = unlock.New()
	}
	c := &Controller{
		config:  config.withDefaults(),
		fetcher: fetcher,
		open:    open,
		latch:   latch,
		state:   StateIdle,
		eventCh: make(chan Event, 32),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.poller = NewPoller(c.config.RefreshInterval, c.Refresh)
	return c
}

// Events returns the event channel. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Start mounts the controller: settings are fetched now and on every refresh
// interval, and interactions reported to the latch are watched.
// Cancelling ctx unmounts the controller.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.watchInteractions()

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.ctx.Done():
		}
	}()

	c.poller.Start(c.ctx)
	zlog.Info().Msgf("playback: controller started: refresh_interval=%v", c.config.RefreshInterval)
	return nil
}

// Refresh fetches the settings once and reconciles the resource against them.
// Fetch failures keep the current state.
func (c *Controller) Refresh(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
	defer cancel()

	settings, err := c.fetcher.FetchBackgroundMusicSettings(fetchCtx)
	if err != nil {
		if ctx.Err() == nil {
			zlog.Warn().Err(err).Msg("playback: failed to fetch music settings, keeping current state")
		}
		return
	}
	c.Apply(settings)
}

// Apply reconciles the playback session against the given settings.
func (c *Controller) Apply(settings music.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.settings = settings
	c.hasSettings = true

	if !settings.Active() {
		c.disableLocked()
		return
	}

	if c.resource == nil {
		c.loadLocked(settings, true)
		return
	}

	if settings.URL != c.lastAppliedURL {
		c.swapLocked(settings)
		return
	}

	c.applyVolumeLocked(settings, true)

	switch {
	case c.state == StatePlaying && settings.Window() != c.window:
		zlog.Info().Msgf("playback: window changed, re-arming: url=%s window=%s", c.lastAppliedURL, settings.Window().Mode())
		c.armWindowLocked(settings.Window())
	case c.state == StateLoaded && !c.hasAttemptedAutoplay && c.loadErr == nil:
		// A failed attempt is retried on refresh as well as on interaction.
		c.attemptPlayLocked("refresh")
	}
}

// Interact feeds a visitor interaction into the latch.
// It returns true if the interaction was consumed.
func (c *Controller) Interact(kind interaction.Kind) bool {
	return c.latch.Trigger(kind)
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:                c.state,
		Settings:             c.settings,
		HasSettings:          c.hasSettings,
		URL:                  c.lastAppliedURL,
		Gain:                 c.appliedGain,
		HasAttemptedAutoplay: c.hasAttemptedAutoplay,
		Unlocked:             c.latch.Unlocked(),
		ArmedTriggers:        c.latch.Armed(),
		StartedAt:            c.startedAt,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	if c.resource != nil && c.loadErr == nil {
		if elapsed, length, err := c.resource.Position(); err == nil {
			st.Elapsed = elapsed
			st.Length = length
		}
	}
	return st
}

// Close unmounts the controller: the resource is paused and released, the
// refresh task stops and the latch stops listening.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.resource != nil {
		c.releaseLocked()
	}
	c.state = StateIdle
	c.mu.Unlock()

	c.cancel()
	c.poller.Stop()
	c.latch.Close()
	c.wg.Wait()

	c.mu.Lock()
	close(c.eventCh)
	c.mu.Unlock()

	zlog.Info().Msg("playback: controller closed")
}

// watchInteractions turns consumed latch triggers into play attempts.
func (c *Controller) watchInteractions() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case kind, ok := <-c.latch.C():
			if !ok {
				return
			}
			c.onInteraction(kind)
		}
	}
}

func (c *Controller) onInteraction(kind interaction.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.resource == nil {
		zlog.Debug().Msgf("playback: interaction before any resource exists: kind=%s", kind)
		return
	}
	if c.hasAttemptedAutoplay {
		return
	}
	c.attemptPlayLocked(string(kind))
}

// loadLocked creates and prepares a resource for the settings.
// Must be called with lock held and no current resource.
func (c *Controller) loadLocked(settings music.Settings, autoplay bool) {
	res := c.open(settings.URL)

	c.generation++
	c.resource = res
	c.lastAppliedURL = settings.URL
	c.hasAttemptedAutoplay = false
	c.playPending = false
	c.appliedGain = 0
	c.startedAt = time.Time{}
	c.state = StateLoaded

	if err := res.Load(); err != nil {
		c.loadErr = err
		c.lastErr = err
		zlog.Error().Err(err).Msgf("playback: failed to load source, waiting for a different url: url=%s", settings.URL)
		c.sendEventLocked(Event{Type: EventLoadFailed, State: c.state, URL: settings.URL, Err: err})
		return
	}
	c.loadErr = nil

	if err := res.SetLoop(true); err != nil {
		zlog.Warn().Err(err).Msg("playback: failed to enable loop")
	}
	c.applyVolumeLocked(settings, false)

	zlog.Info().Msgf("playback: source loaded: url=%s gain=%.4f", settings.URL, c.appliedGain)
	c.sendEventLocked(Event{Type: EventLoaded, State: c.state, URL: settings.URL})

	if autoplay {
		c.attemptPlayLocked("autoplay")
	}
}

// swapLocked replaces the resource with one for a different URL.
// The old resource is paused and released before the new one is created.
// Playback resumes on the new source if it was playing, or if a visitor
// interaction has already unlocked playback.
func (c *Controller) swapLocked(settings music.Settings) {
	resume := c.state == StatePlaying || c.latch.Unlocked()
	previous := c.lastAppliedURL

	c.releaseLocked()
	zlog.Info().Msgf("playback: source changed: from=%s to=%s resume=%v", previous, settings.URL, resume)
	c.sendEventLocked(Event{Type: EventSourceChanged, State: StateLoaded, URL: settings.URL})

	c.loadLocked(settings, false)
	if resume && c.loadErr == nil {
		c.attemptPlayLocked("resume")
	}
}

// disableLocked releases the resource and resets the session.
func (c *Controller) disableLocked() {
	if c.resource != nil {
		c.releaseLocked()
	}
	c.lastAppliedURL = ""
	c.hasAttemptedAutoplay = false
	c.loadErr = nil
	c.appliedGain = 0
	c.startedAt = time.Time{}

	if c.state != StateDisabled {
		c.state = StateDisabled
		zlog.Info().Msg("playback: background music disabled")
		c.sendEventLocked(Event{Type: EventDisabled, State: c.state})
	}
}

// releaseLocked pauses and closes the current resource.
// Must be called with lock held and a current resource.
func (c *Controller) releaseLocked() {
	res := c.resource

	c.generation++
	c.stopWindowLocked()
	c.resource = nil
	c.playPending = false

	if err := res.Pause(); err != nil {
		zlog.Debug().Err(err).Msg("playback: pause on release failed")
	}
	if err := res.Close(); err != nil {
		zlog.Debug().Err(err).Msg("playback: close on release failed")
	}
}

// applyVolumeLocked applies the curved gain to the current resource in place.
func (c *Controller) applyVolumeLocked(settings music.Settings, notify bool) {
	if c.resource == nil || c.loadErr != nil {
		return
	}

	gain := settings.Gain()
	if err := c.resource.SetVolume(gain); err != nil {
		zlog.Warn().Err(err).Msg("playback: failed to set volume")
		return
	}
	if gain != c.appliedGain {
		c.appliedGain = gain
		if notify {
			c.sendEventLocked(Event{Type: EventVolumeChanged, State: c.state, URL: c.lastAppliedURL})
		}
	}
}

// attemptPlayLocked issues one play attempt off-lock. Only one attempt is in
// flight at a time; results for a replaced resource are discarded.
func (c *Controller) attemptPlayLocked(reason string) {
	if c.resource == nil || c.loadErr != nil {
		return
	}
	if c.playPending {
		zlog.Debug().Msgf("playback: play attempt already in flight, ignoring: reason=%s", reason)
		return
	}

	c.playPending = true
	res := c.resource
	gen := c.generation
	url := c.lastAppliedURL
	window := c.settings.Window()

	zlog.Debug().Msgf("playback: play attempt: reason=%s url=%s start=%v", reason, url, window.Start)

	go func() {
		err := startResource(res, window)

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed || gen != c.generation {
			if err != nil {
				zlog.Debug().Err(err).Msgf("playback: discarding result of stale play attempt: url=%s", url)
			} else if pauseErr := res.Pause(); pauseErr != nil {
				zlog.Debug().Err(pauseErr).Msgf("playback: failed to silence stale resource: url=%s", url)
			}
			return
		}

		c.playPending = false
		if err != nil {
			c.lastErr = err
			zlog.Warn().Err(err).Msgf("playback: play attempt failed, waiting for next interaction: reason=%s url=%s", reason, url)
			c.sendEventLocked(Event{Type: EventPlayFailed, State: c.state, URL: url, Reason: reason, Err: err})
			return
		}

		c.hasAttemptedAutoplay = true
		c.onStartedLocked(c.settings.Window(), reason)
	}()
}

// startResource seeks to the window start and plays.
func startResource(res Resource, window music.Window) error {
	if window.Start > 0 {
		if err := res.Seek(window.Start); err != nil {
			zlog.Debug().Err(err).Msgf("playback: seek to start offset failed: start=%v", window.Start)
		}
	}
	return res.Play()
}

// onStartedLocked records a confirmed (re)start and arms the timed window.
func (c *Controller) onStartedLocked(window music.Window, reason string) {
	c.state = StatePlaying
	c.startedAt = toWallTime(c.config.Now())
	c.lastErr = nil
	c.armWindowLocked(window)

	zlog.Info().Msgf("playback: playing: reason=%s url=%s window=%s", reason, c.lastAppliedURL, window.Mode())
	c.sendEventLocked(Event{Type: EventPlaying, State: c.state, URL: c.lastAppliedURL, Reason: reason})
}

// armWindowLocked starts the stop timer or the loop monitor for the window.
// A stop timer counts its duration from the moment it is armed.
func (c *Controller) armWindowLocked(window music.Window) {
	c.stopWindowLocked()

	c.window = window
	seq := c.windowSeq
	switch window.Mode() {
	case music.WindowStop:
		zlog.Debug().Msgf("playback: stop scheduled: duration=%v", window.Duration)
		c.windowCancel = c.startWallClockTimer(window.Duration, func() {
			c.onWindowElapsed(seq)
		})
	case music.WindowLoop:
		zlog.Debug().Msgf("playback: loop window armed: start=%v end=%v", window.Start, window.End)
		c.windowCancel = c.startLoopMonitor(seq, window)
	case music.WindowNative:
		// The resource loop flag restarts the track at its natural end.
	}
}

func (c *Controller) stopWindowLocked() {
	c.windowSeq++
	c.window = music.Window{}
	if c.windowCancel != nil {
		c.windowCancel()
		c.windowCancel = nil
	}
}

// onWindowElapsed force-stops playback when the duration window ends.
func (c *Controller) onWindowElapsed(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.windowSeq || c.state != StatePlaying {
		return
	}
	c.windowCancel = nil

	if err := c.resource.Pause(); err != nil {
		zlog.Warn().Err(err).Msg("playback: failed to stop at end of window")
	}
	c.state = StateLoaded

	if !c.startedAt.IsZero() {
		elapsed := toWallTime(c.config.Now()).Sub(c.startedAt)
		zlog.Info().Msgf("playback: window elapsed, stopped: url=%s elapsed=%v", c.lastAppliedURL, elapsed)
	}
	c.sendEventLocked(Event{Type: EventWindowElapsed, State: c.state, URL: c.lastAppliedURL})
}

// startLoopMonitor watches the position and rewinds to the window start at its end.
func (c *Controller) startLoopMonitor(seq uint64, window music.Window) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(c.config.WindowCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.checkLoopWindow(seq, window) {
					return
				}
			}
		}
	}()

	return cancel
}

// checkLoopWindow returns false when the monitor should stop.
func (c *Controller) checkLoopWindow(seq uint64, window music.Window) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.windowSeq || c.state != StatePlaying {
		return false
	}

	elapsed, length, err := c.resource.Position()
	if err != nil {
		zlog.Debug().Err(err).Msg("playback: position unavailable")
		return true
	}
	if !window.ShouldRewind(elapsed, length) {
		return true
	}

	if err := c.resource.Seek(window.Start); err != nil {
		zlog.Warn().Err(err).Msg("playback: failed to rewind loop window")
		return true
	}
	zlog.Debug().Msgf("playback: loop window rewound: at=%v to=%v", elapsed, window.Start)
	c.sendEventLocked(Event{Type: EventWindowLooped, State: c.state, URL: c.lastAppliedURL})
	return true
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	default:
		zlog.Debug().Msgf("playback: event channel full, dropping event: type=%s", e.Type)
	}
}

// startWallClockTimer starts a timer that triggers callback after duration, using wall clock.
// Returns a cancel function.
func (c *Controller) startWallClockTimer(duration time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(context.Background())
	endTime := toWallTime(c.config.Now()).Add(duration)

	go func() {
		ticker := time.NewTicker(c.config.TimerResolution)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !toWallTime(c.config.Now()).Before(endTime) {
					callback()
					return
				}
			}
		}
	}()

	return cancel
}

// toWallTime returns the time with monotonic clock stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
