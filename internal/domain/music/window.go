package music

import "time"

// WindowMode describes how the playback window is enforced.
type WindowMode int

const (
	WindowNative WindowMode = iota // Rely on the resource's loop flag
	WindowLoop                     // Seek back to Start when End is reached
	WindowStop                     // Stop Duration after each start
)

// String returns the string representation of the mode.
func (m WindowMode) String() string {
	switch m {
	case WindowNative:
		return "native"
	case WindowLoop:
		return "loop"
	case WindowStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Window is the timed playback window derived from settings.
type Window struct {
	Start    time.Duration
	End      time.Duration
	Duration time.Duration
}

// Mode returns the enforcement mode. Duration takes precedence over End.
func (w Window) Mode() WindowMode {
	if w.Duration > 0 {
		return WindowStop
	}
	if w.End > 0 {
		return WindowLoop
	}
	return WindowNative
}

// EffectiveEnd returns the loop end clamped to the track length.
// A zero length means the length is unknown and End is used as is.
func (w Window) EffectiveEnd(length time.Duration) time.Duration {
	if length > 0 && w.End > length {
		return length
	}
	return w.End
}

// ShouldRewind reports whether a loop window has reached its end at the given position.
func (w Window) ShouldRewind(elapsed, length time.Duration) bool {
	if w.Mode() != WindowLoop {
		return false
	}
	end := w.EffectiveEnd(length)
	if end <= w.Start {
		return false
	}
	return elapsed >= end
}
