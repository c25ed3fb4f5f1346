// Package playback provides the background music controller that keeps a single
// audio resource in sync with the admin-configured music settings.
package playback

// State represents the controller state.
type State int

const (
	StateIdle     State = iota // No settings received yet
	StateDisabled              // Settings disabled or no track configured
	StateLoaded                // Resource created, playback not confirmed
	StatePlaying               // Resource created and confirmed playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDisabled:
		return "disabled"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}
