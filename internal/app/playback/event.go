package playback

// EventType represents a playback event type.
type EventType int

const (
	EventLoaded        EventType = iota // Resource created for a new source
	EventLoadFailed                     // Resource could not load its source
	EventPlaying                        // Playback confirmed
	EventPlayFailed                     // Play attempt rejected or failed
	EventSourceChanged                  // Source swapped for a different URL
	EventDisabled                       // Resource released by settings
	EventVolumeChanged                  // Output gain changed in place
	EventWindowElapsed                  // Duration window stopped playback
	EventWindowLooped                   // Loop window rewound to the start offset
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventLoaded:
		return "loaded"
	case EventLoadFailed:
		return "load_failed"
	case EventPlaying:
		return "playing"
	case EventPlayFailed:
		return "play_failed"
	case EventSourceChanged:
		return "source_changed"
	case EventDisabled:
		return "disabled"
	case EventVolumeChanged:
		return "volume_changed"
	case EventWindowElapsed:
		return "window_elapsed"
	case EventWindowLooped:
		return "window_looped"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type   EventType
	State  State  // State after the event
	URL    string // Source the event refers to
	Reason string // What triggered a play attempt (autoplay, resume, interaction kind)
	Err    error  // Failure detail for *Failed events
}
