// Package music provides the background music settings domain entity.
package music

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Site setting keys under which the background music settings are persisted.
const (
	KeyURL       = "background_music_url"
	KeyEnabled   = "background_music_enabled"
	KeyVolume    = "background_music_volume"
	KeyStartTime = "background_music_start_time"
	KeyEndTime   = "background_music_end_time"
	KeyDuration  = "background_music_duration"
)

// DefaultVolume is used when no volume has been stored yet.
const DefaultVolume = 0.5

// Keys returns all background music setting keys.
func Keys() []string {
	return []string{KeyURL, KeyEnabled, KeyVolume, KeyStartTime, KeyEndTime, KeyDuration}
}

// Settings represents the admin-configured background music parameters.
type Settings struct {
	URL       string        // Audio location, empty means no track configured
	Enabled   bool          // Master switch
	Volume    float64       // Raw volume in [0,1]
	StartTime time.Duration // Offset to begin playback
	EndTime   time.Duration // Offset at which to loop back to StartTime (0 = natural end)
	Duration  time.Duration // Stop after this long (0 = unbounded)
}

// Disabled returns settings that turn playback off.
func Disabled() Settings {
	return Settings{Volume: DefaultVolume}
}

// Active reports whether the settings call for a loaded audio resource.
func (s Settings) Active() bool {
	return s.Enabled && strings.TrimSpace(s.URL) != ""
}

// Gain returns the effective output gain for the configured volume.
func (s Settings) Gain() float64 {
	return Gain(s.Volume)
}

// Window returns the playback window described by the settings.
func (s Settings) Window() Window {
	return Window{
		Start:    s.StartTime,
		End:      s.EndTime,
		Duration: s.Duration,
	}
}

// Validate checks value ranges.
func (s Settings) Validate() error {
	if s.Volume < 0 || s.Volume > 1 {
		return errors.Newf("volume must be between 0 and 1: %v", s.Volume)
	}
	if s.StartTime < 0 {
		return errors.Newf("start time must not be negative: %v", s.StartTime)
	}
	if s.EndTime < 0 {
		return errors.Newf("end time must not be negative: %v", s.EndTime)
	}
	if s.Duration < 0 {
		return errors.Newf("duration must not be negative: %v", s.Duration)
	}
	return nil
}

// FromValues builds settings from stringified site setting values.
// Missing keys fall back to defaults; malformed values are reported.
func FromValues(values map[string]string) (Settings, error) {
	s := Disabled()
	s.URL = strings.TrimSpace(values[KeyURL])

	if v, ok := lookup(values, KeyEnabled); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Disabled(), errors.Wrapf(err, "invalid %s", KeyEnabled)
		}
		s.Enabled = enabled
	}

	if v, ok := lookup(values, KeyVolume); ok {
		volume, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Disabled(), errors.Wrapf(err, "invalid %s", KeyVolume)
		}
		s.Volume = volume
	}

	var err error
	if s.StartTime, err = parseSeconds(values, KeyStartTime); err != nil {
		return Disabled(), err
	}
	if s.EndTime, err = parseSeconds(values, KeyEndTime); err != nil {
		return Disabled(), err
	}
	if s.Duration, err = parseSeconds(values, KeyDuration); err != nil {
		return Disabled(), err
	}

	if err := s.Validate(); err != nil {
		return Disabled(), err
	}
	return s, nil
}

// Values converts the settings into stringified site setting values.
func (s Settings) Values() map[string]string {
	return map[string]string{
		KeyURL:       s.URL,
		KeyEnabled:   strconv.FormatBool(s.Enabled),
		KeyVolume:    strconv.FormatFloat(s.Volume, 'f', -1, 64),
		KeyStartTime: formatSeconds(s.StartTime),
		KeyEndTime:   formatSeconds(s.EndTime),
		KeyDuration:  formatSeconds(s.Duration),
	}
}

func lookup(values map[string]string, key string) (string, bool) {
	v, ok := values[key]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func parseSeconds(values map[string]string, key string) (time.Duration, error) {
	v, ok := lookup(values, key)
	if !ok {
		return 0, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
