package connect

import (
	"time"

	"github.com/osa030/campusbgm/internal/app/playback"
	"github.com/osa030/campusbgm/internal/domain/music"
)

// MusicSettings is the wire form of the background music settings.
// Times are in seconds.
type MusicSettings struct {
	URL       string  `json:"url"`
	Enabled   bool    `json:"enabled"`
	Volume    float64 `json:"volume"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
}

func musicSettingsToWire(s music.Settings) MusicSettings {
	return MusicSettings{
		URL:       s.URL,
		Enabled:   s.Enabled,
		Volume:    s.Volume,
		StartTime: s.StartTime.Seconds(),
		EndTime:   s.EndTime.Seconds(),
		Duration:  s.Duration.Seconds(),
	}
}

func musicSettingsFromWire(m MusicSettings) music.Settings {
	return music.Settings{
		URL:       m.URL,
		Enabled:   m.Enabled,
		Volume:    m.Volume,
		StartTime: secondsToDuration(m.StartTime),
		EndTime:   secondsToDuration(m.EndTime),
		Duration:  secondsToDuration(m.Duration),
	}
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}

type GetMusicSettingsRequest struct{}

type GetMusicSettingsResponse struct {
	Settings      MusicSettings `json:"settings"`
	VolumePercent float64       `json:"volume_percent"` // Raw volume as configured
	GainPercent   float64       `json:"gain_percent"`   // Effective output after the loudness curve
}

type UpdateMusicSettingsRequest struct {
	Settings MusicSettings `json:"settings"`
}

type UpdateMusicSettingsResponse struct {
	Success     bool    `json:"success"`
	Message     string  `json:"message"`
	GainPercent float64 `json:"gain_percent"`
}

type GetSiteSettingsRequest struct{}

type GetSiteSettingsResponse struct {
	Settings map[string]string `json:"settings"`
}

type UpdateSiteSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type UpdateSiteSettingResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type GetPlaybackStatusRequest struct{}

// PlaybackStatus is the wire form of the controller status.
type PlaybackStatus struct {
	State                string        `json:"state"`
	HasSettings          bool          `json:"has_settings"`
	Settings             MusicSettings `json:"settings"`
	URL                  string        `json:"url,omitempty"`
	Gain                 float64       `json:"gain"`
	HasAttemptedAutoplay bool          `json:"has_attempted_autoplay"`
	Unlocked             bool          `json:"unlocked"`
	ArmedTriggers        []string      `json:"armed_triggers,omitempty"`
	StartedAt            *time.Time    `json:"started_at,omitempty"`
	Elapsed              float64       `json:"elapsed"`
	Length               float64       `json:"length"`
	LastError            string        `json:"last_error,omitempty"`
}

func playbackStatusToWire(st playback.Status) PlaybackStatus {
	out := PlaybackStatus{
		State:                st.State.String(),
		HasSettings:          st.HasSettings,
		Settings:             musicSettingsToWire(st.Settings),
		URL:                  st.URL,
		Gain:                 st.Gain,
		HasAttemptedAutoplay: st.HasAttemptedAutoplay,
		Unlocked:             st.Unlocked,
		Elapsed:              st.Elapsed.Seconds(),
		Length:               st.Length.Seconds(),
		LastError:            st.LastError,
	}
	for _, k := range st.ArmedTriggers {
		out.ArmedTriggers = append(out.ArmedTriggers, string(k))
	}
	if !st.StartedAt.IsZero() {
		t := st.StartedAt
		out.StartedAt = &t
	}
	return out
}

type GetPlaybackStatusResponse struct {
	Status PlaybackStatus `json:"status"`
}

type DeleteAudioRequest struct {
	Path string `json:"path"` // Storage path or public URL
}

type DeleteAudioResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ValidateAudioRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type ValidateAudioResponse struct {
	Valid   bool   `json:"valid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type WatchPlaybackRequest struct{}

type ReportInteractionRequest struct {
	Kind   string `json:"kind"`
	Source string `json:"source,omitempty"`
}

type ReportInteractionResponse struct {
	Consumed bool `json:"consumed"`
	Unlocked bool `json:"unlocked"`
}

// UploadAudioResponse is the body returned by the upload endpoint.
type UploadAudioResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Path    string `json:"path,omitempty"`
}
