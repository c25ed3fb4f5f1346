package music

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromValues(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		expected Settings
		wantErr  bool
	}{
		{
			name:     "empty store",
			values:   map[string]string{},
			expected: Settings{Volume: DefaultVolume},
		},
		{
			name: "full settings",
			values: map[string]string{
				KeyURL:       "https://x/a.mp3",
				KeyEnabled:   "true",
				KeyVolume:    "0.1",
				KeyStartTime: "10",
				KeyEndTime:   "20.5",
				KeyDuration:  "30",
			},
			expected: Settings{
				URL:       "https://x/a.mp3",
				Enabled:   true,
				Volume:    0.1,
				StartTime: 10 * time.Second,
				EndTime:   20500 * time.Millisecond,
				Duration:  30 * time.Second,
			},
		},
		{
			name: "blank values fall back to defaults",
			values: map[string]string{
				KeyURL:     "  ",
				KeyEnabled: "",
				KeyVolume:  " ",
			},
			expected: Settings{Volume: DefaultVolume},
		},
		{
			name:    "malformed enabled flag",
			values:  map[string]string{KeyEnabled: "yes please"},
			wantErr: true,
		},
		{
			name:    "malformed volume",
			values:  map[string]string{KeyVolume: "loud"},
			wantErr: true,
		},
		{
			name:    "volume out of range",
			values:  map[string]string{KeyVolume: "1.5"},
			wantErr: true,
		},
		{
			name:    "negative start time",
			values:  map[string]string{KeyStartTime: "-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromValues(tt.values)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, s.Active(), "invalid settings must be treated as disabled")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s)
		})
	}
}

func TestSettings_ValuesRoundTrip(t *testing.T) {
	s := Settings{
		URL:       "https://x/a.mp3",
		Enabled:   true,
		Volume:    0.25,
		StartTime: 5 * time.Second,
		EndTime:   20 * time.Second,
	}

	values := s.Values()
	assert.Equal(t, "true", values[KeyEnabled])
	assert.Equal(t, "0.25", values[KeyVolume])
	assert.Equal(t, "5", values[KeyStartTime])
	assert.Equal(t, "0", values[KeyDuration])
	assert.Len(t, values, len(Keys()))

	parsed, err := FromValues(values)
	require.NoError(t, err)
	assert.Equal(t, s, parsed)
}

func TestSettings_Active(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		expected bool
	}{
		{"enabled with url", Settings{URL: "https://x/a.mp3", Enabled: true}, true},
		{"disabled with url", Settings{URL: "https://x/a.mp3"}, false},
		{"enabled without url", Settings{Enabled: true}, false},
		{"enabled with whitespace url", Settings{URL: " ", Enabled: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.Active())
		})
	}
}
