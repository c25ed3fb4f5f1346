package music

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow_Mode(t *testing.T) {
	tests := []struct {
		name     string
		window   Window
		expected WindowMode
	}{
		{"nothing set", Window{}, WindowNative},
		{"start only", Window{Start: 10 * time.Second}, WindowNative},
		{"end set", Window{Start: 5 * time.Second, End: 20 * time.Second}, WindowLoop},
		{"duration set", Window{Start: 10 * time.Second, Duration: 30 * time.Second}, WindowStop},
		{"duration wins over end", Window{End: 20 * time.Second, Duration: 30 * time.Second}, WindowStop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.window.Mode())
		})
	}
}

func TestWindow_ShouldRewind(t *testing.T) {
	w := Window{Start: 5 * time.Second, End: 20 * time.Second}

	tests := []struct {
		name     string
		elapsed  time.Duration
		length   time.Duration
		expected bool
	}{
		{"before end", 12 * time.Second, 0, false},
		{"exactly at end", 20 * time.Second, 0, true},
		{"past end", 21 * time.Second, 3 * time.Minute, true},
		{"end clamped to short track", 15 * time.Second, 15 * time.Second, true},
		{"before clamped end", 14 * time.Second, 15 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.ShouldRewind(tt.elapsed, tt.length))
		})
	}
}

func TestWindow_ShouldRewind_IgnoredOutsideLoopMode(t *testing.T) {
	stop := Window{Start: 5 * time.Second, End: 20 * time.Second, Duration: 30 * time.Second}
	assert.False(t, stop.ShouldRewind(25*time.Second, 0))

	inverted := Window{Start: 30 * time.Second, End: 20 * time.Second}
	assert.False(t, inverted.ShouldRewind(25*time.Second, 0), "end before start never rewinds")
}

func TestWindow_EffectiveEnd(t *testing.T) {
	w := Window{End: 90 * time.Second}
	assert.Equal(t, 90*time.Second, w.EffectiveEnd(0))
	assert.Equal(t, 90*time.Second, w.EffectiveEnd(3*time.Minute))
	assert.Equal(t, 60*time.Second, w.EffectiveEnd(time.Minute))
}
