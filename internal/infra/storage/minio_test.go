package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Bucket: "public-assets"})
	assert.Error(t, err)

	_, err = New(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	_, err = New(Config{Endpoint: "http://localhost:9000/path", Bucket: "public-assets"})
	assert.Error(t, err, "endpoint must be host[:port]")
}

func TestStorage_PublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		path string
		want string
	}{
		{
			name: "derived from endpoint",
			cfg:  Config{Endpoint: "localhost:9000", Bucket: "public-assets"},
			path: "background-music/abc.mp3",
			want: "http://localhost:9000/public-assets/background-music/abc.mp3",
		},
		{
			name: "derived with ssl",
			cfg:  Config{Endpoint: "s3.example.com", Bucket: "public-assets", UseSSL: true},
			path: "background-music/abc.mp3",
			want: "https://s3.example.com/public-assets/background-music/abc.mp3",
		},
		{
			name: "explicit public base",
			cfg: Config{
				Endpoint:      "minio:9000",
				Bucket:        "public-assets",
				PublicBaseURL: "https://cdn.example.com/assets/",
			},
			path: "/background-music/school song.mp3",
			want: "https://cdn.example.com/assets/background-music/school%20song.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.PublicURL(tt.path))
		})
	}
}

func TestStorage_PathFromURL(t *testing.T) {
	s, err := New(Config{Endpoint: "localhost:9000", Bucket: "public-assets"})
	require.NoError(t, err)

	path, ok := s.PathFromURL("http://localhost:9000/public-assets/background-music/school%20song.mp3")
	assert.True(t, ok)
	assert.Equal(t, "background-music/school song.mp3", path)

	_, ok = s.PathFromURL("https://elsewhere.example.com/a.mp3")
	assert.False(t, ok)

	_, ok = s.PathFromURL("http://localhost:9000/public-assets/")
	assert.False(t, ok)
}
