package mpd

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unusedPort returns a local port with nothing listening on it.
func unusedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestNewClient(t *testing.T) {
	c := NewClient(Config{Host: "localhost", Port: 6600})
	assert.Equal(t, "localhost:6600", c.addr)
}

func TestClient_ConnectFailure(t *testing.T) {
	c := NewClient(Config{Host: "127.0.0.1", Port: unusedPort(t)})

	err := c.Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to mpd")
}

func TestClient_PingWithoutConnect(t *testing.T) {
	c := NewClient(Config{Host: "127.0.0.1", Port: 6600})
	assert.ErrorIs(t, c.Ping(), ErrNotConnected)
}

func TestClient_CommandsWithoutDaemon(t *testing.T) {
	c := NewClient(Config{Host: "127.0.0.1", Port: unusedPort(t)})

	_, err := c.Status()
	assert.Error(t, err)
	assert.Error(t, c.Play(0))
	assert.Error(t, c.Pause(true))
	assert.Error(t, c.Stop())
	assert.Error(t, c.Seek(0, 10))
	assert.Error(t, c.SetVolume(50))
	assert.Error(t, c.SetRepeat(true))
	assert.Error(t, c.SetSingle(true))
	assert.Error(t, c.Clear())
	assert.Error(t, c.Add("https://x/a.mp3"))
}

func TestClient_CloseWithoutConnect(t *testing.T) {
	c := NewClient(Config{Host: "127.0.0.1", Port: 6600})
	assert.NoError(t, c.Close())
}

func TestClient_ImplementsPlayer(t *testing.T) {
	var _ Player = NewClient(Config{Host: "127.0.0.1", Port: 6600})
}
