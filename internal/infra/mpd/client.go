// Package mpd drives a Music Player Daemon as the background music output.
package mpd

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fhs/gompd/v2/mpd"
	zlog "github.com/rs/zerolog/log"
)

// ErrNotConnected is returned when no daemon connection exists.
var ErrNotConnected = errors.New("not connected to mpd")

// Config represents MPD connection configuration.
type Config struct {
	Host     string `yaml:"host" mapstructure:"host" default:"localhost" validate:"required"`
	Port     int    `yaml:"port" mapstructure:"port" default:"6600" validate:"gte=1,lte=65535"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Client wraps the gompd client with reconnection logic.
type Client struct {
	mu       sync.RWMutex
	client   *mpd.Client
	addr     string
	password string
}

// NewClient creates a new client. It does not connect until first use or Connect.
func NewClient(cfg Config) *Client {
	return &Client{
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		password: cfg.Password,
	}
}

// Connect establishes the connection to the daemon.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked()
}

// connectLocked establishes the connection (must hold lock).
func (c *Client) connectLocked() error {
	zlog.Info().Msgf("mpd: connecting: addr=%s", c.addr)

	var (
		client *mpd.Client
		err    error
	)
	if c.password != "" {
		client, err = mpd.DialAuthenticated("tcp", c.addr, c.password)
	} else {
		client, err = mpd.Dial("tcp", c.addr)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to connect to mpd: %s", c.addr)
	}

	c.client = client
	zlog.Info().Msg("mpd: connected")
	return nil
}

// ensureConnected checks the connection and reconnects if needed.
func (c *Client) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return c.connectLocked()
	}

	if err := c.client.Ping(); err != nil {
		zlog.Warn().Err(err).Msg("mpd: connection lost, reconnecting")
		c.client.Close()
		c.client = nil
		return c.connectLocked()
	}

	return nil
}

// do runs fn against a live connection.
func (c *Client) do(fn func(client *mpd.Client) error) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.client == nil {
		return ErrNotConnected
	}
	return fn(c.client)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// Ping checks if the connection is alive.
func (c *Client) Ping() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.client == nil {
		return ErrNotConnected
	}
	return c.client.Ping()
}

// Status returns the daemon status.
func (c *Client) Status() (mpd.Attrs, error) {
	var attrs mpd.Attrs
	err := c.do(func(client *mpd.Client) error {
		var err error
		attrs, err = client.Status()
		return err
	})
	return attrs, err
}

// Play starts playback at the given queue position. -1 resumes the current song.
func (c *Client) Play(pos int) error {
	return c.do(func(client *mpd.Client) error { return client.Play(pos) })
}

// Pause pauses or resumes playback.
func (c *Client) Pause(pause bool) error {
	return c.do(func(client *mpd.Client) error { return client.Pause(pause) })
}

// Stop stops playback.
func (c *Client) Stop() error {
	return c.do(func(client *mpd.Client) error { return client.Stop() })
}

// Seek seeks to a position in seconds within the song at the given queue position.
func (c *Client) Seek(songPos, secs int) error {
	return c.do(func(client *mpd.Client) error { return client.Seek(songPos, secs) })
}

// SetVolume sets the volume (0-100).
func (c *Client) SetVolume(vol int) error {
	if vol < 0 {
		vol = 0
	}
	if vol > 100 {
		vol = 100
	}
	return c.do(func(client *mpd.Client) error { return client.SetVolume(vol) })
}

// SetRepeat sets repeat mode.
func (c *Client) SetRepeat(on bool) error {
	return c.do(func(client *mpd.Client) error { return client.Repeat(on) })
}

// SetSingle sets single mode.
func (c *Client) SetSingle(on bool) error {
	return c.do(func(client *mpd.Client) error { return client.Single(on) })
}

// Clear clears the queue.
func (c *Client) Clear() error {
	return c.do(func(client *mpd.Client) error { return client.Clear() })
}

// Add appends a URI to the queue.
func (c *Client) Add(uri string) error {
	return c.do(func(client *mpd.Client) error { return client.Add(uri) })
}
