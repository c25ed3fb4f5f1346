package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/campusbgm/internal/app/playback"
)

type recordingStream struct {
	mu    sync.Mutex
	got   []*Notification
	err   error
	block chan struct{}
}

func (s *recordingStream) Send(n *Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, n)
	return nil
}

// exclusiveStream blocks every send until released and records overlapping sends.
type exclusiveStream struct {
	mu         sync.Mutex
	active     int
	overlapped bool
	sent       int
	release    chan struct{}
}

func (s *exclusiveStream) Send(n *Notification) error {
	s.mu.Lock()
	s.active++
	if s.active > 1 {
		s.overlapped = true
	}
	s.mu.Unlock()

	<-s.release

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	s.sent++
	return nil
}

func (s *exclusiveStream) stats() (sent int, overlapped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent, s.overlapped
}

func (s *recordingStream) received() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Notification(nil), s.got...)
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager()
	a := &recordingStream{}
	b := &recordingStream{}
	m.Subscribe(a)
	idB := m.Subscribe(b)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(&Notification{Type: "loaded"})
	m.Unsubscribe(idB)
	m.Broadcast(&Notification{Type: "playing"})

	gotA := a.received()
	require.Len(t, gotA, 2)
	assert.Equal(t, uint64(1), gotA[0].SequenceNo)
	assert.Equal(t, uint64(2), gotA[1].SequenceNo)
	assert.Equal(t, "playing", gotA[1].Type)

	assert.Len(t, b.received(), 1)
}

func TestManager_FailedStreamIsDropped(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{err: errors.New("stream closed")})
	m.Subscribe(&recordingStream{})

	m.Broadcast(&Notification{Type: "loaded"})
	assert.Equal(t, 1, m.SubscriberCount())
}

func TestManager_SlowStreamTimesOut(t *testing.T) {
	m := NewManager()
	slow := &recordingStream{block: make(chan struct{})}
	defer close(slow.block)
	fast := &recordingStream{}
	m.Subscribe(slow)
	m.Subscribe(fast)

	start := time.Now()
	m.Broadcast(&Notification{Type: "loaded"})
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, fast.received(), 1)
}

func TestManager_StalledStreamNeverSentConcurrently(t *testing.T) {
	m := NewManager()
	stalled := &exclusiveStream{release: make(chan struct{})}
	fast := &recordingStream{}
	m.Subscribe(stalled)
	m.Subscribe(fast)

	// The first send times out and keeps running; later broadcasts skip the stalled stream.
	for i := 0; i < 3; i++ {
		m.Broadcast(&Notification{Type: "volume_changed"})
	}
	assert.Len(t, fast.received(), 3)

	sent, _ := stalled.stats()
	assert.Equal(t, 0, sent)

	// Once the stalled send returns, the stream receives again.
	close(stalled.release)
	require.Eventually(t, func() bool {
		m.Broadcast(&Notification{Type: "playing"})
		sent, _ := stalled.stats()
		return sent >= 2
	}, time.Second, 5*time.Millisecond)

	_, overlapped := stalled.stats()
	assert.False(t, overlapped)
	assert.Equal(t, 2, m.SubscriberCount())
}

func TestManager_Relay(t *testing.T) {
	m := NewManager()
	m.now = func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) }
	s := &recordingStream{}
	m.Subscribe(s)

	events := make(chan playback.Event, 2)
	events <- playback.Event{Type: playback.EventLoaded, State: playback.StateLoaded, URL: "https://x/a.mp3"}
	events <- playback.Event{Type: playback.EventPlayFailed, State: playback.StateLoaded, Reason: "autoplay", Err: playback.ErrAutoplayBlocked}
	close(events)

	m.Relay(context.Background(), events)

	got := s.received()
	require.Len(t, got, 2)
	assert.Equal(t, "loaded", got[0].Type)
	assert.Equal(t, "loaded", got[0].State)
	assert.Equal(t, "https://x/a.mp3", got[0].URL)
	assert.Equal(t, "play_failed", got[1].Type)
	assert.Equal(t, "autoplay", got[1].Reason)
	assert.NotEmpty(t, got[1].Error)
	assert.Equal(t, 2026, got[1].At.Year())
}

func TestManager_RelayStopsOnCancel(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Relay(ctx, make(chan playback.Event))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{})
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}
