// Package notification broadcasts playback events to watching admins.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/campusbgm/internal/app/playback"
)

// sendTimeout bounds a single stream send.
const sendTimeout = 500 * time.Millisecond

// Notification is a playback event as seen by a watcher.
type Notification struct {
	SequenceNo uint64    `json:"sequence_no"`
	Type       string    `json:"type"`
	State      string    `json:"state"`
	URL        string    `json:"url,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// FromEvent converts a controller event.
func FromEvent(e playback.Event, at time.Time) *Notification {
	n := &Notification{
		Type:   e.Type.String(),
		State:  e.State.String(),
		URL:    e.URL,
		Reason: e.Reason,
		At:     at,
	}
	if e.Err != nil {
		n.Error = e.Err.Error()
	}
	return n
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription represents a subscriber's subscription.
// sendMu is held for as long as a Send is running, including past its timeout.
type subscription struct {
	id     string
	stream Stream
	sendMu sync.Mutex
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	now           func() time.Time
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		now:           time.Now,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	zlog.Debug().Msgf("notification: subscribed: id=%s", id)
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast sends a notification to all subscribers.
// Sends run in parallel, each bounded by a timeout, so a stalled watcher
// cannot hold up the others.
func (m *Manager) Broadcast(notification *Notification) {
	notification.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			// A send that timed out earlier may still be running; streams
			// are not safe for concurrent sends, so the stalled watcher misses this one.
			if !s.sendMu.TryLock() {
				zlog.Debug().Msgf("notification: previous send still running, skipping: id=%s seq=%d", s.id, notification.SequenceNo)
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				defer s.sendMu.Unlock()
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Err(err).Msgf("notification: send failed, unsubscribing: id=%s", s.id)
					m.Unsubscribe(s.id)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("notification: send timed out: id=%s", s.id)
			}
		}(sub)
	}

	wg.Wait()
}

// Relay broadcasts controller events until the channel closes or ctx is done.
func (m *Manager) Relay(ctx context.Context, events <-chan playback.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			m.Broadcast(FromEvent(e, m.now()))
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
