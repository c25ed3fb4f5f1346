// Package unlock provides the permission latch that gates audio playback
// behind a first qualifying visitor interaction.
package unlock

import (
	"sync"

	"github.com/osa030/campusbgm/internal/domain/interaction"
)

// Latch is a one-way gate opened by any of a configured set of interaction kinds.
// Each kind counts once: after it has been consumed, further triggers of the same
// kind are ignored, mirroring one-shot event listeners.
type Latch struct {
	mu       sync.Mutex
	kinds    map[interaction.Kind]bool // qualifying kind -> consumed
	unlocked bool
	closed   bool
	ch       chan interaction.Kind
}

// New creates a latch armed for the given kinds.
// With no kinds, the default qualifying kinds are used.
func New(kinds ...interaction.Kind) *Latch {
	if len(kinds) == 0 {
		kinds = interaction.DefaultKinds()
	}
	l := &Latch{
		kinds: make(map[interaction.Kind]bool, len(kinds)),
	}
	for _, k := range kinds {
		l.kinds[k] = false
	}
	// Every kind is delivered at most once, so sends never block.
	l.ch = make(chan interaction.Kind, len(l.kinds))
	return l
}

// Trigger reports an interaction. It returns true if the interaction was consumed,
// i.e. the kind qualifies, has not been seen before, and the latch is still armed.
func (l *Latch) Trigger(kind interaction.Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	consumed, ok := l.kinds[kind]
	if !ok || consumed {
		return false
	}

	l.kinds[kind] = true
	l.unlocked = true
	l.ch <- kind
	return true
}

// Unlocked reports whether any qualifying interaction has been seen.
func (l *Latch) Unlocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unlocked
}

// C returns the channel of consumed interaction kinds.
// It is closed when the latch is closed.
func (l *Latch) C() <-chan interaction.Kind {
	return l.ch
}

// Armed returns the kinds that have not been consumed yet.
func (l *Latch) Armed() []interaction.Kind {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	armed := make([]interaction.Kind, 0, len(l.kinds))
	for _, k := range interaction.DefaultKinds() {
		if consumed, ok := l.kinds[k]; ok && !consumed {
			armed = append(armed, k)
		}
	}
	return armed
}

// Close disarms the latch and removes all listeners. The unlocked flag is kept.
func (l *Latch) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.ch)
}
