package playback

import (
	"context"
	"sync"
	"time"
)

// Poller runs a function immediately and then periodically until stopped.
type Poller struct {
	interval time.Duration
	fn       func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. It does nothing until Start is called.
func NewPoller(interval time.Duration, fn func(ctx context.Context)) *Poller {
	return &Poller{
		interval: interval,
		fn:       fn,
	}
}

// Start starts the periodic task. It returns false if the poller is already running.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(runCtx, p.done)
	return true
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.fn(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fn(ctx)
		}
	}
}

// Stop cancels the periodic task and waits for the current run to finish.
// It must not be called from within the polled function.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the poller has been started and not stopped.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}
