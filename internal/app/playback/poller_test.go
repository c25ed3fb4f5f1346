package playback

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_RunsImmediatelyAndPeriodically(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(5*time.Millisecond, func(ctx context.Context) {
		calls.Add(1)
	})

	require.True(t, p.Start(context.Background()))
	assert.True(t, p.Running())
	assert.False(t, p.Start(context.Background()), "second start is rejected")

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())

	stopped := calls.Load()
	assert.Never(t, func() bool { return calls.Load() != stopped }, 30*time.Millisecond, time.Millisecond)
}

func TestPoller_FirstRunBeforeInterval(t *testing.T) {
	ran := make(chan struct{}, 1)
	p := NewPoller(time.Hour, func(ctx context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	defer p.Stop()

	p.Start(context.Background())

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("poller did not run immediately")
	}
}

func TestPoller_StopWaitsForRun(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	p := NewPoller(time.Hour, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
	})

	p.Start(context.Background())
	<-started
	p.Stop()

	assert.True(t, finished.Load())
}

func TestPoller_StopWithoutStart(t *testing.T) {
	p := NewPoller(time.Second, func(ctx context.Context) {})
	p.Stop()
	p.Stop()
	assert.False(t, p.Running())
}

func TestPoller_Restart(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(time.Hour, func(ctx context.Context) {
		calls.Add(1)
	})

	require.True(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	p.Stop()

	require.True(t, p.Start(context.Background()))
	defer p.Stop()
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)
}

func TestPoller_ParentContextCancel(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(2*time.Millisecond, func(ctx context.Context) {
		calls.Add(1)
	})

	p.Start(ctx)
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	cancel()
	p.Stop()

	stopped := calls.Load()
	assert.Never(t, func() bool { return calls.Load() != stopped }, 20*time.Millisecond, time.Millisecond)
}
