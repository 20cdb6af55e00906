package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLoop_RunsInOrder(t *testing.T) {
	loop := NewEventLoop(8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	var got []int
	var mu sync.Mutex
	for i := 0; i < 100; i++ {
		i := i
		require.True(t, loop.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	require.NoError(t, loop.Do(ctx, func() {}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestEventLoop_RecoversPanic(t *testing.T) {
	loop := NewEventLoop(1, nil)
	go loop.Run(context.Background())
	defer loop.Stop()

	loop.Post(func() { panic("boom") })

	ran := false
	require.NoError(t, loop.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestEventLoop_PostAfterStop(t *testing.T) {
	loop := NewEventLoop(1, nil)
	loop.Stop()
	loop.Stop()

	assert.False(t, loop.Post(func() {}))
	assert.Error(t, loop.Do(context.Background(), func() {}))
}

func TestManualFrameClock(t *testing.T) {
	c := NewManualFrameClock()
	var fired []string

	c.RequestFrame(func(time.Time) { fired = append(fired, "a") })
	cancelB := c.RequestFrame(func(time.Time) { fired = append(fired, "b") })
	c.RequestFrame(func(time.Time) {
		fired = append(fired, "c")
		// Requested during a frame: waits for the next Advance
		c.RequestFrame(func(time.Time) { fired = append(fired, "d") })
	})
	cancelB()

	assert.Equal(t, 2, c.Pending())
	assert.Equal(t, 2, c.Advance(time.Unix(0, 0)))
	assert.Equal(t, []string{"a", "c"}, fired)

	assert.Equal(t, 1, c.Advance(time.Unix(1, 0)))
	assert.Equal(t, []string{"a", "c", "d"}, fired)
}

func TestManualFrameClock_CancelFromCallback(t *testing.T) {
	c := NewManualFrameClock()
	var cancelSecond func()
	secondFired := false

	c.RequestFrame(func(time.Time) { cancelSecond() })
	cancelSecond = c.RequestFrame(func(time.Time) { secondFired = true })

	assert.Equal(t, 1, c.Advance(time.Unix(0, 0)))
	assert.False(t, secondFired)
}

func TestIntervalFrameClock_AlignsAndCancels(t *testing.T) {
	loop := NewEventLoop(8, nil)
	go loop.Run(context.Background())
	defer loop.Stop()

	interval := 10 * time.Millisecond
	clock := NewIntervalFrameClock(interval, loop.Post)

	fired := make(chan time.Time, 2)
	clock.RequestFrame(func(ts time.Time) { fired <- ts })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("frame never fired")
	}

	cancel := clock.RequestFrame(func(ts time.Time) { fired <- ts })
	cancel()

	select {
	case <-fired:
		t.Fatal("cancelled frame fired")
	case <-time.After(5 * interval):
	}
}

func TestLifecycleToken(t *testing.T) {
	tok := NewLifecycleToken()
	assert.True(t, tok.Active())
	tok.Release()
	assert.False(t, tok.Active())

	var nilTok *LifecycleToken
	assert.False(t, nilTok.Active())
	nilTok.Release()
}
