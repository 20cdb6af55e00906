package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// -----------------------------------------------------------------------------
// IntervalFrameClock substitutes display frames with a fixed-interval timer.
// Frames land on multiples of the interval and run on the event loop.
// -----------------------------------------------------------------------------

type IntervalFrameClock struct {
	interval time.Duration
	post     func(func()) bool
	now      func() time.Time
}

// -----------------------------------------------------------------------------

func NewIntervalFrameClock(interval time.Duration, post func(func()) bool) *IntervalFrameClock {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &IntervalFrameClock{
		interval: interval,
		post:     post,
		now:      time.Now,
	}
}

// -----------------------------------------------------------------------------

func (c *IntervalFrameClock) RequestFrame(cb func(ts time.Time)) func() {
	now := c.now()
	next := now.Truncate(c.interval).Add(c.interval)

	var cancelled atomic.Bool
	timer := time.AfterFunc(next.Sub(now), func() {
		c.post(func() {
			// Checked on the loop: a cancel issued before this task runs wins
			if cancelled.Load() {
				return
			}
			cb(c.now())
		})
	})

	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

// -----------------------------------------------------------------------------
// ManualFrameClock fires frames only when Advance is called.
// Used for deterministic replay and tests.
// -----------------------------------------------------------------------------

type manualFrame struct {
	id int
	cb func(ts time.Time)
}

type ManualFrameClock struct {
	mu      sync.Mutex
	nextID  int
	pending []manualFrame
}

// -----------------------------------------------------------------------------

func NewManualFrameClock() *ManualFrameClock {
	return &ManualFrameClock{}
}

// -----------------------------------------------------------------------------

func (c *ManualFrameClock) RequestFrame(cb func(ts time.Time)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.pending = append(c.pending, manualFrame{id: id, cb: cb})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, f := range c.pending {
			if f.id == id {
				c.pending = append(c.pending[:i], c.pending[i+1:]...)
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Advance fires every frame requested so far with timestamp ts.
// Frames requested from inside a callback wait for the next Advance; frames
// cancelled from inside a callback do not fire.
func (c *ManualFrameClock) Advance(ts time.Time) int {
	c.mu.Lock()
	limit := c.nextID
	c.mu.Unlock()

	fired := 0
	for {
		c.mu.Lock()
		if len(c.pending) == 0 || c.pending[0].id > limit {
			c.mu.Unlock()
			break
		}
		f := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()

		f.cb(ts)
		fired++
	}
	return fired
}

// -----------------------------------------------------------------------------

// Pending returns the number of frames waiting for Advance
func (c *ManualFrameClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
