package render

import (
	"time"

	"market-pulse/src/interfaces"
)

// DefaultMinInterval caps notifications at ~25 per second
const DefaultMinInterval = 40 * time.Millisecond

// -----------------------------------------------------------------------------
// RenderScheduler coalesces flush requests onto frame boundaries and gates how
// often the presentation layer is notified.
//
// merge runs on every fired frame, committed or not: data is never held back.
// commit runs only when at least minInterval passed since the last commit.
// -----------------------------------------------------------------------------

type RenderScheduler struct {
	clock       interfaces.IFrameClock
	minInterval time.Duration
	merge       func()
	commit      func(ts time.Time)

	cancelFrame  func()
	lastCommit   time.Time
	hasCommitted bool
	commits      int
	dropped      int
}

// -----------------------------------------------------------------------------

func NewRenderScheduler(clock interfaces.IFrameClock, minInterval time.Duration, merge func(), commit func(ts time.Time)) *RenderScheduler {
	if minInterval < 0 {
		minInterval = DefaultMinInterval
	}
	return &RenderScheduler{
		clock:       clock,
		minInterval: minInterval,
		merge:       merge,
		commit:      commit,
	}
}

// -----------------------------------------------------------------------------

// RequestFlush schedules a frame unless one is already pending
func (s *RenderScheduler) RequestFlush() {
	if s.cancelFrame != nil {
		return
	}
	s.cancelFrame = s.clock.RequestFrame(s.onFrame)
}

// -----------------------------------------------------------------------------

// Cancel aborts a pending frame. Must be called on teardown.
func (s *RenderScheduler) Cancel() {
	if s.cancelFrame == nil {
		return
	}
	s.cancelFrame()
	s.cancelFrame = nil
}

// -----------------------------------------------------------------------------

// Pending reports whether a frame is scheduled
func (s *RenderScheduler) Pending() bool {
	return s.cancelFrame != nil
}

// -----------------------------------------------------------------------------

// Commits returns how many frames notified the presentation layer
func (s *RenderScheduler) Commits() int {
	return s.commits
}

// -----------------------------------------------------------------------------

// Dropped returns how many frames were gated out
func (s *RenderScheduler) Dropped() int {
	return s.dropped
}

// -----------------------------------------------------------------------------

// LastCommit returns the timestamp of the last committed frame
func (s *RenderScheduler) LastCommit() (time.Time, bool) {
	return s.lastCommit, s.hasCommitted
}

// -----------------------------------------------------------------------------

func (s *RenderScheduler) onFrame(ts time.Time) {
	s.cancelFrame = nil

	if s.merge != nil {
		s.merge()
	}

	if s.hasCommitted && ts.Sub(s.lastCommit) < s.minInterval {
		s.dropped++
		return
	}

	s.lastCommit = ts
	s.hasCommitted = true
	s.commits++
	if s.commit != nil {
		s.commit(ts)
	}
}
