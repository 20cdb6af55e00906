package engine

import (
	"context"
	"fmt"
	"sync"

	"market-pulse/src/logger"
)

// -----------------------------------------------------------------------------
// EventLoop runs every state mutation on a single goroutine, in posting order.
// Transport events, acks and frame callbacks all go through Post.
// -----------------------------------------------------------------------------

type EventLoop struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewEventLoop(queueSize int, log *logger.Logger) *EventLoop {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &EventLoop{
		tasks:  make(chan func(), queueSize),
		done:   make(chan struct{}),
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// Post queues fn. It blocks while the queue is full and returns false once the
// loop has stopped.
func (l *EventLoop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// -----------------------------------------------------------------------------

// Do posts fn and waits for it to finish
func (l *EventLoop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return fmt.Errorf("event loop stopped")
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return fmt.Errorf("event loop stopped")
	}
}

// -----------------------------------------------------------------------------

// Run executes queued tasks until ctx is cancelled or Stop is called
func (l *EventLoop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.done:
			return
		case fn := <-l.tasks:
			l.execute(fn)
		}
	}
}

// -----------------------------------------------------------------------------

// Stop ends Run; pending tasks are discarded
func (l *EventLoop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}

// -----------------------------------------------------------------------------

// Done is closed once the loop stopped
func (l *EventLoop) Done() <-chan struct{} {
	return l.done
}

// -----------------------------------------------------------------------------

func (l *EventLoop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.Logger.Error("Recovered panic in event loop task: %v", r)
		}
	}()
	fn()
}
