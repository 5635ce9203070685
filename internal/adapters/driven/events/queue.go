// Package events provides the application event queue used to deliver change
// notifications.
//
// Work posted to a Queue never runs inside Post. The application drains the
// queue on its own schedule, either synchronously with Flush or in the
// background with Run.
package events

import (
	"context"
	"sync"

	"github.com/custodia-labs/qutils/internal/core/ports/driven"
	"github.com/custodia-labs/qutils/internal/logger"
)

// Ensure Queue implements the interface.
var _ driven.EventQueue = (*Queue)(nil)

// Queue is a FIFO of deferred calls.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues fn. It returns immediately without running fn.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}

	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued calls.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush runs queued calls on the calling goroutine until the queue is empty,
// including calls posted while flushing. It returns how many calls ran.
func (q *Queue) Flush() int {
	ran := 0
	for {
		batch := q.take()
		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			q.invoke(fn)
			ran++
		}
	}
}

// Run drains the queue whenever work arrives until ctx is cancelled.
// Calls still queued at cancellation are left for a later Flush.
func (q *Queue) Run(ctx context.Context) error {
	for {
		q.Flush()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *Queue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.pending
	q.pending = nil
	return batch
}

// invoke runs fn, containing panics so one observer cannot stop delivery to
// the rest.
func (q *Queue) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("events: observer panicked: %v", r)
		}
	}()
	fn()
}
