package driven

import "context"

// Dispatcher defers work to a later turn of the application's event loop.
//
// Post never runs fn inline: the caller returns before fn executes.
// The application decides when queued work runs.
type Dispatcher interface {
	Post(fn func())
}

// EventQueue is a Dispatcher whose queued work can be drained.
type EventQueue interface {
	Dispatcher

	// Flush runs queued work on the calling goroutine until none is left.
	// It returns how many calls ran.
	Flush() int

	// Run drains queued work as it arrives until ctx is cancelled.
	Run(ctx context.Context) error
}
