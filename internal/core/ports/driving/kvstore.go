package driving

import (
	"context"

	"github.com/custodia-labs/qutils/internal/core/domain"
)

// KeyValueStore is a typed key/value view of one table in one database.
//
// Several instances may be bound to the same database path and table.
// A change made through any of them is delivered to the observers of all
// of them, including the writer, through the application's dispatcher.
// Delivery is queued: observers never run before the mutating call returns.
type KeyValueStore interface {
	// Write stores value under key, updating the existing row if any.
	Write(ctx context.Context, key string, value domain.Value) error

	// Read returns the value stored under key.
	// Returns domain.ErrNotFound if the key does not exist.
	Read(ctx context.Context, key string) (domain.Value, error)

	// ReadOr returns the value stored under key, or fallback if absent.
	ReadOr(ctx context.Context, key string, fallback domain.Value) (domain.Value, error)

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Exists reports whether key is stored.
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes every key.
	Clear(ctx context.Context) error

	// Keys returns all keys in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Snapshot returns every stored entry in key order.
	Snapshot(ctx context.Context) ([]domain.Entry, error)

	// Subscribe registers fn for change events.
	// The returned function cancels the subscription.
	Subscribe(fn func(domain.ChangeEvent)) (cancel func())

	// Schema returns the table layout.
	Schema() domain.Schema

	// Path returns the database file path.
	Path() string

	// Close releases the instance. The shared connection closes when the
	// last instance bound to it is closed.
	Close() error
}
