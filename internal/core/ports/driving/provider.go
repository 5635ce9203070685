package driving

import (
	"context"

	"github.com/custodia-labs/qutils/internal/core/domain"
)

// StoreProvider opens key/value stores for a configuration and delivers
// their change notifications.
type StoreProvider interface {
	// Cache opens a cache store instance.
	Cache(cfg domain.AppConfig) (KeyValueStore, error)

	// Settings opens a settings store instance.
	Settings(cfg domain.AppConfig) (KeyValueStore, error)

	// Tables lists the tables in the database behind store.
	Tables(ctx context.Context, store KeyValueStore) ([]string, error)

	// Drain delivers every queued change notification.
	Drain() int

	// Watch delivers changes to store, including changes made by other
	// processes, to fn until ctx is cancelled.
	Watch(ctx context.Context, store KeyValueStore, fn func(domain.ChangeEvent)) error
}
