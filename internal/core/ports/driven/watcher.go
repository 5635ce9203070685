package driven

import "context"

// ChangeWatcher observes a database file for modifications made outside
// the process.
type ChangeWatcher interface {
	// Watch calls onChange after the file at path changes, until ctx is
	// cancelled. Bursts of modifications may be coalesced into one call.
	Watch(ctx context.Context, path string, onChange func(context.Context) error) error
}
