package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driven"
	"github.com/custodia-labs/qutils/internal/logger"
)

// memoryPath is the path of a private in-memory database.
const memoryPath = ":memory:"

// tableKey identifies a table within a database file.
type tableKey struct {
	path  string
	table string
}

// connection is a database shared by every instance bound to its path.
type connection struct {
	db   driven.Database
	refs int
}

// binding is a live store instance.
type binding struct {
	id      uint64
	key     tableKey
	deliver func(domain.ChangeEvent)
}

// Registry tracks live key/value store instances and the database
// connections they share.
//
// Instances bound to the same (path, table) pair are peers: a change made
// through one is delivered to all of them. Connections are reference
// counted and closed when the last instance bound to the path detaches.
type Registry struct {
	opener driven.Opener

	mu       sync.Mutex
	nextID   uint64
	conns    map[string]*connection
	bindings map[uint64]*binding
	ensured  map[tableKey]bool
	locks    map[tableKey]*sync.Mutex
	writes   map[tableKey]map[int]func(key string, entry *domain.Entry)
	nextHook int
}

// NewRegistry creates a registry that opens databases with opener.
func NewRegistry(opener driven.Opener) *Registry {
	return &Registry{
		opener:   opener,
		conns:    make(map[string]*connection),
		bindings: make(map[uint64]*binding),
		ensured:  make(map[tableKey]bool),
		locks:    make(map[tableKey]*sync.Mutex),
		writes:   make(map[tableKey]map[int]func(string, *domain.Entry)),
	}
}

// NormalizePath returns the registry key for a database path.
// Relative paths are made absolute so that different spellings of the same
// file share one connection.
func NormalizePath(path string) string {
	if path == "" || path == memoryPath {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Attach registers a new instance bound to (path, table) and returns its id
// and the shared connection. Ids increase monotonically and are never
// reused.
func (r *Registry) Attach(path, table string, deliver func(domain.ChangeEvent)) (uint64, driven.Database, error) {
	if path == "" {
		return 0, nil, fmt.Errorf("%w: empty database path", domain.ErrInvalidInput)
	}
	if !domain.IsIdentifier(table) {
		return 0, nil, fmt.Errorf("%w: table name %q", domain.ErrInvalidInput, table)
	}
	path = NormalizePath(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[path]
	if !ok {
		db, err := r.opener.Open(path)
		if err != nil {
			return 0, nil, fmt.Errorf("opening %s: %w", path, err)
		}
		conn = &connection{db: db}
		r.conns[path] = conn
		logger.Debug("registry: opened %s", path)
	}
	conn.refs++

	r.nextID++
	id := r.nextID
	r.bindings[id] = &binding{
		id:      id,
		key:     tableKey{path: path, table: table},
		deliver: deliver,
	}

	return id, conn.db, nil
}

// Detach unregisters an instance. When it was the last instance bound to
// its path, the shared connection is closed.
func (r *Registry) Detach(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings[id]
	if !ok {
		return nil
	}
	delete(r.bindings, id)

	conn, ok := r.conns[b.key.path]
	if !ok {
		return nil
	}
	conn.refs--
	if conn.refs > 0 {
		return nil
	}

	delete(r.conns, b.key.path)
	r.forgetPath(b.key.path)
	logger.Debug("registry: closing %s", b.key.path)
	if err := conn.db.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", b.key.path, err)
	}
	return nil
}

// forgetPath drops the per-table state of every table in path. Callers
// hold r.mu.
func (r *Registry) forgetPath(path string) {
	for key := range r.ensured {
		if key.path == path {
			delete(r.ensured, key)
		}
	}
	for key := range r.locks {
		if key.path == path {
			delete(r.locks, key)
		}
	}
	for key := range r.writes {
		if key.path == path {
			delete(r.writes, key)
		}
	}
}

// Peers returns the delivery functions of every instance bound to
// (path, table), in attach order.
func (r *Registry) Peers(path, table string) []func(domain.ChangeEvent) {
	key := tableKey{path: NormalizePath(path), table: table}

	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		if b.key == key && b.deliver != nil {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].id < matched[j].id })

	out := make([]func(domain.ChangeEvent), len(matched))
	for i, b := range matched {
		out[i] = b.deliver
	}
	return out
}

// Instances returns the number of live instances.
func (r *Registry) Instances() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

// Connections returns the number of open shared connections.
func (r *Registry) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Lock returns the mutex serialising read-modify-write sequences on
// (path, table).
func (r *Registry) Lock(path, table string) *sync.Mutex {
	key := tableKey{path: NormalizePath(path), table: table}

	r.mu.Lock()
	defer r.mu.Unlock()

	mu, ok := r.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		r.locks[key] = mu
	}
	return mu
}

// Ensure creates the schema's table on db unless it was already ensured
// on this connection.
func (r *Registry) Ensure(ctx context.Context, db driven.Database, path string, schema domain.Schema) error {
	key := tableKey{path: NormalizePath(path), table: schema.Table}

	// The table lock makes check-then-create atomic within the process.
	lock := r.Lock(key.path, key.table)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	done := r.ensured[key]
	r.mu.Unlock()
	if done {
		return nil
	}

	created, err := db.CreateTable(ctx, schema.Table, schema.Columns())
	if err != nil {
		return fmt.Errorf("creating table %s: %w", schema.Table, err)
	}
	if created {
		logger.Debug("registry: created table %s in %s", schema.Table, key.path)
	}

	r.mu.Lock()
	r.ensured[key] = true
	r.mu.Unlock()
	return nil
}

// TrackWrites registers fn to be called synchronously after every local
// mutation of (path, table), while the table lock is held. A nil entry
// means the key was removed. The returned function cancels tracking.
func (r *Registry) TrackWrites(path, table string, fn func(key string, entry *domain.Entry)) (cancel func()) {
	key := tableKey{path: NormalizePath(path), table: table}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextHook++
	hook := r.nextHook
	if r.writes[key] == nil {
		r.writes[key] = make(map[int]func(string, *domain.Entry))
	}
	r.writes[key][hook] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.writes[key], hook)
		if len(r.writes[key]) == 0 {
			delete(r.writes, key)
		}
	}
}

// noteWrite runs the write trackers of (path, table).
func (r *Registry) noteWrite(path, table, key string, entry *domain.Entry) {
	tk := tableKey{path: NormalizePath(path), table: table}

	r.mu.Lock()
	hooks := make([]func(string, *domain.Entry), 0, len(r.writes[tk]))
	for _, fn := range r.writes[tk] {
		hooks = append(hooks, fn)
	}
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(key, entry)
	}
}

// Close closes every open connection and forgets all instances.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for path, conn := range r.conns {
		if err := conn.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s: %w", path, err)
		}
	}
	r.conns = make(map[string]*connection)
	r.bindings = make(map[uint64]*binding)
	r.ensured = make(map[tableKey]bool)
	return firstErr
}
