package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driven"
	"github.com/custodia-labs/qutils/internal/core/ports/driving"
	"github.com/custodia-labs/qutils/internal/logger"
)

// Ensure Store implements the interface.
var _ driving.KeyValueStore = (*Store)(nil)

// Store is a key/value view over one table of one database file.
//
// Each Store is an instance registered with a Registry. Mutations post one
// change event per peer instance to the dispatcher; observers run when the
// dispatcher is drained, never inside the mutating call.
type Store struct {
	registry   *Registry
	dispatcher driven.Dispatcher
	schema     domain.Schema
	path       string
	db         driven.Database
	id         uint64

	mu        sync.Mutex
	observers map[int]func(domain.ChangeEvent)
	nextObs   int
	closed    bool
}

// NewStore attaches a new instance bound to (path, schema.Table).
// The table is created on first use.
func NewStore(registry *Registry, dispatcher driven.Dispatcher, path string, schema domain.Schema) (*Store, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if !schema.Kind.IsValid() {
		return nil, fmt.Errorf("%w: store kind %q", domain.ErrInvalidInput, schema.Kind)
	}

	s := &Store{
		registry:   registry,
		dispatcher: dispatcher,
		schema:     schema,
		path:       NormalizePath(path),
		observers:  make(map[int]func(domain.ChangeEvent)),
	}

	id, db, err := registry.Attach(path, schema.Table, s.deliver)
	if err != nil {
		return nil, err
	}
	s.id = id
	s.db = db

	logger.Debug("store: instance %d bound to %s/%s", id, s.path, schema.Table)
	return s, nil
}

// NewCacheStore attaches a cache instance using the configured path and
// table.
func NewCacheStore(registry *Registry, dispatcher driven.Dispatcher, cfg domain.AppConfig) (*Store, error) {
	path, err := cfg.CachePath()
	if err != nil {
		return nil, fmt.Errorf("resolving cache path: %w", err)
	}
	return NewStore(registry, dispatcher, path, cfg.CacheSchema())
}

// NewSettingsStore attaches a settings instance using the configured path
// and table.
func NewSettingsStore(registry *Registry, dispatcher driven.Dispatcher, cfg domain.AppConfig) (*Store, error) {
	path, err := cfg.SettingsPath()
	if err != nil {
		return nil, fmt.Errorf("resolving settings path: %w", err)
	}
	return NewStore(registry, dispatcher, path, cfg.SettingsSchema())
}

// ID returns the instance id.
func (s *Store) ID() uint64 {
	return s.id
}

// Schema returns the table layout.
func (s *Store) Schema() domain.Schema {
	return s.schema
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Database returns the shared connection.
func (s *Store) Database() driven.Database {
	return s.db
}

// Write stores value under key. The row is updated when the key exists and
// inserted otherwise. No event is posted when the stored bytes and type tag
// are unchanged.
func (s *Store) Write(ctx context.Context, key string, value domain.Value) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	entry, err := s.encode(key, value)
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}

	lock := s.registry.Lock(s.path, s.schema.Table)
	lock.Lock()
	defer lock.Unlock()

	old, found, err := s.lookup(ctx, key)
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}

	if found {
		err = s.db.Update(ctx, s.schema.Table, s.row(entry, false), s.schema.KeyConstraint(key))
	} else {
		err = s.db.Insert(ctx, s.schema.Table, s.row(entry, true))
	}
	if err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	s.registry.noteWrite(s.path, s.schema.Table, key, &entry)

	if found && s.same(old, entry) {
		logger.Debug("store: %s unchanged", key)
		return nil
	}

	evt := domain.ChangeEvent{Key: key, New: s.decode(entry)}
	if found {
		evt.Old = s.decode(old)
	}
	s.publish(evt)
	return nil
}

// Read returns the value stored under key.
func (s *Store) Read(ctx context.Context, key string) (domain.Value, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	entry, found, err := s.lookup(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}
	if !found {
		return nil, fmt.Errorf("reading %q: %w", key, domain.ErrNotFound)
	}

	v, err := entry.Value()
	if err != nil {
		logger.Warn("store: cannot decode %s as %s: %v", key, entry.Kind, err)
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}
	return v, nil
}

// ReadOr returns the value stored under key, or fallback when the key does
// not exist.
func (s *Store) ReadOr(ctx context.Context, key string, fallback domain.Value) (domain.Value, error) {
	v, err := s.Read(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return fallback, nil
	}
	return v, err
}

// Remove deletes key and posts a removal event if it existed.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	lock := s.registry.Lock(s.path, s.schema.Table)
	lock.Lock()
	defer lock.Unlock()

	old, found, err := s.lookup(ctx, key)
	if err != nil {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	if !found {
		return nil
	}

	if err := s.db.Delete(ctx, s.schema.Table, s.schema.KeyConstraint(key)); err != nil {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	s.registry.noteWrite(s.path, s.schema.Table, key, nil)

	s.publish(domain.ChangeEvent{Key: key, Old: s.decode(old), Removed: true})
	return nil
}

// Exists reports whether key is stored.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	ok, err := s.db.Exists(ctx, s.schema.Table, s.schema.KeyConstraint(key))
	if err != nil {
		return false, fmt.Errorf("checking %q: %w", key, err)
	}
	return ok, nil
}

// Clear removes every key, posting a removal event for each.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	lock := s.registry.Lock(s.path, s.schema.Table)
	lock.Lock()
	defer lock.Unlock()

	entries, err := s.entries(ctx)
	if err != nil {
		return fmt.Errorf("clearing %s: %w", s.schema.Table, err)
	}
	if err := s.db.Delete(ctx, s.schema.Table, nil); err != nil {
		return fmt.Errorf("clearing %s: %w", s.schema.Table, err)
	}

	for _, e := range entries {
		s.registry.noteWrite(s.path, s.schema.Table, e.Key, nil)
		s.publish(domain.ChangeEvent{Key: e.Key, Old: s.decode(e), Removed: true})
	}
	logger.Debug("store: cleared %d keys from %s", len(entries), s.schema.Table)
	return nil
}

// Keys returns every key in ascending order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.Get(ctx, domain.Query{
		Table:   s.schema.Table,
		Columns: []string{s.schema.KeyColumn},
		Order:   []domain.Order{{Column: s.schema.KeyColumn}},
	})
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, asString(row[s.schema.KeyColumn]))
	}
	return keys, nil
}

// Snapshot returns every stored entry in key order.
func (s *Store) Snapshot(ctx context.Context) ([]domain.Entry, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.schema.Table, err)
	}
	return entries, nil
}

// Subscribe registers fn for change events delivered to this instance.
func (s *Store) Subscribe(fn func(domain.ChangeEvent)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextObs++
	id := s.nextObs
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Close detaches the instance. Events still queued for it are dropped.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.observers = make(map[int]func(domain.ChangeEvent))
	s.mu.Unlock()

	return s.registry.Detach(s.id)
}

// deliver runs this instance's observers for evt.
func (s *Store) deliver(evt domain.ChangeEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	fns := make([]func(domain.ChangeEvent), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}

// publish stamps evt and posts one delivery per peer.
func (s *Store) publish(evt domain.ChangeEvent) {
	evt.ID = uuid.NewString()
	evt.Database = s.path
	evt.Table = s.schema.Table
	evt.Origin = s.id
	evt.At = time.Now()

	post(s.dispatcher, s.registry.Peers(s.path, s.schema.Table), evt)
}

// post queues evt for each delivery function.
func post(dispatcher driven.Dispatcher, peers []func(domain.ChangeEvent), evt domain.ChangeEvent) {
	for _, deliver := range peers {
		deliver := deliver
		dispatcher.Post(func() { deliver(evt) })
	}
}

func (s *Store) ready(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return domain.ErrStoreClosed
	}
	return s.registry.Ensure(ctx, s.db, s.path, s.schema)
}

// encode converts value into the entry persisted for key.
func (s *Store) encode(key string, value domain.Value) (domain.Entry, error) {
	payload, kind, err := domain.Encode(value)
	if err != nil {
		return domain.Entry{}, err
	}
	if !s.schema.Typed() && !kind.IsComposite() {
		kind = domain.KindText
	}
	return domain.Entry{Key: key, Payload: payload, Kind: kind}, nil
}

// row renders entry as table columns. The key column is included only for
// inserts.
func (s *Store) row(entry domain.Entry, withKey bool) domain.Row {
	row := domain.Row{}
	if withKey {
		row[s.schema.KeyColumn] = entry.Key
	}
	if s.schema.Typed() {
		row[s.schema.ValueColumn] = entry.Payload
		row[s.schema.TypeColumn] = int64(entry.Kind)
	} else {
		row[s.schema.ValueColumn] = string(entry.Payload)
	}
	return row
}

// same reports whether two entries are equal for notification purposes.
// Untyped layouts compare payloads only.
func (s *Store) same(a, b domain.Entry) bool {
	if !s.schema.Typed() {
		return bytes.Equal(a.Payload, b.Payload)
	}
	return a.SameAs(b)
}

// decode returns the entry's value, falling back to its raw text when the
// payload does not decode as its tag.
func (s *Store) decode(entry domain.Entry) domain.Value {
	v, err := entry.Value()
	if err != nil {
		return domain.Text(entry.Payload)
	}
	return v
}

func (s *Store) lookup(ctx context.Context, key string) (domain.Entry, bool, error) {
	rows, err := s.db.Get(ctx, domain.Query{
		Table:       s.schema.Table,
		Constraints: s.schema.KeyConstraint(key),
		Limit:       1,
	})
	if err != nil {
		return domain.Entry{}, false, err
	}
	if len(rows) == 0 {
		return domain.Entry{}, false, nil
	}
	return s.entry(rows[0]), true, nil
}

func (s *Store) entries(ctx context.Context) ([]domain.Entry, error) {
	rows, err := s.db.Get(ctx, domain.Query{
		Table: s.schema.Table,
		Order: []domain.Order{{Column: s.schema.KeyColumn}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.entry(row))
	}
	return out, nil
}

// entry converts a table row into an Entry.
func (s *Store) entry(row domain.Row) domain.Entry {
	e := domain.Entry{
		Key:     asString(row[s.schema.KeyColumn]),
		Payload: asBytes(row[s.schema.ValueColumn]),
	}
	if s.schema.Typed() {
		e.Kind = domain.KindText
		if tag, ok := asInt(row[s.schema.TypeColumn]); ok && domain.Kind(tag).IsValid() {
			e.Kind = domain.Kind(tag)
		}
	} else {
		e.Kind = inferKind(e.Payload)
	}
	return e
}

// inferKind guesses the kind of an untyped payload: JSON arrays and objects
// are composites, everything else is text.
func inferKind(payload []byte) domain.Kind {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || (trimmed[0] != '[' && trimmed[0] != '{') {
		return domain.KindText
	}
	v, err := domain.DecodeJSON(trimmed)
	if err != nil {
		return domain.KindText
	}
	return v.Kind()
}

func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

func asBytes(v any) []byte {
	switch val := v.(type) {
	case nil:
		return []byte{}
	case []byte:
		return val
	case string:
		return []byte(val)
	default:
		return []byte(fmt.Sprint(val))
	}
}

func asInt(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	case []byte:
		n, err := strconv.ParseInt(string(val), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
