package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driven"
	"github.com/custodia-labs/qutils/internal/logger"
)

// Monitor detects changes made to a table by other processes.
//
// It keeps a snapshot of the table. Local mutations update the snapshot as
// they happen, so Poll reports only rows that changed underneath the
// process. Detected changes are posted to every instance bound to the
// table with Origin zero.
type Monitor struct {
	store      *Store
	registry   *Registry
	dispatcher driven.Dispatcher

	mu       sync.Mutex
	snapshot map[string]domain.Entry
	primed   bool
	untrack  func()
}

// NewMonitor creates a monitor for the table behind store.
func NewMonitor(store *Store) *Monitor {
	m := &Monitor{
		store:      store,
		registry:   store.registry,
		dispatcher: store.dispatcher,
		snapshot:   make(map[string]domain.Entry),
	}
	m.untrack = m.registry.TrackWrites(store.Path(), store.Schema().Table, m.applyLocal)
	return m
}

// Prime records the current table contents as the baseline.
func (m *Monitor) Prime(ctx context.Context) error {
	lock := m.registry.Lock(m.store.Path(), m.store.Schema().Table)
	lock.Lock()
	defer lock.Unlock()

	entries, err := m.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("priming monitor: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = index(entries)
	m.primed = true
	return nil
}

// Poll compares the table with the baseline and posts an event for every
// key that was added, changed or removed since. It returns the number of
// events posted. The first call only primes the baseline.
func (m *Monitor) Poll(ctx context.Context) (int, error) {
	lock := m.registry.Lock(m.store.Path(), m.store.Schema().Table)
	lock.Lock()
	defer lock.Unlock()

	entries, err := m.store.Snapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("polling %s: %w", m.store.Schema().Table, err)
	}
	current := index(entries)

	m.mu.Lock()
	previous := m.snapshot
	primed := m.primed
	m.snapshot = current
	m.primed = true
	m.mu.Unlock()

	if !primed {
		return 0, nil
	}

	events := diff(previous, current, m.store)
	if len(events) == 0 {
		return 0, nil
	}

	peers := m.registry.Peers(m.store.Path(), m.store.Schema().Table)
	now := time.Now()
	for _, evt := range events {
		evt.ID = uuid.NewString()
		evt.Database = m.store.Path()
		evt.Table = m.store.Schema().Table
		evt.At = now
		post(m.dispatcher, peers, evt)
	}

	logger.Debug("monitor: %d external changes in %s", len(events), m.store.Schema().Table)
	return len(events), nil
}

// Close stops tracking local writes.
func (m *Monitor) Close() {
	if m.untrack != nil {
		m.untrack()
		m.untrack = nil
	}
}

// applyLocal folds a local mutation into the baseline.
func (m *Monitor) applyLocal(key string, entry *domain.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry == nil {
		delete(m.snapshot, key)
		return
	}
	m.snapshot[key] = *entry
}

func index(entries []domain.Entry) map[string]domain.Entry {
	out := make(map[string]domain.Entry, len(entries))
	for _, e := range entries {
		out[e.Key] = e
	}
	return out
}

// diff returns the events turning previous into current, in key order.
func diff(previous, current map[string]domain.Entry, s *Store) []domain.ChangeEvent {
	keys := make([]string, 0, len(previous)+len(current))
	for k := range previous {
		keys = append(keys, k)
	}
	for k := range current {
		if _, ok := previous[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var events []domain.ChangeEvent
	for _, k := range keys {
		before, had := previous[k]
		after, has := current[k]
		switch {
		case had && !has:
			events = append(events, domain.ChangeEvent{Key: k, Old: s.decode(before), Removed: true})
		case !had && has:
			events = append(events, domain.ChangeEvent{Key: k, New: s.decode(after)})
		case !s.same(before, after):
			events = append(events, domain.ChangeEvent{Key: k, Old: s.decode(before), New: s.decode(after)})
		}
	}
	return events
}
