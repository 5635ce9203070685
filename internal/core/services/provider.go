package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driven"
	"github.com/custodia-labs/qutils/internal/core/ports/driving"
)

// Ensure Provider implements the interface.
var _ driving.StoreProvider = (*Provider)(nil)

// Provider opens stores through one Registry and one event queue.
type Provider struct {
	registry *Registry
	queue    driven.EventQueue
	watcher  driven.ChangeWatcher
}

// NewProvider creates a provider. watcher may be nil, in which case Watch
// only reports changes made within the process.
func NewProvider(registry *Registry, queue driven.EventQueue, watcher driven.ChangeWatcher) *Provider {
	return &Provider{
		registry: registry,
		queue:    queue,
		watcher:  watcher,
	}
}

// Cache opens a cache store instance.
func (p *Provider) Cache(cfg domain.AppConfig) (driving.KeyValueStore, error) {
	store, err := NewCacheStore(p.registry, p.queue, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Settings opens a settings store instance.
func (p *Provider) Settings(cfg domain.AppConfig) (driving.KeyValueStore, error) {
	store, err := NewSettingsStore(p.registry, p.queue, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Tables lists the tables in the database behind store.
func (p *Provider) Tables(ctx context.Context, store driving.KeyValueStore) ([]string, error) {
	s, ok := store.(*Store)
	if !ok {
		return nil, fmt.Errorf("%w: store %T has no database", domain.ErrInvalidInput, store)
	}
	return s.Database().Tables(ctx)
}

// Drain delivers every queued change notification.
func (p *Provider) Drain() int {
	return p.queue.Flush()
}

// Watch subscribes fn to store and runs the event queue until ctx is
// cancelled. When a file watcher is configured, modifications made by other
// processes are detected and delivered as well.
func (p *Provider) Watch(ctx context.Context, store driving.KeyValueStore, fn func(domain.ChangeEvent)) error {
	s, ok := store.(*Store)
	if !ok {
		return fmt.Errorf("%w: store %T cannot be watched", domain.ErrInvalidInput, store)
	}

	unsubscribe := s.Subscribe(fn)
	defer unsubscribe()

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	queueDone := make(chan error, 1)
	go func() { queueDone <- p.queue.Run(ctx) }()

	if p.watcher == nil {
		<-queueDone
		return nil
	}

	monitor := NewMonitor(s)
	defer monitor.Close()
	if err := monitor.Prime(ctx); err != nil {
		return err
	}

	err := p.watcher.Watch(ctx, s.Path(), func(ctx context.Context) error {
		_, err := monitor.Poll(ctx)
		return err
	})
	stop()
	<-queueDone
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
