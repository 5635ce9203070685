package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qutils/internal/adapters/driven/events"
	"github.com/custodia-labs/qutils/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qutils/internal/core/domain"
)

func TestMonitor_ReportsExternalChanges(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(memory.Opener())
	q := events.NewQueue()
	s := newCache(t, reg, q, "app.sqlite")

	require.NoError(t, s.Write(ctx, "keep", domain.Text("same")))
	require.NoError(t, s.Write(ctx, "edit", domain.Text("before")))
	require.NoError(t, s.Write(ctx, "drop", domain.Text("gone")))
	q.Flush()

	m := NewMonitor(s)
	defer m.Close()
	require.NoError(t, m.Prime(ctx))

	rec := &recorder{}
	s.Subscribe(rec.record)

	// Simulate another process writing the file directly.
	db := s.Database()
	require.NoError(t, db.Update(ctx, "cache", domain.Row{"cache_value": []byte("after")}, domain.Where("cache_name", "edit")))
	require.NoError(t, db.Delete(ctx, "cache", domain.Where("cache_name", "drop")))
	require.NoError(t, db.Insert(ctx, "cache", domain.Row{"cache_name": "add", "cache_value": []byte("7"), "cache_type": int64(domain.KindInt)}))

	n, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, rec.events, "delivery must be queued")

	q.Flush()
	require.Len(t, rec.events, 3)

	assert.Equal(t, "add", rec.events[0].Key)
	assert.Equal(t, domain.Int(7), rec.events[0].New)
	assert.Equal(t, "drop", rec.events[1].Key)
	assert.True(t, rec.events[1].Removed)
	assert.Equal(t, "edit", rec.events[2].Key)
	assert.Equal(t, "before", rec.events[2].OldString())
	assert.Equal(t, "after", rec.events[2].NewString())
	for _, evt := range rec.events {
		assert.Zero(t, evt.Origin)
	}

	n, err = m.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMonitor_IgnoresLocalWrites(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(memory.Opener())
	q := events.NewQueue()
	s := newCache(t, reg, q, "app.sqlite")

	m := NewMonitor(s)
	defer m.Close()
	require.NoError(t, m.Prime(ctx))

	require.NoError(t, s.Write(ctx, "a", domain.Text("1")))
	require.NoError(t, s.Remove(ctx, "a"))
	require.NoError(t, s.Write(ctx, "b", domain.Text("2")))

	n, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMonitor_FirstPollPrimes(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(memory.Opener())
	s := newCache(t, reg, events.NewQueue(), "app.sqlite")
	require.NoError(t, s.Write(ctx, "a", domain.Text("1")))

	m := NewMonitor(s)
	defer m.Close()

	n, err := m.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
