package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qutils/internal/core/domain"
)

// setupTestManager opens a database in a temporary directory.
func setupTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, m.Close())
	})
	return m
}

// createCacheTable creates the cache layout.
func createCacheTable(t *testing.T, m *Manager) {
	t.Helper()
	created, err := m.CreateTable(context.Background(), "cache", domain.CacheSchema("cache").Columns())
	require.NoError(t, err)
	require.True(t, created)
}

func insertEntry(t *testing.T, m *Manager, name, value string, tag int64) {
	t.Helper()
	err := m.Insert(context.Background(), "cache", domain.Row{
		"cache_name":  name,
		"cache_value": []byte(value),
		"cache_type":  tag,
	})
	require.NoError(t, err)
}

// ==================== Open ====================

func TestOpen_CreatesDirectoryAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	path := filepath.Join(dir, "app_cache.sqlite")

	m, err := Open(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, path, m.Path())
	assert.DirExists(t, dir)
	assert.FileExists(t, path)
	assert.Nil(t, m.LastError())
}

func TestOpen_ErrorHandling(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Open("/invalid\x00path/db.sqlite")
	assert.Error(t, err)
}

func TestOpen_Memory(t *testing.T) {
	m, err := Open(MemoryPath)
	require.NoError(t, err)
	defer m.Close()

	created, err := m.CreateTable(context.Background(), "t", []domain.Column{{Name: "a", Type: domain.ColumnText}})
	require.NoError(t, err)
	assert.True(t, created)

	// The single pooled connection keeps the table visible.
	exists, err := m.TableExists(context.Background(), "t")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOpener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opener.sqlite")
	db, err := Opener().Open(path)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, path, db.Path())
}

// ==================== CreateTable ====================

func TestCreateTable_TwiceIsNoop(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	created, err := m.CreateTable(ctx, "cache", domain.CacheSchema("cache").Columns())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.CreateTable(ctx, "cache", domain.CacheSchema("cache").Columns())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, m.LastError())

	tables, err := m.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cache"}, tables)
}

func TestCreateTable_ConcurrentManagers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.sqlite")

	managers := make([]*Manager, 4)
	for i := range managers {
		m, err := Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = m.Close() })
		managers[i] = m
	}

	var wg sync.WaitGroup
	created := make([]bool, len(managers))
	errs := make([]error, len(managers))
	for i, m := range managers {
		wg.Add(1)
		go func(i int, m *Manager) {
			defer wg.Done()
			created[i], errs[i] = m.CreateTable(ctx, "cache", domain.CacheSchema("cache").Columns())
		}(i, m)
	}
	wg.Wait()

	count := 0
	for i := range managers {
		require.NoError(t, errs[i])
		if created[i] {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCreateTable_InvalidName(t *testing.T) {
	m := setupTestManager(t)

	_, err := m.CreateTable(context.Background(), "bad name", domain.CacheSchema("x").Columns())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	require.NotNil(t, m.LastError())
}

// ==================== Get ====================

func TestGet_ReturnsTypedRows(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)
	createCacheTable(t, m)
	insertEntry(t, m, "lang", "en", 1)

	rows, err := m.Get(ctx, domain.Query{Table: "cache", Constraints: domain.Where("cache_name", "lang")})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "lang", rows[0]["cache_name"])
	assert.Equal(t, []byte("en"), rows[0]["cache_value"])
	assert.Equal(t, int64(1), rows[0]["cache_type"])
}

func TestGet_NoMatchIsEmpty(t *testing.T) {
	m := setupTestManager(t)
	createCacheTable(t, m)

	rows, err := m.Get(context.Background(), domain.Query{Table: "cache", Constraints: domain.Where("cache_name", "missing")})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestGet_OrderAndLimit(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)
	createCacheTable(t, m)
	insertEntry(t, m, "b", "2", 1)
	insertEntry(t, m, "a", "1", 1)
	insertEntry(t, m, "c", "3", 1)

	rows, err := m.Get(ctx, domain.Query{
		Table: "cache",
		Order: []domain.Order{{Column: "cache_name", Descending: true}},
		Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0]["cache_name"])
	assert.Equal(t, "b", rows[1]["cache_name"])
}

func TestGet_PositionalJoinerPrecedence(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)
	createCacheTable(t, m)
	insertEntry(t, m, "a", "x", 1)
	insertEntry(t, m, "b", "y", 2)
	insertEntry(t, m, "c", "z", 2)

	// name = a OR name = b AND type = 1  ->  a OR (b AND 1)
	rows, err := m.Get(ctx, domain.Query{
		Table: "cache",
		Constraints: []domain.Constraint{
			{Column: "cache_name", Value: "a", Joiner: domain.JoinOr},
			{Column: "cache_name", Value: "b", Joiner: domain.JoinAnd},
			{Column: "cache_type", Value: 1},
		},
		Order: []domain.Order{{Column: "cache_name"}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0]["cache_name"])
}

func TestGet_MissingTableRecordsError(t *testing.T) {
	m := setupTestManager(t)

	rows, err := m.Get(context.Background(), domain.Query{Table: "nope"})
	assert.ErrorIs(t, err, domain.ErrTableNotFound)
	assert.Empty(t, rows)

	last := m.LastError()
	require.NotNil(t, last)
	assert.Equal(t, `SELECT * FROM "nope"`, last.Query)
	assert.Contains(t, last.Error(), "no such table")
	assert.True(t, IsSQLError(err))
}

func TestLastError_OverwrittenByNextFailure(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)

	_, _ = m.Get(ctx, domain.Query{Table: "first"})
	_, _ = m.Get(ctx, domain.Query{Table: "second"})

	last := m.LastError()
	require.NotNil(t, last)
	assert.Contains(t, last.Query, `"second"`)
}

// ==================== Insert / Update / Delete ====================

func TestUpdate_ChangesMatchingRows(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)
	createCacheTable(t, m)
	insertEntry(t, m, "lang", "en", 1)

	err := m.Update(ctx, "cache", domain.Row{"cache_value": []byte("fr")}, domain.Where("cache_name", "lang"))
	require.NoError(t, err)

	rows, err := m.Get(ctx, domain.Query{Table: "cache"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []byte("fr"), rows[0]["cache_value"])
}

func TestInsert_UniqueKeyRejectsDuplicate(t *testing.T) {
	m := setupTestManager(t)
	createCacheTable(t, m)
	insertEntry(t, m, "lang", "en", 1)

	err := m.Insert(context.Background(), "cache", domain.Row{"cache_name": "lang", "cache_value": []byte("fr"), "cache_type": int64(1)})
	assert.Error(t, err)
	require.NotNil(t, m.LastError())
	assert.Contains(t, m.LastError().Query, "INSERT INTO")
}

func TestDeleteExistsCount(t *testing.T) {
	ctx := context.Background()
	m := setupTestManager(t)
	createCacheTable(t, m)
	insertEntry(t, m, "a", "1", 1)
	insertEntry(t, m, "b", "2", 1)

	exists, err := m.Exists(ctx, "cache", domain.Where("cache_name", "a"))
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := m.Count(ctx, "cache", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, m.Delete(ctx, "cache", domain.Where("cache_name", "a")))

	exists, err = m.Exists(ctx, "cache", domain.Where("cache_name", "a"))
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, m.Delete(ctx, "cache", nil))
	n, err = m.Count(ctx, "cache", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSharedFile_VisibleAcrossManagers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.sqlite")

	first, err := Open(path)
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	createCacheTable(t, first)
	insertEntry(t, first, "k", "v", 1)

	exists, err := second.Exists(ctx, "cache", domain.Where("cache_name", "k"))
	require.NoError(t, err)
	assert.True(t, exists)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}
