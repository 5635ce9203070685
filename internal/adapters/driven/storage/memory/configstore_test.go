package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.values)
}

func TestConfigStore_Set_Update(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("store.app_name", "original"))
	require.NoError(t, store.Set("store.app_name", "updated"))

	val, ok := store.Get("store.app_name")
	assert.True(t, ok)
	assert.Equal(t, "updated", val)
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := NewConfigStore()

	val, ok := store.Get("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_Delete(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("store.data_dir", "/tmp/data")

	require.NoError(t, store.Delete("store.data_dir"))

	_, ok := store.Get("store.data_dir")
	assert.False(t, ok)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete("store.data_dir"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("s", "text")
	_ = store.Set("b", true)
	_ = store.Set("n", 123)

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{name: "string", got: store.GetString("s"), expected: "text"},
		{name: "string wrong type", got: store.GetString("n"), expected: ""},
		{name: "string missing", got: store.GetString("missing"), expected: ""},
		{name: "bool", got: store.GetBool("b"), expected: true},
		{name: "bool wrong type", got: store.GetBool("s"), expected: false},
		{name: "bool missing", got: store.GetBool("missing"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestConfigStore_LoadAndPath(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Load())
	assert.Equal(t, ConfigPath, store.Path())
}

func TestConfigStore_Seeded(t *testing.T) {
	seed := map[string]any{"store.app_name": "demo", "log.verbose": true}
	store := NewConfigStore(seed)
	seed["store.app_name"] = "changed"

	assert.Equal(t, "demo", store.GetString("store.app_name"))
	assert.True(t, store.GetBool("log.verbose"))
	assert.Equal(t, []string{"log.verbose", "store.app_name"}, store.Keys())
}

func TestConfigStore_SetEmptyKey(t *testing.T) {
	store := NewConfigStore()
	assert.Error(t, store.Set("", "x"))
	assert.Empty(t, store.Keys())
}

func TestConfigStore_Concurrency_MixedOperations(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	numOperations := 100

	wg.Add(numOperations)
	for i := 0; i < numOperations; i++ {
		go func(id int) {
			defer wg.Done()
			key := "key-" + string(rune('A'+id%26))
			switch id % 4 {
			case 0:
				_ = store.Set(key, id)
			case 1:
				_, _ = store.Get(key)
			case 2:
				_ = store.GetString(key)
			case 3:
				_ = store.Delete(key)
			}
		}(i)
	}
	wg.Wait()
}
