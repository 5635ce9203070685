package memory

import (
	"errors"
	"sort"
	"sync"

	"github.com/custodia-labs/qutils/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigPath is the path reported by in-memory config stores.
const ConfigPath = ":memory:"

// ConfigStore keeps configuration values in a map. It follows the same key
// rules as the TOML file store so services behave identically in tests.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore creates a config store seeded with a copy of values.
func NewConfigStore(values ...map[string]any) *ConfigStore {
	s := &ConfigStore{values: make(map[string]any)}
	for _, seed := range values {
		for k, v := range seed {
			s.values[k] = v
		}
	}
	return s
}

// Get retrieves a configuration value by key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString returns the value under key if it is a string.
func (s *ConfigStore) GetString(key string) string {
	str, _ := s.lookup(key).(string)
	return str
}

// GetBool returns the value under key if it is a bool.
func (s *ConfigStore) GetBool(key string) bool {
	b, _ := s.lookup(key).(bool)
	return b
}

// Keys returns every stored key in sorted order.
func (s *ConfigStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores a configuration value.
func (s *ConfigStore) Set(key string, value any) error {
	if key == "" {
		return errors.New("config key must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *ConfigStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Load is a no-op: there is nothing to read.
func (s *ConfigStore) Load() error {
	return nil
}

// Path returns ConfigPath.
func (s *ConfigStore) Path() string {
	return ConfigPath
}

func (s *ConfigStore) lookup(key string) any {
	val, _ := s.Get(key)
	return val
}
