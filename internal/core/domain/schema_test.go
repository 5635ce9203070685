package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheSchema(t *testing.T) {
	s := CacheSchema("")

	assert.Equal(t, StoreCache, s.Kind)
	assert.Equal(t, DefaultCacheTable, s.Table)
	assert.True(t, s.Typed())
	assert.Equal(t, []Column{
		{Name: "cache_name", Type: ColumnText, Unique: true, NotNull: true},
		{Name: "cache_value", Type: ColumnBlob},
		{Name: "cache_type", Type: ColumnInteger},
	}, s.Columns())
}

func TestSettingsSchema(t *testing.T) {
	s := SettingsSchema("prefs")
	s.UniqueKeys = false

	assert.Equal(t, StoreSettings, s.Kind)
	assert.Equal(t, "prefs", s.Table)
	assert.False(t, s.Typed())
	assert.Equal(t, []Column{
		{Name: "setting_name", Type: ColumnText},
		{Name: "setting_value", Type: ColumnText},
	}, s.Columns())
	assert.Equal(t, Where("setting_name", "lang"), s.KeyConstraint("lang"))
}

func TestStoreKind(t *testing.T) {
	assert.True(t, StoreCache.IsValid())
	assert.False(t, StoreKind("other").IsValid())
	assert.Equal(t, "settings", StoreSettings.String())
}

func TestAppConfig_Paths(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.DataDir = "/data"
	cfg.AppName = "demo"

	cachePath, err := cfg.CachePath()
	assert.NoError(t, err)
	assert.Equal(t, "/data/demo_cache.sqlite", cachePath)

	settingsPath, err := cfg.SettingsPath()
	assert.NoError(t, err)
	assert.Equal(t, "/data/qutils_settings.sqlite", settingsPath)

	cfg.UniqueKeys = false
	cfg.CacheTable = "kv"
	assert.Equal(t, "kv", cfg.CacheSchema().Table)
	assert.False(t, cfg.CacheSchema().UniqueKeys)
	assert.False(t, cfg.SettingsSchema().UniqueKeys)
}

func TestAppConfig_DefaultDataDir(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	dir, err := DefaultAppConfig().ResolveDataDir()
	assert.NoError(t, err)
	assert.Equal(t, "/home/tester/.qutils/data", dir)
}
