package domain

import (
	"os"
	"path/filepath"
)

// Default application values.
const (
	// DefaultAppName names the cache database file.
	DefaultAppName = "qutils"

	// SettingsFileName is the settings database file name.
	SettingsFileName = "qutils_settings.sqlite"
)

// AppConfig holds the application configuration.
type AppConfig struct {
	// DataDir is the directory holding the database files.
	// Empty means the user data directory.
	DataDir string

	// AppName prefixes the cache database file name.
	AppName string

	// CacheTable is the cache store table name.
	CacheTable string

	// SettingsTable is the settings store table name.
	SettingsTable string

	// UniqueKeys declares key columns UNIQUE on newly created tables.
	UniqueKeys bool

	// Verbose enables debug logging.
	Verbose bool
}

// DefaultAppConfig returns the configuration with defaults applied.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		AppName:       DefaultAppName,
		CacheTable:    DefaultCacheTable,
		SettingsTable: DefaultSettingsTable,
		UniqueKeys:    true,
	}
}

// ResolveDataDir returns DataDir, or ~/.qutils/data when unset.
func (c AppConfig) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".qutils", "data"), nil
}

// CachePath returns <data-dir>/<app-name>_cache.sqlite.
func (c AppConfig) CachePath() (string, error) {
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	name := c.AppName
	if name == "" {
		name = DefaultAppName
	}
	return filepath.Join(dir, name+"_cache.sqlite"), nil
}

// SettingsPath returns <data-dir>/qutils_settings.sqlite.
func (c AppConfig) SettingsPath() (string, error) {
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

// CacheSchema returns the cache schema for this configuration.
func (c AppConfig) CacheSchema() Schema {
	s := CacheSchema(c.CacheTable)
	s.UniqueKeys = c.UniqueKeys
	return s
}

// SettingsSchema returns the settings schema for this configuration.
func (c AppConfig) SettingsSchema() Schema {
	s := SettingsSchema(c.SettingsTable)
	s.UniqueKeys = c.UniqueKeys
	return s
}
