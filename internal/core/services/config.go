package services

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driven"
	"github.com/custodia-labs/qutils/internal/core/ports/driving"
)

// Ensure ConfigService implements the interface.
var _ driving.ConfigService = (*ConfigService)(nil)

// Config keys.
const (
	KeyDataDir       = "store.data_dir"
	KeyAppName       = "store.app_name"
	KeyCacheTable    = "store.cache_table"
	KeySettingsTable = "store.settings_table"
	KeyUniqueKeys    = "store.unique_keys"
	KeyVerbose       = "log.verbose"
)

// appNamePattern restricts app names to characters safe in a file name.
var appNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

var configKeys = []string{
	KeyDataDir,
	KeyAppName,
	KeyCacheTable,
	KeySettingsTable,
	KeyUniqueKeys,
	KeyVerbose,
}

// ConfigService manages application configuration.
type ConfigService struct {
	configStore driven.ConfigStore
}

// NewConfigService creates a new config service.
func NewConfigService(configStore driven.ConfigStore) *ConfigService {
	return &ConfigService{configStore: configStore}
}

// Get retrieves the configuration with defaults applied. Invalid stored
// values fall back to their defaults.
func (s *ConfigService) Get() (*domain.AppConfig, error) {
	defaults := domain.DefaultAppConfig()

	cfg := &domain.AppConfig{
		DataDir:       s.configStore.GetString(KeyDataDir), // Empty means the user data directory
		AppName:       s.getName(KeyAppName, defaults.AppName),
		CacheTable:    s.getIdentifier(KeyCacheTable, defaults.CacheTable),
		SettingsTable: s.getIdentifier(KeySettingsTable, defaults.SettingsTable),
		UniqueKeys:    s.getBool(KeyUniqueKeys, defaults.UniqueKeys),
		Verbose:       s.getBool(KeyVerbose, defaults.Verbose),
	}

	return cfg, nil
}

// Save persists the configuration.
func (s *ConfigService) Save(cfg *domain.AppConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	if cfg.DataDir == "" {
		if err := s.configStore.Delete(KeyDataDir); err != nil {
			return fmt.Errorf("save data_dir: %w", err)
		}
	} else if err := s.configStore.Set(KeyDataDir, cfg.DataDir); err != nil {
		return fmt.Errorf("save data_dir: %w", err)
	}
	if err := s.configStore.Set(KeyAppName, cfg.AppName); err != nil {
		return fmt.Errorf("save app_name: %w", err)
	}
	if err := s.configStore.Set(KeyCacheTable, cfg.CacheTable); err != nil {
		return fmt.Errorf("save cache_table: %w", err)
	}
	if err := s.configStore.Set(KeySettingsTable, cfg.SettingsTable); err != nil {
		return fmt.Errorf("save settings_table: %w", err)
	}
	if err := s.configStore.Set(KeyUniqueKeys, cfg.UniqueKeys); err != nil {
		return fmt.Errorf("save unique_keys: %w", err)
	}
	if err := s.configStore.Set(KeyVerbose, cfg.Verbose); err != nil {
		return fmt.Errorf("save verbose: %w", err)
	}

	return nil
}

// Set updates a single key from its text form.
func (s *ConfigService) Set(key, value string) error {
	cfg, err := s.Get()
	if err != nil {
		return err
	}

	switch key {
	case KeyDataDir:
		cfg.DataDir = value
	case KeyAppName:
		cfg.AppName = value
	case KeyCacheTable:
		cfg.CacheTable = value
	case KeySettingsTable:
		cfg.SettingsTable = value
	case KeyUniqueKeys, KeyVerbose:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		if key == KeyUniqueKeys {
			cfg.UniqueKeys = b
		} else {
			cfg.Verbose = b
		}
	default:
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}

	return s.Save(cfg)
}

// Keys returns the supported configuration keys.
func (s *ConfigService) Keys() []string {
	out := make([]string, len(configKeys))
	copy(out, configKeys)
	return out
}

// GetDefaults returns the default configuration.
func (s *ConfigService) GetDefaults() domain.AppConfig {
	return domain.DefaultAppConfig()
}

// Path returns the configuration file path.
func (s *ConfigService) Path() string {
	return s.configStore.Path()
}

func validateConfig(cfg *domain.AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", domain.ErrInvalidInput)
	}
	if !appNamePattern.MatchString(cfg.AppName) {
		return fmt.Errorf("%w: app name %q", domain.ErrInvalidInput, cfg.AppName)
	}
	if !domain.IsIdentifier(cfg.CacheTable) {
		return fmt.Errorf("%w: cache table %q", domain.ErrInvalidInput, cfg.CacheTable)
	}
	if !domain.IsIdentifier(cfg.SettingsTable) {
		return fmt.Errorf("%w: settings table %q", domain.ErrInvalidInput, cfg.SettingsTable)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *ConfigService) getName(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if !appNamePattern.MatchString(val) {
		return defaultVal
	}
	return val
}

func (s *ConfigService) getIdentifier(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if !domain.IsIdentifier(val) {
		return defaultVal
	}
	return val
}

func (s *ConfigService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}
