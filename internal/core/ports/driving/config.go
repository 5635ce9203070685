package driving

import "github.com/custodia-labs/qutils/internal/core/domain"

// ConfigService manages application configuration.
type ConfigService interface {
	// Get retrieves the current configuration with defaults applied.
	Get() (*domain.AppConfig, error)

	// Save persists the configuration.
	Save(cfg *domain.AppConfig) error

	// Set updates a single configuration key, validating its value.
	Set(key, value string) error

	// Keys returns the supported configuration keys.
	Keys() []string

	// GetDefaults returns the default configuration.
	GetDefaults() domain.AppConfig

	// Path returns where the configuration is stored.
	Path() string
}
