// Package cli implements the qutils command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/ports/driving"
	"github.com/custodia-labs/qutils/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services used by the commands. They are set by the composition root.
var (
	configService driving.ConfigService
	storeProvider driving.StoreProvider
)

// Store instances opened for the running command.
var (
	cacheStore    driving.KeyValueStore
	settingsStore driving.KeyValueStore
)

// activeConfig is the configuration after flag overrides.
var activeConfig = domain.DefaultAppConfig()

// Global flags.
var (
	dataDirFlag string
	appNameFlag string
	tableFlag   string
	verboseFlag bool
)

// stdin is the confirmation prompt input.
var stdin io.Reader = os.Stdin

var rootCmd = &cobra.Command{
	Use:   "qutils",
	Short: "Embedded key/value cache and settings store",
	Long: `qutils manages the cache and settings databases of an application.

Values are kept in SQLite files under the data directory. Every instance
bound to the same file and table is notified when a key changes.`,
	SilenceUsage:      true,
	PersistentPreRunE: resolveConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dataDirFlag, "data-dir", "", "Directory holding the database files")
	flags.StringVar(&appNameFlag, "app-name", "", "Application name used for the cache file")
	flags.StringVar(&tableFlag, "table", "", "Table to operate on")
	flags.BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}

// Configure sets the services used by the commands.
func Configure(config driving.ConfigService, provider driving.StoreProvider) {
	configService = config
	storeProvider = provider
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx and closes any store it opened.
func Execute(ctx context.Context) error {
	defer closeStores()
	return rootCmd.ExecuteContext(ctx)
}

// resolveConfig loads the configuration and applies flag overrides.
func resolveConfig(cmd *cobra.Command, _ []string) error {
	cfg := domain.DefaultAppConfig()
	if configService != nil {
		loaded, err := configService.Get()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = dataDirFlag
	}
	if flags.Changed("app-name") {
		cfg.AppName = appNameFlag
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verboseFlag
	}
	if flags.Changed("table") {
		if !domain.IsIdentifier(tableFlag) {
			return fmt.Errorf("invalid table name: %q", tableFlag)
		}
		cfg.CacheTable = tableFlag
		cfg.SettingsTable = tableFlag
	}

	activeConfig = cfg
	logger.SetVerbose(cfg.Verbose)
	return nil
}

// openCache returns the cache store for the running command.
func openCache() (driving.KeyValueStore, error) {
	if cacheStore != nil {
		return cacheStore, nil
	}
	if storeProvider == nil {
		return nil, errors.New("store provider not configured")
	}
	store, err := storeProvider.Cache(activeConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	cacheStore = store
	return store, nil
}

// openSettings returns the settings store for the running command.
func openSettings() (driving.KeyValueStore, error) {
	if settingsStore != nil {
		return settingsStore, nil
	}
	if storeProvider == nil {
		return nil, errors.New("store provider not configured")
	}
	store, err := storeProvider.Settings(activeConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	settingsStore = store
	return store, nil
}

// drain delivers queued change notifications before the process exits.
func drain() {
	if storeProvider != nil {
		storeProvider.Drain()
	}
}

func closeStores() {
	drain()
	for _, store := range []driving.KeyValueStore{cacheStore, settingsStore} {
		if store == nil {
			continue
		}
		if err := store.Close(); err != nil {
			logger.Warn("closing %s: %v", store.Path(), err)
		}
	}
	cacheStore = nil
	settingsStore = nil
}
