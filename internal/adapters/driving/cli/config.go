package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage qutils configuration",
	Long: `View and change the configuration stored in ~/.qutils/config.toml.

Supported keys:
  store.data_dir        Directory holding the database files
  store.app_name        Application name used for the cache file
  store.cache_table     Cache table name
  store.settings_table  Settings table name
  store.unique_keys     Declare key columns UNIQUE on new tables
  log.verbose           Enable debug logging`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := activeConfig

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}
	cachePath, err := cfg.CachePath()
	if err != nil {
		return fmt.Errorf("failed to resolve cache path: %w", err)
	}
	settingsPath, err := cfg.SettingsPath()
	if err != nil {
		return fmt.Errorf("failed to resolve settings path: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "[Store]")
	fmt.Fprintf(out, "  Data directory: %s\n", dataDir)
	fmt.Fprintf(out, "  App name:       %s\n", cfg.AppName)
	fmt.Fprintf(out, "  Cache:          %s (table %s)\n", cachePath, cfg.CacheTable)
	fmt.Fprintf(out, "  Settings:       %s (table %s)\n", settingsPath, cfg.SettingsTable)
	fmt.Fprintf(out, "  Unique keys:    %s\n", yesNo(cfg.UniqueKeys))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "[Log]")
	fmt.Fprintf(out, "  Verbose: %s\n", yesNo(cfg.Verbose))

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configService == nil {
		return errors.New("config service not configured")
	}

	if err := configService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configService == nil {
		return errors.New("config service not configured")
	}
	fmt.Fprintln(cmd.OutOrStdout(), configService.Path())
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
