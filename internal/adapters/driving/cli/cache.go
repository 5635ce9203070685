package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qutils/internal/core/domain"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Read and write the cache store",
	Long: `Read and write the typed cache store.

The cache lives in <data-dir>/<app-name>_cache.sqlite. Every value keeps its
type: text, int, float, bool, bytes, null, list or map.`,
}

var cacheWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print changes to the cache as they happen",
	Long: `Print every change to the cache until interrupted, including changes
made by other processes using the same database file.`,
	Args: cobra.NoArgs,
	RunE: runCacheWatch,
}

var cacheCommands = &storeCommands{name: "cache", open: openCache}

func init() {
	cacheCommands.attach(cacheCmd)
	cacheCmd.AddCommand(cacheWatchCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheWatch(cmd *cobra.Command, _ []string) error {
	store, err := openCache()
	if err != nil {
		return err
	}
	if storeProvider == nil {
		return fmt.Errorf("store provider not configured")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (table %s). Press Ctrl+C to stop.\n", store.Path(), store.Schema().Table)
	return storeProvider.Watch(cmd.Context(), store, func(evt domain.ChangeEvent) {
		fmt.Fprintln(cmd.OutOrStdout(), formatEvent(evt))
	})
}

// formatEvent renders a change for watch output.
func formatEvent(evt domain.ChangeEvent) string {
	source := "local"
	if evt.Origin == 0 {
		source = "external"
	}
	stamp := evt.At.Format("15:04:05")

	switch {
	case evt.Removed:
		return fmt.Sprintf("[%s] %s removed (was %q, %s)", stamp, evt.Key, evt.OldString(), source)
	case evt.Old == nil:
		return fmt.Sprintf("[%s] %s added: %q (%s)", stamp, evt.Key, evt.NewString(), source)
	default:
		return fmt.Sprintf("[%s] %s changed: %q -> %q (%s)", stamp, evt.Key, evt.OldString(), evt.NewString(), source)
	}
}
