package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/qutils/internal/core/ports/driving"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables in the cache and settings databases",
	Args:  cobra.NoArgs,
	RunE:  runTables,
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

func runTables(cmd *cobra.Command, _ []string) error {
	if storeProvider == nil {
		return fmt.Errorf("store provider not configured")
	}

	for _, open := range []func() (driving.KeyValueStore, error){openCache, openSettings} {
		store, err := open()
		if err != nil {
			return err
		}
		tables, err := storeProvider.Tables(cmd.Context(), store)
		if err != nil {
			return fmt.Errorf("failed to list tables in %s: %w", store.Path(), err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", store.Path())
		if len(tables) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "  (no tables)")
		}
		for _, name := range tables {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
		}
	}
	return nil
}
