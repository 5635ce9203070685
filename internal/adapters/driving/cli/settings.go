package cli

import (
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and write the settings store",
	Long: `Read and write the settings store.

Settings live in <data-dir>/qutils_settings.sqlite and are stored as text.
Lists and maps are stored as JSON and read back as lists and maps.`,
}

var settingsCommands = &storeCommands{name: "settings", open: openSettings}

func init() {
	settingsCommands.attach(settingsCmd)
	rootCmd.AddCommand(settingsCmd)
}
