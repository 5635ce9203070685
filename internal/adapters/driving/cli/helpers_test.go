package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qutils/internal/adapters/driven/events"
	"github.com/custodia-labs/qutils/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/qutils/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/qutils/internal/core/domain"
	"github.com/custodia-labs/qutils/internal/core/services"
)

// setupCLI configures the commands with SQLite stores in a temporary data
// directory and an in-memory configuration.
func setupCLI(t *testing.T) *services.ConfigService {
	t.Helper()

	config := services.NewConfigService(memory.NewConfigStore())
	require.NoError(t, config.Set(services.KeyDataDir, t.TempDir()))
	provider := services.NewProvider(services.NewRegistry(sqlite.Opener()), events.NewQueue(), nil)

	prevConfig, prevProvider := configService, storeProvider
	Configure(config, provider)
	t.Cleanup(func() {
		closeStores()
		Configure(prevConfig, prevProvider)
		activeConfig = domain.DefaultAppConfig()
	})
	return config
}

// runCLI executes the root command with args and returns what it wrote to
// stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	stdout, _, err := runCLIStreams(t, args...)
	return stdout, err
}

// runCLIStreams executes the root command with args and returns stdout and
// stderr separately.
func runCLIStreams(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := Execute(context.Background())
	return stdout.String(), stderr.String(), err
}

// resetFlags restores every flag to its default so values do not leak
// between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}
