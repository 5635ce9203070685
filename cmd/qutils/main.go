// Command qutils manages the cache and settings stores of an application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/qutils/internal/adapters/driven/config/file"
	"github.com/custodia-labs/qutils/internal/adapters/driven/events"
	"github.com/custodia-labs/qutils/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/qutils/internal/adapters/driven/watch"
	"github.com/custodia-labs/qutils/internal/adapters/driving/cli"
	"github.com/custodia-labs/qutils/internal/core/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "qutils: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}

	registry := services.NewRegistry(sqlite.Opener())
	defer registry.Close()

	provider := services.NewProvider(registry, events.NewQueue(), watch.NewWatcher(watch.DefaultConfig))
	cli.Configure(services.NewConfigService(configStore), provider)
	cli.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return cli.Execute(ctx)
}
