// Command spreads ranks option spreads by expected profit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"option-spreads/internal/cli"
	"option-spreads/internal/config"
	"option-spreads/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.DefaultConfigDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using defaults\n", err)
		cfg = config.Default()
	}

	logger := logging.NewLoggerWithConfig(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.NewRootCmd(cfg, logger).ExecuteContext(ctx)
}
