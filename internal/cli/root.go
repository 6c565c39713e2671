// Package cli provides the command-line interface for the spread finder.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"option-spreads/internal/broker"
	"option-spreads/internal/config"
	"option-spreads/internal/logging"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-19"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	// newGateway builds the gateway for a command; replaced in tests.
	newGateway func(cmd *cobra.Command) (broker.Gateway, error)
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	app.newGateway = app.gatewayFromFlags

	rootCmd := &cobra.Command{
		Use:   "spreads",
		Short: "Find the best option spread from live order book depth",
		Long: `spreads collects a near-the-money option chain from the brokerage gateway,
derives a probability distribution for the underlying's price at expiry from
the ask depth, and ranks vertical and neutral spreads by expected profit.

Use --paper <fixture> to run against a simulated market instead of the gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dir, _ := cmd.Flags().GetString("config"); dir != "" {
				loaded, err := config.Load(dir)
				if err != nil {
					return err
				}
				app.Config = loaded
				app.Logger = logging.NewLoggerWithConfig(loaded.Logging)
			}

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), app.Logger))
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/option-spreads)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("paper", "", "serve requests from a paper market fixture instead of the gateway")

	addCoreCommands(rootCmd, app)
	addOptionsCommands(rootCmd, app)

	return rootCmd
}

// connect builds and connects the gateway selected by the flags.
func (a *App) connect(ctx context.Context, cmd *cobra.Command) (broker.Gateway, error) {
	gw, err := a.newGateway(cmd)
	if err != nil {
		return nil, err
	}
	if err := gw.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connecting to gateway: %w", err)
	}
	return gw, nil
}

func (a *App) gatewayFromFlags(cmd *cobra.Command) (broker.Gateway, error) {
	if path, _ := cmd.Flags().GetString("paper"); path != "" {
		market, err := broker.LoadPaperMarket(path)
		if err != nil {
			return nil, err
		}
		a.Logger.Debug().Str("fixture", path).Str("symbol", market.Symbol).Msg("Using paper market")
		return broker.NewPaperGateway(*market), nil
	}

	return broker.NewBridgeGateway(broker.BridgeConfig{
		URL:          a.Config.Gateway.URL,
		ClientID:     a.Config.Gateway.ClientID,
		DialAttempts: a.Config.Gateway.DialAttempts,
		DialDelay:    a.Config.Gateway.DialDelay,
		Logger:       a.Logger,
	}), nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("spreads v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			dir, _ := cmd.Flags().GetString("config")
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				output.JSON(map[string]string{"path": dir})
			} else {
				output.Println(dir)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Gateway")
	output.Printf("  URL:              %s\n", cfg.Gateway.URL)
	output.Printf("  Client ID:        %d\n", cfg.Gateway.ClientID)
	output.Printf("  Dial Attempts:    %d (every %s)\n", cfg.Gateway.DialAttempts, cfg.Gateway.DialDelay)
	output.Println()

	output.Bold("Collector")
	output.Printf("  Strike Window:    ±%d\n", cfg.Collector.StrikeWindow)
	output.Printf("  Min Days Out:     %d\n", cfg.Collector.MinDaysToExpiry)
	output.Printf("  Request Timeout:  %s\n", cfg.Collector.RequestTimeout)
	output.Printf("  Quiescence:       %s\n", cfg.Collector.Quiescence)
	output.Printf("  Queue Size:       %d\n", cfg.Collector.QueueSize)
	output.Printf("  Exchange:         %s (%s)\n", cfg.Collector.Exchange, cfg.Collector.Currency)
	output.Printf("  Snapshot:         %v\n", cfg.Collector.Snapshot)
	output.Printf("  Ignored Codes:    %v\n", cfg.Collector.InformationalCodes)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Logging.Level)
	output.Printf("  File:             %v (%s)\n", cfg.Logging.File, cfg.Logging.FilePath)
}
