package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"option-spreads/internal/analysis"
	"option-spreads/internal/chain"
	"option-spreads/internal/logging"
	"option-spreads/internal/models"
	"option-spreads/pkg/utils"
)

func addOptionsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newChainCmd(app))
	rootCmd.AddCommand(newBestCmd(app))
}

// collectTimeout bounds a whole collection: three metadata stages plus the
// quote stream.
func (a *App) collectTimeout() time.Duration {
	c := a.Config.Collector
	return 3*c.RequestTimeout + 4*c.Quiescence + 30*time.Second
}

// collect connects, assembles the chain for symbol and disconnects.
func (a *App) collect(cmd *cobra.Command, symbol string) (*models.OptionChain, error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.collectTimeout())
	defer cancel()

	gw, err := a.connect(ctx, cmd)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := gw.Disconnect(); err != nil {
			a.Logger.Warn().Err(err).Msg("Disconnect failed")
		}
	}()

	collector := chain.NewCollector(gw, a.Config.Collector, logging.FromContext(ctx))
	return collector.Collect(ctx, symbol)
}

// warnIfClosed notes that quotes outside the regular session may be stale.
func warnIfClosed(output *Output) {
	if output.IsJSON() {
		return
	}
	if utils.IsMarketOpen() {
		return
	}
	status := utils.GetMarketStatus()
	output.Warning("Market is %s; ask depth may be stale (next open %s)",
		strings.ToLower(strings.ReplaceAll(string(status), "_", "-")),
		utils.NextMarketOpen(time.Now()).Format("Mon Jan 2 15:04 MST"))
}

func newChainCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <symbol>",
		Short: "Display the collected option chain",
		Long: `Collect and display the option chain used for spread analysis.

Shows ask price and size for the call and put at each strike in the window
around the at-the-money strike.`,
		Example: `  spreads chain AAPL
  spreads chain XYZ --paper internal/broker/testdata/xyz.toml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			warnIfClosed(output)

			oc, err := app.collect(cmd, args[0])
			if err != nil {
				output.Error("Failed to collect option chain: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(oc)
			}
			displayOptionChain(output, oc)
			return nil
		},
	}

	return cmd
}

func newBestCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "best <symbol>",
		Short: "Find the spread with the highest expected profit",
		Long: `Collect the option chain, build the implied terminal-price distribution and
rank candidate spreads by expected profit per share.

Strategies:
  vertical  bull/bear call and put spreads
  neutral   long strangles around the at-the-money strike
  all       both families`,
		Example: `  spreads best AAPL
  spreads best AAPL --strategy neutral --top 3
  spreads best XYZ --paper internal/broker/testdata/xyz.toml --csv ranked.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			strategyName, _ := cmd.Flags().GetString("strategy")
			top, _ := cmd.Flags().GetInt("top")
			csvPath, _ := cmd.Flags().GetString("csv")

			strategy, err := analysis.ParseStrategy(strategyName)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			warnIfClosed(output)

			oc, err := app.collect(cmd, args[0])
			if err != nil {
				output.Error("Failed to collect option chain: %v", err)
				return err
			}

			report, err := analysis.NewAnalyzer(logging.FromContext(cmd.Context())).Analyze(oc, strategy)
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}

			if csvPath != "" {
				if err := writeReportCSV(csvPath, report); err != nil {
					output.Error("Failed to write CSV: %v", err)
					return err
				}
			}

			if top > 0 && len(report.Ranked) > top {
				report.Ranked = report.Ranked[:top]
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			displayReport(output, report)
			if csvPath != "" {
				output.Dim("Ranked candidates written to %s", csvPath)
			}
			return nil
		},
	}

	cmd.Flags().String("strategy", string(analysis.StrategyAll), "spread family: vertical, neutral or all")
	cmd.Flags().Int("top", 5, "number of ranked candidates to show (0 for all)")
	cmd.Flags().String("csv", "", "write every ranked candidate to this CSV file")

	return cmd
}
