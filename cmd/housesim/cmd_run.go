package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/kmorland/housesim/internal/grid"
	"github.com/kmorland/housesim/internal/logging"
	"github.com/kmorland/housesim/internal/results"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full policy grid and write scenario tables",
		Long: `Run every scenario in the configured policy grid against the panel.

Each tax/uplift combination is simulated in parallel, joined to the
zero-policy baseline by year, and written as a long-format scenario
table plus a final-year summary table. With output.database set, the
run is also persisted to SQLite, replacing any previous run.

Example:
  housesim run --config config/sim_params.yaml --progress`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			workers, _ := cmd.Flags().GetInt("workers")
			progress, _ := cmd.Flags().GetBool("progress")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := loadPanel(cfg)
			if err != nil {
				return err
			}

			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

			taxes, err := cfg.PolicyGrid.TaxDelta.Expand()
			if err != nil {
				return fmt.Errorf("policy_grid.tax_delta: %w", err)
			}
			uplifts, err := cfg.PolicyGrid.CompletionsUpliftPct.Expand()
			if err != nil {
				return fmt.Errorf("policy_grid.completions_uplift_pct: %w", err)
			}
			total := len(taxes) * len(uplifts)

			var bar *pb.ProgressBar
			if progress && !jsonOut {
				bar = pb.New(total)
				bar.Output = os.Stderr
				bar.Start()
			}

			trace := logging.NewTraceLogger(filepath.Dir(cfg.Output.Scenarios), cfg.Logging.Level)
			defer trace.Close()

			logger.Info("starting grid run",
				"scenarios", total,
				"years", len(p),
				"price_model", cfg.PriceModel,
				"data", cfg.DataPath)

			runner := grid.Runner{Workers: workers, Bar: bar, Trace: trace}
			res, err := runner.Run(cmd.Context(), p, cfg)
			if err != nil {
				return err
			}
			if bar != nil {
				bar.Finish()
			}

			if err := results.WriteScenariosCSV(cfg.Output.Scenarios, res.Scenarios); err != nil {
				return fmt.Errorf("failed to write scenarios: %w", err)
			}
			if err := results.WriteSummaryCSV(cfg.Output.Summary, res.Summary); err != nil {
				return fmt.Errorf("failed to write summary: %w", err)
			}

			if cfg.Output.Database != "" {
				store, err := results.OpenStore(cfg.Output.Database)
				if err != nil {
					return fmt.Errorf("failed to open results database: %w", err)
				}
				defer store.Close()
				if err := store.SaveRun(cmd.Context(), res.Scenarios, res.Summary); err != nil {
					return fmt.Errorf("failed to persist run: %w", err)
				}
				logger.Info("run persisted", "database", cfg.Output.Database)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"scenarios":      total,
					"scenarios_path": cfg.Output.Scenarios,
					"summary_path":   cfg.Output.Summary,
					"summary":        res.Summary,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Simulated %d scenarios over %d years.\n\n", total, len(p))
			fmt.Fprintf(cmd.OutOrStdout(), "%-4s %10s %10s %12s %12s\n",
				"id", "tax", "uplift", "price Δ%", "rent Δ%")
			for _, s := range res.Summary {
				fmt.Fprintf(cmd.OutOrStdout(), "%-4d %10.4f %10.3f %12.3f %12.3f\n",
					s.ScenarioID, s.TaxDelta, s.CompletionsUpliftPct, s.PriceDeltaPct, s.RentDeltaPct)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nScenarios: %s\nSummary:   %s\n",
				cfg.Output.Scenarios, cfg.Output.Summary)

			return nil
		},
	}

	cmd.Flags().Int("workers", 0, "Concurrent scenario workers (0 = number of CPUs)")
	cmd.Flags().Bool("progress", false, "Show a progress bar on stderr")

	return cmd
}
