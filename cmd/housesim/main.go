package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kmorland/housesim/internal/config"
	"github.com/kmorland/housesim/internal/panel"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "housesim",
		Short: "Housing policy scenario simulator",
		Long: `housesim simulates housing market paths under policy interventions.

It advances prices, rents and the housing stock year by year from an
observed panel, sweeps a grid of property-tax and completions-uplift
scenarios in parallel, and reports each path's deviation from the
zero-policy baseline.`,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "config/sim_params.yaml", "Path to simulation config file")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for machine consumption)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newSimulateCmd(),
		newCalibrateCmd(),
		newValidateCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "housesim version %s\n", version)
			}
		},
	}
}

// loadConfig resolves the --config flag and loads the simulation config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// loadPanel reads and windows the panel named by the config.
func loadPanel(cfg *config.Config) (panel.Panel, error) {
	p, err := panel.Load(cfg.DataPath, cfg.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to load panel %s: %w", cfg.DataPath, err)
	}
	p = p.FilterYears(cfg.StartYear, cfg.EndYear)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("panel %s: %w", cfg.DataPath, err)
	}
	return p, nil
}
