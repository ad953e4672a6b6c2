package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file and panel data",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := loadPanel(cfg)
			if err != nil {
				return err
			}
			taxes, err := cfg.PolicyGrid.TaxDelta.Expand()
			if err != nil {
				return fmt.Errorf("policy_grid.tax_delta: %w", err)
			}
			uplifts, err := cfg.PolicyGrid.CompletionsUpliftPct.Expand()
			if err != nil {
				return fmt.Errorf("policy_grid.completions_uplift_pct: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"status":      "ok",
					"years":       len(p),
					"first_year":  p[0].Year,
					"final_year":  p[len(p)-1].Year,
					"scenarios":   len(taxes) * len(uplifts),
					"price_model": cfg.PriceModel,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Config OK.\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  Panel:     %d years (%d-%d) from %s\n",
				len(p), p[0].Year, p[len(p)-1].Year, cfg.DataPath)
			fmt.Fprintf(cmd.OutOrStdout(), "  Grid:      %d scenarios (%d tax x %d uplift)\n",
				len(taxes)*len(uplifts), len(taxes), len(uplifts))
			fmt.Fprintf(cmd.OutOrStdout(), "  Model:     %s\n", cfg.PriceModel)
			return nil
		},
	}
}
