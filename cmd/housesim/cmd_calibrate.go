package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kmorland/housesim/internal/calibrate"
	"github.com/kmorland/housesim/internal/engine"
)

func newCalibrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Estimate growth-equation coefficients from the panel",
		Long: `Fit the rent and price growth-equation coefficients on the panel's
observed year-over-year transitions by least squares.

The tax pass-through coefficient a3 cannot be identified from historical
data without a policy shock; it is carried over from the config. With
--write, the fitted coefficients replace the coeffs block in the config
file in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			write, _ := cmd.Flags().GetBool("write")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p, err := loadPanel(cfg)
			if err != nil {
				return err
			}

			res, err := calibrate.Calibrate(p, cfg.Coeffs.A3)
			if err != nil {
				return fmt.Errorf("calibration failed: %w", err)
			}

			if write {
				path, _ := cmd.Flags().GetString("config")
				if err := writeCoeffs(path, res.Coeffs); err != nil {
					return fmt.Errorf("failed to update %s: %w", path, err)
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"coeffs":      res.Coeffs,
					"transitions": res.Transitions,
					"written":     write,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Calibrated on %d transitions:\n\n", res.Transitions)
			c := res.Coeffs
			fmt.Fprintf(cmd.OutOrStdout(), "Rent equation:\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  a0: %10.6f  a1: %10.6f  a2: %10.6f\n", c.A0, c.A1, c.A2)
			fmt.Fprintf(cmd.OutOrStdout(), "  a3: %10.6f (from config, not estimated)\n", c.A3)
			fmt.Fprintf(cmd.OutOrStdout(), "  a4: %10.6f\n", c.A4)
			fmt.Fprintf(cmd.OutOrStdout(), "Price equation:\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  b0: %10.6f  b1: %10.6f  b2: %10.6f  b3: %10.6f\n", c.B0, c.B1, c.B2, c.B3)
			if write {
				path, _ := cmd.Flags().GetString("config")
				fmt.Fprintf(cmd.OutOrStdout(), "\nWrote coeffs to %s\n", path)
			}

			return nil
		},
	}

	cmd.Flags().Bool("write", false, "Write fitted coefficients back into the config file")

	return cmd
}

// writeCoeffs replaces the coeffs block of the YAML config at path,
// preserving every other top-level key.
func writeCoeffs(path string, c engine.Coefficients) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	doc["coeffs"] = map[string]float64{
		"a0": c.A0, "a1": c.A1, "a2": c.A2, "a3": c.A3, "a4": c.A4,
		"b0": c.B0, "b1": c.B1, "b2": c.B2, "b3": c.B3,
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
