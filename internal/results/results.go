// Package results defines the scenario output tables and their
// destinations: long-format CSV files and an optional SQLite database.
package results

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ScenarioRow is one (scenario, year) observation joined against the
// baseline path of the same calendar year.
type ScenarioRow struct {
	ScenarioID           int     `json:"scenario_id"`
	TaxDelta             float64 `json:"tax_delta"`
	CompletionsUpliftPct float64 `json:"completions_uplift_pct"`
	Year                 int     `json:"year"`
	Price                float64 `json:"price"`
	Rent                 float64 `json:"rent"`
	PriceDeltaPct        float64 `json:"price_delta_pct"`
	RentDeltaPct         float64 `json:"rent_delta_pct"`
}

// SummaryRow is the final simulated year of one scenario.
type SummaryRow struct {
	ScenarioID           int     `json:"scenario_id"`
	TaxDelta             float64 `json:"tax_delta"`
	CompletionsUpliftPct float64 `json:"completions_uplift_pct"`
	FinalYear            int     `json:"final_year"`
	Price                float64 `json:"price"`
	Rent                 float64 `json:"rent"`
	PriceDeltaPct        float64 `json:"price_delta_pct"`
	RentDeltaPct         float64 `json:"rent_delta_pct"`
}

var scenarioHeader = []string{
	"scenario_id", "tax_delta", "completions_uplift_pct", "year",
	"price", "rent", "price_delta_pct", "rent_delta_pct",
}

var summaryHeader = []string{
	"scenario_id", "tax_delta", "completions_uplift_pct", "final_year",
	"price", "rent", "price_delta_pct", "rent_delta_pct",
}

// WriteScenariosCSV writes the long-format scenario table to path,
// creating parent directories as needed.
func WriteScenariosCSV(path string, rows []ScenarioRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			strconv.Itoa(r.ScenarioID),
			formatFloat(r.TaxDelta),
			formatFloat(r.CompletionsUpliftPct),
			strconv.Itoa(r.Year),
			formatFloat(r.Price),
			formatFloat(r.Rent),
			formatFloat(r.PriceDeltaPct),
			formatFloat(r.RentDeltaPct),
		})
	}
	return writeCSV(path, scenarioHeader, records)
}

// WriteSummaryCSV writes the final-year summary table to path, creating
// parent directories as needed.
func WriteSummaryCSV(path string, rows []SummaryRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			strconv.Itoa(r.ScenarioID),
			formatFloat(r.TaxDelta),
			formatFloat(r.CompletionsUpliftPct),
			strconv.Itoa(r.FinalYear),
			formatFloat(r.Price),
			formatFloat(r.Rent),
			formatFloat(r.PriceDeltaPct),
			formatFloat(r.RentDeltaPct),
		})
	}
	return writeCSV(path, summaryHeader, records)
}

func writeCSV(path string, header []string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// formatFloat renders a float with the shortest representation that
// round-trips, matching how the tables are consumed downstream.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
