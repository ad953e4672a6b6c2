package results

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func sampleRows() ([]ScenarioRow, []SummaryRow) {
	scenarios := []ScenarioRow{
		{ScenarioID: 1, TaxDelta: 0, CompletionsUpliftPct: 0, Year: 2018, Price: 500000, Rent: 2000, PriceDeltaPct: 0, RentDeltaPct: 0},
		{ScenarioID: 1, TaxDelta: 0, CompletionsUpliftPct: 0, Year: 2019, Price: 510100.67, Rent: 2020.1, PriceDeltaPct: 0, RentDeltaPct: 0},
		{ScenarioID: 2, TaxDelta: 0.01, CompletionsUpliftPct: 0, Year: 2018, Price: 500000, Rent: 2000, PriceDeltaPct: 0, RentDeltaPct: 0},
		{ScenarioID: 2, TaxDelta: 0.01, CompletionsUpliftPct: 0, Year: 2019, Price: 510100.67, Rent: 2028.2, PriceDeltaPct: 0, RentDeltaPct: 0.401},
	}
	summary := []SummaryRow{
		{ScenarioID: 1, TaxDelta: 0, CompletionsUpliftPct: 0, FinalYear: 2019, Price: 510100.67, Rent: 2020.1},
		{ScenarioID: 2, TaxDelta: 0.01, CompletionsUpliftPct: 0, FinalYear: 2019, Price: 510100.67, Rent: 2028.2, RentDeltaPct: 0.401},
	}
	return scenarios, summary
}

func TestWriteScenariosCSV(t *testing.T) {
	scenarios, _ := sampleRows()
	path := filepath.Join(t.TempDir(), "out", "scenarios.csv")

	if err := WriteScenariosCSV(path, scenarios); err != nil {
		t.Fatalf("WriteScenariosCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header + 4 rows, got %d records", len(records))
	}
	wantHeader := "scenario_id"
	if records[0][0] != wantHeader {
		t.Errorf("header[0] = %q, want %q", records[0][0], wantHeader)
	}
	if records[1][3] != "2018" || records[2][3] != "2019" {
		t.Errorf("year column mismatch: %v %v", records[1], records[2])
	}
	if records[3][1] != "0.01" {
		t.Errorf("tax_delta = %q, want 0.01", records[3][1])
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	_, summary := sampleRows()
	path := filepath.Join(t.TempDir(), "summary.csv")

	if err := WriteSummaryCSV(path, summary); err != nil {
		t.Fatalf("WriteSummaryCSV failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	if records[0][3] != "final_year" {
		t.Errorf("header[3] = %q, want final_year", records[0][3])
	}
	if records[1][3] != "2019" {
		t.Errorf("final_year = %q, want 2019", records[1][3])
	}
}

func TestStoreRoundTrip(t *testing.T) {
	scenarios, summary := sampleRows()
	path := filepath.Join(t.TempDir(), "results.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SaveRun(ctx, scenarios, summary); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	gotScenarios, err := store.Scenarios(ctx)
	if err != nil {
		t.Fatalf("Scenarios failed: %v", err)
	}
	if len(gotScenarios) != len(scenarios) {
		t.Fatalf("expected %d scenario rows, got %d", len(scenarios), len(gotScenarios))
	}
	for i, want := range scenarios {
		if gotScenarios[i] != want {
			t.Errorf("scenario row %d = %+v, want %+v", i, gotScenarios[i], want)
		}
	}

	gotSummary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(gotSummary) != len(summary) {
		t.Fatalf("expected %d summary rows, got %d", len(summary), len(gotSummary))
	}
	if gotSummary[1].RentDeltaPct != 0.401 {
		t.Errorf("summary rent_delta_pct = %g, want 0.401", gotSummary[1].RentDeltaPct)
	}
}

func TestStoreSaveRunReplaces(t *testing.T) {
	scenarios, summary := sampleRows()
	path := filepath.Join(t.TempDir(), "results.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SaveRun(ctx, scenarios, summary); err != nil {
		t.Fatalf("first SaveRun failed: %v", err)
	}

	// A second run with fewer rows must fully replace the first.
	if err := store.SaveRun(ctx, scenarios[:2], summary[:1]); err != nil {
		t.Fatalf("second SaveRun failed: %v", err)
	}

	gotScenarios, err := store.Scenarios(ctx)
	if err != nil {
		t.Fatalf("Scenarios failed: %v", err)
	}
	if len(gotScenarios) != 2 {
		t.Errorf("expected 2 scenario rows after replace, got %d", len(gotScenarios))
	}
	gotSummary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(gotSummary) != 1 {
		t.Errorf("expected 1 summary row after replace, got %d", len(gotSummary))
	}
}
