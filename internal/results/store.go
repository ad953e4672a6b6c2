package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store persists scenario results to a SQLite database so collaborators
// (dashboards, exporters) can query runs without re-parsing CSVs.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS scenarios (
	scenario_id            INTEGER NOT NULL,
	tax_delta              REAL    NOT NULL,
	completions_uplift_pct REAL    NOT NULL,
	year                   INTEGER NOT NULL,
	price                  REAL    NOT NULL,
	rent                   REAL    NOT NULL,
	price_delta_pct        REAL    NOT NULL,
	rent_delta_pct         REAL    NOT NULL,
	PRIMARY KEY (scenario_id, year)
);

CREATE TABLE IF NOT EXISTS summary (
	scenario_id            INTEGER NOT NULL PRIMARY KEY,
	tax_delta              REAL    NOT NULL,
	completions_uplift_pct REAL    NOT NULL,
	final_year             INTEGER NOT NULL,
	price                  REAL    NOT NULL,
	rent                   REAL    NOT NULL,
	price_delta_pct        REAL    NOT NULL,
	rent_delta_pct         REAL    NOT NULL
);
`

// OpenStore opens (creating if necessary) a results database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening results database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing results schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SaveRun replaces the stored tables with the rows of one grid run,
// atomically.
func (s *Store) SaveRun(ctx context.Context, scenarios []ScenarioRow, summary []SummaryRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scenarios`); err != nil {
		return fmt.Errorf("clearing scenarios: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM summary`); err != nil {
		return fmt.Errorf("clearing summary: %w", err)
	}

	scenarioStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scenarios (scenario_id, tax_delta, completions_uplift_pct, year, price, rent, price_delta_pct, rent_delta_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing scenario insert: %w", err)
	}
	defer scenarioStmt.Close()

	for _, r := range scenarios {
		if _, err := scenarioStmt.ExecContext(ctx,
			r.ScenarioID, r.TaxDelta, r.CompletionsUpliftPct, r.Year,
			r.Price, r.Rent, r.PriceDeltaPct, r.RentDeltaPct); err != nil {
			return fmt.Errorf("inserting scenario %d year %d: %w", r.ScenarioID, r.Year, err)
		}
	}

	summaryStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO summary (scenario_id, tax_delta, completions_uplift_pct, final_year, price, rent, price_delta_pct, rent_delta_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing summary insert: %w", err)
	}
	defer summaryStmt.Close()

	for _, r := range summary {
		if _, err := summaryStmt.ExecContext(ctx,
			r.ScenarioID, r.TaxDelta, r.CompletionsUpliftPct, r.FinalYear,
			r.Price, r.Rent, r.PriceDeltaPct, r.RentDeltaPct); err != nil {
			return fmt.Errorf("inserting summary %d: %w", r.ScenarioID, err)
		}
	}

	return tx.Commit()
}

// Scenarios returns the stored scenario table ordered by scenario and year.
func (s *Store) Scenarios(ctx context.Context) ([]ScenarioRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scenario_id, tax_delta, completions_uplift_pct, year, price, rent, price_delta_pct, rent_delta_pct
		FROM scenarios ORDER BY scenario_id, year`)
	if err != nil {
		return nil, fmt.Errorf("querying scenarios: %w", err)
	}
	defer rows.Close()

	var out []ScenarioRow
	for rows.Next() {
		var r ScenarioRow
		if err := rows.Scan(&r.ScenarioID, &r.TaxDelta, &r.CompletionsUpliftPct, &r.Year,
			&r.Price, &r.Rent, &r.PriceDeltaPct, &r.RentDeltaPct); err != nil {
			return nil, fmt.Errorf("scanning scenario row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary returns the stored summary table ordered by scenario.
func (s *Store) Summary(ctx context.Context) ([]SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scenario_id, tax_delta, completions_uplift_pct, final_year, price, rent, price_delta_pct, rent_delta_pct
		FROM summary ORDER BY scenario_id`)
	if err != nil {
		return nil, fmt.Errorf("querying summary: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var r SummaryRow
		if err := rows.Scan(&r.ScenarioID, &r.TaxDelta, &r.CompletionsUpliftPct, &r.FinalYear,
			&r.Price, &r.Rent, &r.PriceDeltaPct, &r.RentDeltaPct); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
