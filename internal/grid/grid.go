// Package grid sweeps the policy cross-product: it expands the configured
// tax-delta and completions-uplift grids, runs the recurrence engine once
// per policy combination plus once for the all-zero baseline, and joins
// each path to the baseline by calendar year.
//
// Grid points are independent of each other and run in parallel; only
// scenario identifiers and output row order are deterministic, assigned
// in enumeration order (outer loop over tax values, inner over uplifts).
package grid

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/kmorland/housesim/internal/config"
	"github.com/kmorland/housesim/internal/engine"
	"github.com/kmorland/housesim/internal/logging"
	"github.com/kmorland/housesim/internal/panel"
	"github.com/kmorland/housesim/internal/results"
)

// MaxParallelism returns the number of workers to use by default.
func MaxParallelism() int {
	maxProcs := runtime.GOMAXPROCS(0)
	numCPU := runtime.NumCPU()
	if maxProcs < numCPU {
		return maxProcs
	}
	return numCPU
}

// ApplySensitivity applies the configured sensitivity multipliers to the
// coefficient set. This is a configuration-time transform, applied once
// before any simulation runs.
func ApplySensitivity(c engine.Coefficients, s config.Sensitivity) engine.Coefficients {
	c.A3 *= s.PassThroughRate
	c.A1 *= s.SupplyElasticity
	c.B1 *= s.SupplyElasticity
	return c
}

// Result holds the two output tables of one grid run.
type Result struct {
	Scenarios []results.ScenarioRow
	Summary   []results.SummaryRow
}

// Runner executes a grid sweep. The zero value runs with MaxParallelism
// workers, no progress bar and no tracing.
type Runner struct {
	// Workers bounds concurrent scenario runs; <= 0 means MaxParallelism.
	Workers int

	// Bar, when non-nil, is advanced once per completed scenario.
	Bar *pb.ProgressBar

	// Trace, when non-nil, receives one event per (scenario, year).
	Trace *logging.TraceLogger
}

// Run sweeps the configured policy grid over the panel. Scenario
// identifiers start at 1 and follow enumeration order regardless of
// which worker finishes first. A failed scenario aborts the run with an
// error naming the policy combination.
func (r Runner) Run(ctx context.Context, p panel.Panel, cfg *config.Config) (*Result, error) {
	taxes, err := cfg.PolicyGrid.TaxDelta.Expand()
	if err != nil {
		return nil, fmt.Errorf("policy_grid.tax_delta: %w", err)
	}
	uplifts, err := cfg.PolicyGrid.CompletionsUpliftPct.Expand()
	if err != nil {
		return nil, fmt.Errorf("policy_grid.completions_uplift_pct: %w", err)
	}
	params, err := cfg.EngineParams()
	if err != nil {
		return nil, err
	}

	coeffs := ApplySensitivity(cfg.Coeffs.Coefficients, cfg.Sensitivity)

	// The baseline must complete before any delta is computed.
	baseline, err := engine.Simulate(p, coeffs, engine.Policy{}, params)
	if err != nil {
		return nil, fmt.Errorf("baseline scenario: %w", err)
	}
	baseByYear := make(map[int]engine.YearState, len(baseline))
	for _, ys := range baseline {
		baseByYear[ys.Year] = ys
	}

	type job struct {
		id     int
		policy engine.Policy
	}
	jobs := make([]job, 0, len(taxes)*len(uplifts))
	id := 0
	for _, tax := range taxes {
		for _, uplift := range uplifts {
			id++
			jobs = append(jobs, job{id: id, policy: engine.Policy{TaxDelta: tax, CompletionsUpliftPct: uplift}})
		}
	}

	workers := r.Workers
	if workers <= 0 {
		workers = MaxParallelism()
	}

	paths := make([]engine.Path, len(jobs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, jb := range jobs {
		g.Go(func() error {
			path, err := engine.Simulate(p, coeffs, jb.policy, params)
			if err != nil {
				return fmt.Errorf("scenario %d (tax_delta=%g, completions_uplift_pct=%g): %w",
					jb.id, jb.policy.TaxDelta, jb.policy.CompletionsUpliftPct, err)
			}
			paths[i] = path
			if r.Bar != nil {
				r.Bar.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Scenarios: make([]results.ScenarioRow, 0, len(jobs)*len(baseline)),
		Summary:   make([]results.SummaryRow, 0, len(jobs)),
	}
	for i, jb := range jobs {
		path := paths[i]
		for _, ys := range path {
			base := baseByYear[ys.Year]
			row := results.ScenarioRow{
				ScenarioID:           jb.id,
				TaxDelta:             jb.policy.TaxDelta,
				CompletionsUpliftPct: jb.policy.CompletionsUpliftPct,
				Year:                 ys.Year,
				Price:                ys.Price,
				Rent:                 ys.Rent,
				PriceDeltaPct:        deltaPct(ys.Price, base.Price),
				RentDeltaPct:         deltaPct(ys.Rent, base.Rent),
			}
			res.Scenarios = append(res.Scenarios, row)
			r.Trace.Log(map[string]any{
				"event":           "scenario_year",
				"scenario_id":     row.ScenarioID,
				"year":            row.Year,
				"price":           row.Price,
				"rent":            row.Rent,
				"price_delta_pct": row.PriceDeltaPct,
				"rent_delta_pct":  row.RentDeltaPct,
			})
		}

		final := path.Final()
		baseFinal := baseByYear[final.Year]
		res.Summary = append(res.Summary, results.SummaryRow{
			ScenarioID:           jb.id,
			TaxDelta:             jb.policy.TaxDelta,
			CompletionsUpliftPct: jb.policy.CompletionsUpliftPct,
			FinalYear:            final.Year,
			Price:                final.Price,
			Rent:                 final.Rent,
			PriceDeltaPct:        deltaPct(final.Price, baseFinal.Price),
			RentDeltaPct:         deltaPct(final.Rent, baseFinal.Rent),
		})
	}

	return res, nil
}

func deltaPct(v, base float64) float64 {
	return (v/base - 1.0) * 100.0
}
