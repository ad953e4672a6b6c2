// Package config provides unified configuration loading for housesim.
// It loads the scenario definition — panel location, coefficients, policy
// grids and regime parameters — from a YAML file into typed structs with
// compile-time-checked defaults.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kmorland/housesim/internal/engine"
	"github.com/kmorland/housesim/internal/panel"
)

// gridTolerance is the floating-point slack applied to the upper bound
// when expanding a {min,max,step} grid. With non-exact steps the boundary
// value can land either side of max; the tolerance is deliberate and
// pinned by tests rather than tuned.
const gridTolerance = 1e-9

// Config is the full scenario configuration for one grid run.
type Config struct {
	// DataPath locates the processed annual panel CSV.
	DataPath string `yaml:"data_path"`

	// StartYear and EndYear optionally window the panel (inclusive)
	// before any simulation runs.
	StartYear *int `yaml:"start_year"`
	EndYear   *int `yaml:"end_year"`

	// Columns maps logical panel fields to CSV column labels.
	Columns panel.ColumnMap `yaml:"columns"`

	// Coeffs are the calibrated rent/price equation coefficients.
	// A config without a coeffs block is rejected by Validate.
	Coeffs CoeffsSpec `yaml:"coeffs"`

	// PolicyGrid defines the swept policy space.
	PolicyGrid PolicyGrid `yaml:"policy_grid"`

	// Sensitivity multiplies selected coefficients once, before any run.
	Sensitivity Sensitivity `yaml:"sensitivity"`

	PassThrough    engine.PassThroughParams    `yaml:"pass_through"`
	SupplyResponse engine.SupplyResponseParams `yaml:"supply_response"`
	RentResponse   engine.RentResponseParams   `yaml:"rent_response"`
	UserCost       engine.UserCostParams       `yaml:"user_cost"`

	// PriceModel selects the price formation regime:
	// "growth", "user_cost" or "user_cost_momentum".
	PriceModel string `yaml:"price_model"`

	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// PolicyGrid defines the two swept policy dimensions.
type PolicyGrid struct {
	TaxDelta             GridSpec `yaml:"tax_delta"`
	CompletionsUpliftPct GridSpec `yaml:"completions_uplift_pct"`
}

// Sensitivity holds coefficient multipliers applied once at configuration
// time (a3 *= PassThroughRate; a1, b1 *= SupplyElasticity).
type Sensitivity struct {
	PassThroughRate  float64 `yaml:"pass_through_rate"`
	SupplyElasticity float64 `yaml:"supply_elasticity"`
}

// OutputConfig names the result destinations. Database is optional; when
// set, results are also written to a SQLite database at that path.
type OutputConfig struct {
	Scenarios string `yaml:"scenarios"`
	Summary   string `yaml:"summary"`
	Database  string `yaml:"database,omitempty"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables per-scenario path tracing to trace.jsonl next to
	// the scenario output.
	Level string `yaml:"level"`
}

// GridSpec is one policy grid dimension: either a literal list of values
// or an inclusive {min,max,step} range.
type GridSpec struct {
	Values []float64

	Min  float64
	Max  float64
	Step float64

	isRange bool
	set     bool
}

// CoeffsSpec wraps the growth-equation coefficients with presence
// tracking: all-zero coefficients simulate flat paths, so an absent
// coeffs block must be distinguishable from an explicit zero one.
type CoeffsSpec struct {
	engine.Coefficients `yaml:",inline"`

	set bool
}

// CoeffsFrom builds a CoeffsSpec that Validate treats as present.
func CoeffsFrom(c engine.Coefficients) CoeffsSpec {
	return CoeffsSpec{Coefficients: c, set: true}
}

func (c *CoeffsSpec) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode(&c.Coefficients); err != nil {
		return fmt.Errorf("coeffs: %w", err)
	}
	c.set = true
	return nil
}

// IsSet reports whether a coeffs block was present in the configuration.
func (c CoeffsSpec) IsSet() bool {
	return c.set
}

// GridList builds a GridSpec from a literal list of values.
func GridList(values ...float64) GridSpec {
	return GridSpec{Values: values, set: true}
}

// GridRange builds a GridSpec from an inclusive {min,max,step} range.
func GridRange(min, max, step float64) GridSpec {
	return GridSpec{Min: min, Max: max, Step: step, isRange: true, set: true}
}

// UnmarshalYAML accepts either a YAML sequence of floats or a mapping
// with min, max and step keys.
func (g *GridSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		if err := value.Decode(&g.Values); err != nil {
			return fmt.Errorf("policy grid list: %w", err)
		}
		g.set = true
		return nil
	case yaml.MappingNode:
		var r struct {
			Min  float64 `yaml:"min"`
			Max  float64 `yaml:"max"`
			Step float64 `yaml:"step"`
		}
		if err := value.Decode(&r); err != nil {
			return fmt.Errorf("policy grid range: %w", err)
		}
		g.Min, g.Max, g.Step = r.Min, r.Max, r.Step
		g.isRange = true
		g.set = true
		return nil
	default:
		return fmt.Errorf("policy grid must be a list or a {min,max,step} mapping")
	}
}

// IsSet reports whether this grid dimension was present in the configuration.
func (g GridSpec) IsSet() bool {
	return g.set
}

// Expand materializes the grid values. A literal list is returned
// unchanged; a range expands from min to max inclusive (with the
// documented tolerance on the upper bound), each value rounded to 10
// decimal places.
func (g GridSpec) Expand() ([]float64, error) {
	if !g.set {
		return nil, fmt.Errorf("policy grid dimension not configured")
	}
	if !g.isRange {
		if len(g.Values) == 0 {
			return nil, fmt.Errorf("policy grid list is empty")
		}
		out := make([]float64, len(g.Values))
		copy(out, g.Values)
		return out, nil
	}
	if g.Step <= 0 {
		return nil, fmt.Errorf("policy grid step must be positive, got %g", g.Step)
	}

	var out []float64
	for cur := g.Min; cur <= g.Max+gridTolerance; cur += g.Step {
		out = append(out, math.Round(cur*1e10)/1e10)
	}
	return out, nil
}

// Default returns a Config with every parameter bag at its documented
// default. Coefficients and the policy grid have no defaults; they must
// come from the file.
func Default() *Config {
	return &Config{
		Sensitivity: Sensitivity{
			PassThroughRate:  1.0,
			SupplyElasticity: 1.0,
		},
		PassThrough:    engine.DefaultPassThroughParams(),
		SupplyResponse: engine.DefaultSupplyResponseParams(),
		UserCost:       engine.DefaultUserCostParams(),
		PriceModel:     "growth",
		Output: OutputConfig{
			Scenarios: "output/scenario_results.csv",
			Summary:   "output/scenario_summary.csv",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults,
// expands ${VAR} references in paths, and applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.DataPath = expandEnvVars(config.DataPath)
	config.Output.Scenarios = expandEnvVars(config.Output.Scenarios)
	config.Output.Summary = expandEnvVars(config.Output.Summary)
	config.Output.Database = expandEnvVars(config.Output.Database)

	applyEnvOverrides(config)

	return config, nil
}

// Validate checks that the configuration is complete enough to simulate.
// It runs before any panel loading or simulation.
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("data_path is required")
	}
	if _, err := engine.ParsePriceModel(c.PriceModel); err != nil {
		return err
	}
	if !c.Coeffs.IsSet() {
		return fmt.Errorf("coeffs block is required")
	}
	if !c.PolicyGrid.TaxDelta.IsSet() {
		return fmt.Errorf("policy_grid.tax_delta is required")
	}
	if !c.PolicyGrid.CompletionsUpliftPct.IsSet() {
		return fmt.Errorf("policy_grid.completions_uplift_pct is required")
	}
	if _, err := c.PolicyGrid.TaxDelta.Expand(); err != nil {
		return fmt.Errorf("policy_grid.tax_delta: %w", err)
	}
	if _, err := c.PolicyGrid.CompletionsUpliftPct.Expand(); err != nil {
		return fmt.Errorf("policy_grid.completions_uplift_pct: %w", err)
	}
	if c.Output.Scenarios == "" || c.Output.Summary == "" {
		return fmt.Errorf("output.scenarios and output.summary are required")
	}

	validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace)", c.Logging.Level)
	}

	return nil
}

// EngineParams assembles the engine parameter bundle from the config.
func (c *Config) EngineParams() (engine.Params, error) {
	model, err := engine.ParsePriceModel(c.PriceModel)
	if err != nil {
		return engine.Params{}, err
	}
	return engine.Params{
		PassThrough:    c.PassThrough,
		SupplyResponse: c.SupplyResponse,
		RentResponse:   c.RentResponse,
		UserCost:       c.UserCost,
		PriceModel:     model,
	}, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("HOUSESIM_DATA_PATH"); v != "" {
		config.DataPath = v
	}
	if v := os.Getenv("HOUSESIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment
// variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
