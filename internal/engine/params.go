package engine

import "fmt"

// Coefficients are the calibrated parameters of the rent and price growth
// equations. A0-A4 drive rent growth; B0-B3 drive price growth and are
// only consulted under the growth price model.
type Coefficients struct {
	A0 float64 `yaml:"a0" json:"a0"` // rent intercept
	A1 float64 `yaml:"a1" json:"a1"` // rent response to housing stock growth
	A2 float64 `yaml:"a2" json:"a2"` // rent response to population growth
	A3 float64 `yaml:"a3" json:"a3"` // rent response to passed-through tax
	A4 float64 `yaml:"a4" json:"a4"` // rent response to lagged vacancy

	B0 float64 `yaml:"b0" json:"b0"` // price intercept
	B1 float64 `yaml:"b1" json:"b1"` // price response to housing stock growth
	B2 float64 `yaml:"b2" json:"b2"` // price response to population growth
	B3 float64 `yaml:"b3" json:"b3"` // price response to rent growth
}

// PassThroughParams defines the per-year fraction of an incremental tax
// that lands in rent growth. Tighter markets (vacancy below target) and
// less elastic demand raise the fraction; the result is clamped to [0,1].
type PassThroughParams struct {
	Base             float64 `yaml:"base"`
	VacancyTarget    float64 `yaml:"vacancy_target"`
	VacancySlope     float64 `yaml:"vacancy_slope"`
	ElasticitySlope  float64 `yaml:"elasticity_slope"`
	DemandElasticity float64 `yaml:"demand_elasticity"`
}

// DefaultPassThroughParams returns the default pass-through function.
func DefaultPassThroughParams() PassThroughParams {
	return PassThroughParams{
		Base:             0.5,
		VacancyTarget:    0.05,
		VacancySlope:     0.0,
		ElasticitySlope:  0.0,
		DemandElasticity: 0.7,
	}
}

// UserCostParams defines the user-cost price formation regime: the
// annualized carrying-cost rate that capitalizes rent into a price level,
// plus the optional capitalization, momentum and drift adjustments.
type UserCostParams struct {
	RealRate           float64 `yaml:"real_rate"`
	PropertyTaxBase    float64 `yaml:"property_tax_base"`
	Maintenance        float64 `yaml:"maintenance"`
	Depreciation       float64 `yaml:"depreciation"`
	ExpectedRentGrowth float64 `yaml:"expected_rent_growth"`

	// RentCapitalizationLambda scales how much of the tax-attributable
	// rent change is capitalized back into the price.
	RentCapitalizationLambda float64 `yaml:"rent_capitalization_lambda"`

	// MomentumKappa and MomentumDecay control the user_cost_momentum
	// variant: prices scale by exp(kappa_t * gRent) where kappa_t decays
	// geometrically over the simulation horizon.
	MomentumKappa float64 `yaml:"momentum_kappa"`
	MomentumDecay float64 `yaml:"momentum_decay"`

	// PriceDrift is a constant log drift applied each year, if nonzero.
	PriceDrift float64 `yaml:"price_drift"`
}

// DefaultUserCostParams returns the default user-cost regime parameters.
func DefaultUserCostParams() UserCostParams {
	return UserCostParams{
		RealRate:           0.03,
		PropertyTaxBase:    0.01,
		Maintenance:        0.01,
		Depreciation:       0.01,
		ExpectedRentGrowth: 0.02,
	}
}

// Rate computes the user-cost identity for a given incremental tax:
// financing + tax + maintenance + depreciation - expected appreciation.
// The result may be non-positive; Simulate floors it before dividing.
func (p UserCostParams) Rate(taxDelta float64) float64 {
	return p.RealRate + (p.PropertyTaxBase + taxDelta) + p.Maintenance + p.Depreciation - p.ExpectedRentGrowth
}

// SupplyResponseParams bounds how much completions respond to the prior
// year's realized price growth.
type SupplyResponseParams struct {
	PriceElasticity float64 `yaml:"price_elasticity"`
	MinMultiplier   float64 `yaml:"min_multiplier"`
	MaxMultiplier   float64 `yaml:"max_multiplier"`
}

// DefaultSupplyResponseParams returns the default supply response bounds.
func DefaultSupplyResponseParams() SupplyResponseParams {
	return SupplyResponseParams{
		PriceElasticity: 0.5,
		MinMultiplier:   0.8,
		MaxMultiplier:   1.3,
	}
}

// RentResponseParams adds optional rent sensitivity to user-cost and
// carrying-cost changes. Both weights default to zero, in which case the
// corresponding terms are computed but contribute nothing.
type RentResponseParams struct {
	UserCostToRent float64 `yaml:"user_cost_to_rent"`
	CostPushToRent float64 `yaml:"cost_push_to_rent"`
}

// Policy is one concrete intervention. The zero value is the baseline.
type Policy struct {
	TaxDelta             float64 // incremental rental property-tax rate
	CompletionsUpliftPct float64 // fractional uplift to completions
}

// PriceModel selects the price formation regime. The set is closed:
// regime dispatch happens once per Simulate call, not per year.
type PriceModel int

const (
	// PriceModelGrowth forms prices from the log-growth equation
	// b0 + b1*gH + b2*gPop + b3*gRent.
	PriceModelGrowth PriceModel = iota

	// PriceModelUserCost capitalizes rent through the user-cost identity.
	PriceModelUserCost

	// PriceModelUserCostMomentum is the user-cost regime with decaying
	// rent-growth momentum applied to the price level.
	PriceModelUserCostMomentum
)

// ParsePriceModel maps a configuration string to a PriceModel.
func ParsePriceModel(s string) (PriceModel, error) {
	switch s {
	case "", "growth":
		return PriceModelGrowth, nil
	case "user_cost":
		return PriceModelUserCost, nil
	case "user_cost_momentum":
		return PriceModelUserCostMomentum, nil
	default:
		return 0, fmt.Errorf("unknown price model %q (valid: growth, user_cost, user_cost_momentum)", s)
	}
}

// String returns the configuration name of the model.
func (m PriceModel) String() string {
	switch m {
	case PriceModelUserCost:
		return "user_cost"
	case PriceModelUserCostMomentum:
		return "user_cost_momentum"
	default:
		return "growth"
	}
}

// Params bundles everything one Simulate invocation needs besides the
// panel, the coefficients and the policy.
type Params struct {
	PassThrough    PassThroughParams    `yaml:"pass_through"`
	SupplyResponse SupplyResponseParams `yaml:"supply_response"`
	RentResponse   RentResponseParams   `yaml:"rent_response"`
	UserCost       UserCostParams       `yaml:"user_cost"`
	PriceModel     PriceModel           `yaml:"-"`
}

// DefaultParams returns Params with every parameter bag at its default
// and the growth price model selected.
func DefaultParams() Params {
	return Params{
		PassThrough:    DefaultPassThroughParams(),
		SupplyResponse: DefaultSupplyResponseParams(),
		UserCost:       DefaultUserCostParams(),
		PriceModel:     PriceModelGrowth,
	}
}
