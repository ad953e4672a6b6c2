// Package engine implements the recurrence engine: it advances one
// scenario's price, rent and housing-stock path one year at a time over an
// observed annual panel. Simulate is a pure function of its inputs; no
// state is carried between invocations, so concurrent calls over the same
// panel are safe.
package engine

import (
	"fmt"
	"math"

	"github.com/kmorland/housesim/internal/panel"
)

// minUserCost is the floor applied when the user-cost identity degenerates
// to a non-positive rate under aggressive policy deltas. Flooring instead
// of failing keeps the stress case visible in the output as a very large
// price.
const minUserCost = 1e-6

// NumericDomainError reports a non-positive value feeding a growth-rate
// logarithm during simulation. This indicates degenerate or corrupted
// input and fails the scenario.
type NumericDomainError struct {
	Quantity string
	Year     int
	Value    float64
}

func (e *NumericDomainError) Error() string {
	return fmt.Sprintf("non-positive %s ratio at year %d (%g): log growth undefined", e.Quantity, e.Year, e.Value)
}

// YearState is one simulated year. PassThrough and UserCost are nil on the
// anchor year; UserCost is also nil under the growth price model.
type YearState struct {
	Year         int
	Price        float64
	Rent         float64
	HousingUnits float64
	PassThrough  *float64
	UserCost     *float64
}

// Path is one simulated scenario: one YearState per panel year, the first
// copied verbatim from the panel's anchor record. Never mutated after
// Simulate returns.
type Path []YearState

// Final returns the last simulated year.
func (p Path) Final() YearState {
	return p[len(p)-1]
}

// Simulate advances the panel's anchor year through every observed
// transition under the given policy, producing one simulated path.
//
// Each step folds the state tuple (price, rent, housingUnits,
// prevPriceGrowth) forward: the supply multiplier reads the previous
// step's realized price growth, completions (uplifted and scaled) plus the
// panel-implied "other" stock change update the housing stock, and rent
// and price follow the growth equations or the user-cost identity
// depending on the selected regime.
func Simulate(p panel.Panel, coeffs Coefficients, pol Policy, params Params) (Path, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	other := p.OtherChange()
	pr := newPricer(params, coeffs, pol.TaxDelta)

	path := make(Path, 0, len(p))
	path = append(path, YearState{
		Year:         p[0].Year,
		Price:        p[0].Price,
		Rent:         p[0].Rent,
		HousingUnits: p[0].HousingUnits,
	})

	prevPriceGrowth := 0.0
	for i := 1; i < len(p); i++ {
		prev := path[i-1]

		mult := supplyMultiplier(params.SupplyResponse, prevPriceGrowth)
		completionsAdj := p[i].Completions * (1.0 + pol.CompletionsUpliftPct) * mult
		h := prev.HousingUnits + completionsAdj + other[i]

		hRatio := h / prev.HousingUnits
		if !(hRatio > 0) {
			return nil, &NumericDomainError{Quantity: "housing stock", Year: p[i].Year, Value: hRatio}
		}
		gH := math.Log(hRatio)

		popRatio := p[i].Population / p[i-1].Population
		if !(popRatio > 0) {
			return nil, &NumericDomainError{Quantity: "population", Year: p[i].Year, Value: popRatio}
		}
		gPop := math.Log(popRatio)

		vacLag := p[i-1].VacancyRate
		pt := passThrough(params.PassThrough, vacLag)

		// Tax-attributable rent growth and carrying-cost terms. The
		// user-cost delta and cost push are computed every year even at
		// zero rent-response weights so that enabling the weights does
		// not change accumulation order.
		gRentTax := coeffs.A3 * (pt * pol.TaxDelta)
		ucDelta := params.UserCost.Rate(pol.TaxDelta) - params.UserCost.Rate(0)
		costPush := (params.UserCost.PropertyTaxBase + pol.TaxDelta + params.UserCost.Maintenance) -
			(params.UserCost.PropertyTaxBase + params.UserCost.Maintenance)

		gRent := coeffs.A0 + coeffs.A1*gH + coeffs.A2*gPop + gRentTax + coeffs.A4*vacLag +
			params.RentResponse.UserCostToRent*ucDelta +
			params.RentResponse.CostPushToRent*costPush
		rent := prev.Rent * math.Exp(gRent)

		rentNoTax := prev.Rent * math.Exp(gRent-gRentTax)
		deltaRentTax := rent - rentNoTax

		price, userCost := pr.price(i, prev.Price, rent, gH, gPop, gRent, deltaRentTax)
		if !(price > 0) {
			return nil, &NumericDomainError{Quantity: "price", Year: p[i].Year, Value: price}
		}
		prevPriceGrowth = math.Log(price / prev.Price)

		ptVal := pt
		path = append(path, YearState{
			Year:         p[i].Year,
			Price:        price,
			Rent:         rent,
			HousingUnits: h,
			PassThrough:  &ptVal,
			UserCost:     userCost,
		})
	}

	return path, nil
}

// passThrough computes the tax pass-through fraction for one year from the
// lagged vacancy rate, clamped to [0,1].
func passThrough(p PassThroughParams, vacancyLag float64) float64 {
	pt := p.Base + p.VacancySlope*(p.VacancyTarget-vacancyLag) - p.ElasticitySlope*p.DemandElasticity
	return clamp(pt, 0.0, 1.0)
}

// supplyMultiplier scales completions by the prior year's realized price
// growth, clamped to the configured bounds.
func supplyMultiplier(p SupplyResponseParams, prevPriceGrowth float64) float64 {
	return clamp(1.0+p.PriceElasticity*prevPriceGrowth, p.MinMultiplier, p.MaxMultiplier)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// pricer is the closed price-formation variant, selected once per Simulate
// invocation.
type pricer interface {
	// price returns the new price level and, under user-cost regimes, the
	// (floored) user-cost rate used to form it.
	price(step int, prevPrice, rent, gH, gPop, gRent, deltaRentTax float64) (float64, *float64)
}

func newPricer(params Params, coeffs Coefficients, taxDelta float64) pricer {
	switch params.PriceModel {
	case PriceModelUserCost, PriceModelUserCostMomentum:
		return userCostPricer{
			params:   params.UserCost,
			taxDelta: taxDelta,
			momentum: params.PriceModel == PriceModelUserCostMomentum,
		}
	default:
		return growthPricer{coeffs: coeffs}
	}
}

// growthPricer forms prices from the calibrated log-growth equation.
type growthPricer struct {
	coeffs Coefficients
}

func (g growthPricer) price(_ int, prevPrice, _ float64, gH, gPop, gRent, _ float64) (float64, *float64) {
	gPrice := g.coeffs.B0 + g.coeffs.B1*gH + g.coeffs.B2*gPop + g.coeffs.B3*gRent
	return prevPrice * math.Exp(gPrice), nil
}

// userCostPricer capitalizes rent through the user-cost identity, with
// optional tax capitalization, decaying rent momentum and constant drift.
type userCostPricer struct {
	params   UserCostParams
	taxDelta float64
	momentum bool
}

func (u userCostPricer) price(step int, _, rent, _, _, gRent, deltaRentTax float64) (float64, *float64) {
	uc := u.params.Rate(u.taxDelta)
	if uc <= 0 {
		uc = minUserCost
	}
	price := rent / uc
	if u.params.RentCapitalizationLambda != 0 && deltaRentTax != 0 {
		price += u.params.RentCapitalizationLambda * (deltaRentTax / uc)
	}
	if u.momentum {
		kappa := u.params.MomentumKappa * math.Exp(-u.params.MomentumDecay*float64(step-1))
		price *= math.Exp(kappa * gRent)
	}
	if u.params.PriceDrift != 0 {
		price *= math.Exp(u.params.PriceDrift)
	}
	return price, &uc
}
