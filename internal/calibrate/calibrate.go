// Package calibrate estimates the rent and price growth-equation
// coefficients from an observed panel by ordinary least squares. The tax
// pass-through coefficient a3 cannot be estimated without a policy shock
// in the historical data and is left at its configured value.
package calibrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kmorland/housesim/internal/engine"
	"github.com/kmorland/housesim/internal/panel"
)

// minTransitions is the smallest number of usable year-over-year
// transitions for a meaningful fit of a four-parameter equation.
const minTransitions = 4

// observation is one year-over-year transition in log-growth space.
type observation struct {
	gRent  float64
	gPrice float64
	gH     float64
	gPop   float64
	vacLag float64
}

// Result holds the fitted coefficients and how many transitions they
// were fitted on.
type Result struct {
	Coeffs      engine.Coefficients
	Transitions int
}

// Calibrate fits the rent equation (a0, a1, a2, a4) and the price
// equation (b0, b1, b2, b3) on the panel's year-over-year log growths.
// a3 is carried over from the caller unchanged.
func Calibrate(p panel.Panel, a3 float64) (Result, error) {
	obs := buildObservations(p)
	if len(obs) < minTransitions {
		return Result{}, fmt.Errorf("not enough data to calibrate: need at least %d usable transitions, got %d", minTransitions, len(obs))
	}

	n := len(obs)
	yRent := mat.NewVecDense(n, nil)
	xRent := mat.NewDense(n, 4, nil)
	yPrice := mat.NewVecDense(n, nil)
	xPrice := mat.NewDense(n, 4, nil)
	for i, o := range obs {
		yRent.SetVec(i, o.gRent)
		xRent.Set(i, 0, 1)
		xRent.Set(i, 1, o.gH)
		xRent.Set(i, 2, o.gPop)
		xRent.Set(i, 3, o.vacLag)

		yPrice.SetVec(i, o.gPrice)
		xPrice.Set(i, 0, 1)
		xPrice.Set(i, 1, o.gH)
		xPrice.Set(i, 2, o.gPop)
		xPrice.Set(i, 3, o.gRent)
	}

	var betaRent, betaPrice mat.VecDense
	if err := betaRent.SolveVec(xRent, yRent); err != nil {
		// A Condition error still carries a usable solution.
		if _, ok := err.(mat.Condition); !ok {
			return Result{}, fmt.Errorf("rent equation least squares: %w", err)
		}
	}
	if err := betaPrice.SolveVec(xPrice, yPrice); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return Result{}, fmt.Errorf("price equation least squares: %w", err)
		}
	}

	return Result{
		Coeffs: engine.Coefficients{
			A0: betaRent.AtVec(0),
			A1: betaRent.AtVec(1),
			A2: betaRent.AtVec(2),
			A3: a3,
			A4: betaRent.AtVec(3),
			B0: betaPrice.AtVec(0),
			B1: betaPrice.AtVec(1),
			B2: betaPrice.AtVec(2),
			B3: betaPrice.AtVec(3),
		},
		Transitions: n,
	}, nil
}

// buildObservations converts adjacent panel years into log-growth
// observations, skipping transitions with non-positive or missing levels.
func buildObservations(p panel.Panel) []observation {
	var obs []observation
	for i := 1; i < len(p); i++ {
		prev, cur := p[i-1], p[i]

		o := observation{
			gRent:  math.Log(cur.Rent / prev.Rent),
			gPrice: math.Log(cur.Price / prev.Price),
			gH:     math.Log(cur.HousingUnits / prev.HousingUnits),
			gPop:   math.Log(cur.Population / prev.Population),
			vacLag: prev.VacancyRate,
		}
		if !finite(o.gRent) || !finite(o.gPrice) || !finite(o.gH) || !finite(o.gPop) || !finite(o.vacLag) {
			continue
		}
		obs = append(obs, o)
	}
	return obs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
