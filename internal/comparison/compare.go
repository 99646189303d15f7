package comparison

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Result is the arithmetic outcome of one salary against one cost.
// Money is rounded to cents. Ratio is the exact quotient; Affordable is
// derived from it, so rounding for display never flips the verdict.
type Result struct {
	Salary     float64 `json:"salary"`
	Cost       float64 `json:"cost"`
	Ratio      float64 `json:"ratio"`
	Affordable bool    `json:"affordable"`
	Shortfall  float64 `json:"shortfall"`
}

// Compare divides salary by cost. A ratio of exactly 1 is affordable.
func Compare(salary, cost float64) (Result, error) {
	if cost <= 0 {
		return Result{}, fmt.Errorf("%w: got %v", ErrInvalidCost, cost)
	}

	ratio := salary / cost
	affordable := ratio >= 1.0

	s := decimal.NewFromFloat(salary)
	c := decimal.NewFromFloat(cost)

	// Any uncovered amount is reported as at least one cent.
	shortfall := decimal.Zero
	if !affordable {
		shortfall = c.Sub(s).RoundCeil(2)
	}

	return Result{
		Salary:     money(s),
		Cost:       money(c),
		Ratio:      ratio,
		Affordable: affordable,
		Shortfall:  shortfall.InexactFloat64(),
	}, nil
}

// Outcome labels the result for metrics and logs.
func (r Result) Outcome() string {
	if r.Affordable {
		return "affordable"
	}
	return "shortfall"
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func roundCents(v float64) float64 {
	return money(decimal.NewFromFloat(v))
}

// displayRatio truncates to two places so a ratio just under 1 never
// prints as 1.00.
func displayRatio(r float64) string {
	return decimal.NewFromFloat(r).RoundFloor(2).StringFixed(2)
}
