package spreads

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"option-spreads/internal/models"
)

// Property: the bull and bear side of the same legs mirror each other.
func TestProperty_OpposingVerticalsSumToZero(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("BULL_CALL + BEAR_CALL == 0", prop.ForAll(
		func(lo, width, p1, p2, b float64) bool {
			k1, k2 := lo, lo+width
			sum := Payoff(models.BullCall, k1, k2, p1, p2, b) + Payoff(models.BearCall, k1, k2, p1, p2, b)
			return math.Abs(sum) < 1e-9
		},
		gen.Float64Range(10, 200),
		gen.Float64Range(0.5, 50),
		gen.Float64Range(0, 30),
		gen.Float64Range(0, 30),
		gen.Float64Range(0, 300),
	))

	properties.Property("BULL_PUT + BEAR_PUT == 0", prop.ForAll(
		func(lo, width, p1, p2, b float64) bool {
			k1, k2 := lo+width, lo
			sum := Payoff(models.BullPut, k1, k2, p1, p2, b) + Payoff(models.BearPut, k1, k2, p1, p2, b)
			return math.Abs(sum) < 1e-9
		},
		gen.Float64Range(10, 200),
		gen.Float64Range(0.5, 50),
		gen.Float64Range(0, 30),
		gen.Float64Range(0, 30),
		gen.Float64Range(0, 300),
	))

	properties.TestingRun(t)
}

// Property: a vertical's payoff is bounded by the strike width and its debit.
func TestProperty_VerticalPayoffBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("|payoff| <= width + |P1-P2|", prop.ForAll(
		func(typeIdx int, lo, width, p1, p2, b float64) bool {
			typ := models.VerticalTypes[typeIdx]
			k1, k2 := lo, lo+width
			if typ.Right() == models.Put {
				k1, k2 = k2, k1
			}
			v := Payoff(typ, k1, k2, p1, p2, b)
			return math.Abs(v) <= width+math.Abs(p1-p2)+1e-9
		},
		gen.IntRange(0, len(models.VerticalTypes)-1),
		gen.Float64Range(10, 200),
		gen.Float64Range(0.5, 50),
		gen.Float64Range(0, 30),
		gen.Float64Range(0, 30),
		gen.Float64Range(0, 300),
	))

	properties.TestingRun(t)
}

// Property: the selected evaluation is never beaten and heads the ranking.
func TestProperty_SelectPicksMaximum(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("best >= every evaluation", prop.ForAll(
		func(profits []float64) bool {
			evals := make([]models.Evaluation, len(profits))
			for i, p := range profits {
				evals[i] = models.Evaluation{
					Candidate:      models.SpreadCandidate{Type: models.BullCall, K1: float64(i), K2: float64(i + 1)},
					ExpectedProfit: p,
				}
			}
			res, err := Select(evals)
			if err != nil {
				return false
			}
			for i, ev := range evals {
				if ev.ExpectedProfit > res.Best.ExpectedProfit {
					return false
				}
				if ev.ExpectedProfit == res.Best.ExpectedProfit && i < res.BestIndex {
					return false
				}
			}
			return res.Ranked[0] == res.Best && len(res.Ranked) == len(evals)
		},
		gen.SliceOfN(12, gen.Float64Range(-20, 20)),
	))

	properties.TestingRun(t)
}
