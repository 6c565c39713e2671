package spreads

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"option-spreads/internal/analysis/probability"
	"option-spreads/internal/errors"
	"option-spreads/internal/logging"
	"option-spreads/internal/models"
)

// Result is the outcome of a search.
type Result struct {
	Best        models.Evaluation   `json:"best"`
	BestIndex   int                 `json:"best_index"`
	Ranked      []models.Evaluation `json:"ranked"`
	Evaluations []models.Evaluation `json:"-"`
}

// Engine scores spread candidates.
type Engine struct {
	logger zerolog.Logger
}

// NewEngine creates an engine that logs each evaluation at debug level.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{logger: logging.WithOperation(logger, "spread_search")}
}

// Evaluate returns the expected profit of one candidate. The boolean is false
// when a neutral candidate costs nothing and so cannot be scored.
func (e *Engine) Evaluate(dist *probability.Distribution, chain *models.OptionChain, c models.SpreadCandidate) (float64, bool, error) {
	if dist == nil || chain == nil {
		return 0, false, errors.Unavailable("spreads", "", "missing distribution or chain", nil)
	}

	if c.Type == models.Neutral {
		put, err := ask(chain, c.K1, models.Put)
		if err != nil {
			return 0, false, err
		}
		call, err := ask(chain, c.K2, models.Call)
		if err != nil {
			return 0, false, err
		}
		cost := put + call
		if cost == 0 {
			return 0, false, nil
		}
		total := 0.0
		for _, b := range dist.Buckets {
			total += NeutralTerm(c.K1, c.K2, cost, b.Price, b.Probability)
		}
		return total, true, nil
	}

	if !c.Type.IsVertical() {
		return 0, false, errors.NewValidationError("type", c.Type, "unknown spread type")
	}

	right := c.Type.Right()
	p1, err := ask(chain, c.K1, right)
	if err != nil {
		return 0, false, err
	}
	p2, err := ask(chain, c.K2, right)
	if err != nil {
		return 0, false, err
	}
	total := 0.0
	for _, b := range dist.Buckets {
		total += Payoff(c.Type, c.K1, c.K2, p1, p2, b.Price) * b.Probability
	}
	return total, true, nil
}

// Search evaluates every candidate and selects the best one.
func (e *Engine) Search(dist *probability.Distribution, chain *models.OptionChain, candidates []models.SpreadCandidate) (*Result, error) {
	evals := make([]models.Evaluation, 0, len(candidates))
	for _, c := range candidates {
		profit, ok, err := e.Evaluate(dist, chain, c)
		if err != nil {
			return nil, err
		}
		if !ok {
			e.logger.Debug().Str("spread", c.String()).Msg("Skipping zero-cost candidate")
			continue
		}
		logging.LogEvaluation(e.logger, string(c.Type), c.K1, c.K2, profit)
		evals = append(evals, models.Evaluation{Candidate: c, ExpectedProfit: profit})
	}
	return Select(evals)
}

// Select picks the evaluation with the highest expected profit; on ties the
// earliest wins. Ranked holds all evaluations sorted by descending profit,
// keeping input order among equals.
func Select(evals []models.Evaluation) (*Result, error) {
	if len(evals) == 0 {
		return nil, errors.ErrNoCandidates
	}

	best := -1
	bestProfit := math.Inf(-1)
	for i, ev := range evals {
		if ev.ExpectedProfit > bestProfit {
			best = i
			bestProfit = ev.ExpectedProfit
		}
	}
	if best < 0 {
		// Every profit was -Inf or NaN.
		best = 0
	}

	ranked := make([]models.Evaluation, len(evals))
	copy(ranked, evals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ExpectedProfit > ranked[j].ExpectedProfit
	})

	return &Result{
		Best:        evals[best],
		BestIndex:   best,
		Ranked:      ranked,
		Evaluations: evals,
	}, nil
}

func ask(chain *models.OptionChain, strike float64, right models.Right) (float64, error) {
	s, ok := chain.Lookup(strike)
	if !ok {
		return 0, errors.Wrapf(errors.ErrIncompleteQuote, "no %s quote at strike %g", right, strike)
	}
	return s.Quote(right).AskPrice, nil
}
