// Package analysis runs the spread pipeline: an assembled option chain is
// turned into a terminal-price distribution and the candidate spreads are
// scored against it.
package analysis

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"option-spreads/internal/analysis/probability"
	"option-spreads/internal/analysis/spreads"
	"option-spreads/internal/errors"
	"option-spreads/internal/models"
)

// Strategy selects which candidate families are searched.
type Strategy string

const (
	StrategyVertical Strategy = "vertical"
	StrategyNeutral  Strategy = "neutral"
	StrategyAll      Strategy = "all"
)

// ParseStrategy maps a name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case StrategyVertical, StrategyNeutral, StrategyAll:
		return s, nil
	case "":
		return StrategyAll, nil
	default:
		return "", errors.NewValidationError("strategy", name, "must be vertical, neutral or all")
	}
}

// Report is the outcome of analysing one chain.
type Report struct {
	Symbol       string                    `json:"symbol"`
	Expiry       time.Time                 `json:"expiry"`
	SpotPrice    float64                   `json:"spot_price"`
	ATMStrike    float64                   `json:"atm_strike"`
	Strategy     Strategy                  `json:"strategy"`
	Distribution *probability.Distribution `json:"distribution"`
	Best         models.Evaluation         `json:"best"`
	Ranked       []models.Evaluation       `json:"ranked"`
}

// Analyzer wires the probability model to the spread search.
type Analyzer struct {
	engine *spreads.Engine
	logger zerolog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		engine: spreads.NewEngine(logger),
		logger: logger,
	}
}

// Analyze builds the distribution for chain and returns the best spread of the
// requested families.
func (a *Analyzer) Analyze(chain *models.OptionChain, strategy Strategy) (*Report, error) {
	if chain == nil {
		return nil, errors.Unavailable("analysis", "", "nil chain", nil)
	}

	dist, err := probability.Build(chain)
	if err != nil {
		return nil, err
	}

	var candidates []models.SpreadCandidate
	switch strategy {
	case StrategyVertical:
		candidates = spreads.VerticalCandidates(chain)
	case StrategyNeutral:
		candidates = spreads.NeutralCandidates(chain)
	case StrategyAll:
		candidates = append(spreads.VerticalCandidates(chain), spreads.NeutralCandidates(chain)...)
	default:
		return nil, errors.NewValidationError("strategy", strategy, "must be vertical, neutral or all")
	}

	a.logger.Debug().
		Str("symbol", chain.Symbol).
		Str("strategy", string(strategy)).
		Int("buckets", dist.Len()).
		Int("candidates", len(candidates)).
		Msg("Searching spreads")

	res, err := a.engine.Search(dist, chain, candidates)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", chain.Symbol, strategy)
	}

	return &Report{
		Symbol:       chain.Symbol,
		Expiry:       chain.Expiry,
		SpotPrice:    chain.SpotPrice,
		ATMStrike:    chain.ATMStrike,
		Strategy:     strategy,
		Distribution: dist,
		Best:         res.Best,
		Ranked:       res.Ranked,
	}, nil
}
