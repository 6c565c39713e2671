// Package spreads enumerates option spread candidates and scores them against
// a terminal-price distribution.
package spreads

import "option-spreads/internal/models"

// VerticalCandidates enumerates the vertical spreads for every vertical type.
//
// With a the ATM index, pairs 0 <= i < j < a are taken from the a strikes
// nearest each end of the chain: call spreads walk the strikes from the top
// down and use (K1, K2) = (rev[j], rev[i]), put spreads walk them from the
// bottom up and use (K1, K2) = (strikes[j], strikes[i]).
func VerticalCandidates(chain *models.OptionChain) []models.SpreadCandidate {
	if chain == nil {
		return nil
	}
	strikes := chain.StrikePrices()
	a := chain.ATMIndex()
	if a > len(strikes) {
		a = len(strikes)
	}

	rev := make([]float64, len(strikes))
	for i, k := range strikes {
		rev[len(strikes)-1-i] = k
	}

	var out []models.SpreadCandidate
	for _, typ := range models.VerticalTypes {
		ordered := strikes
		if typ.Right() == models.Call {
			ordered = rev
		}
		for i := 0; i < a; i++ {
			for j := i + 1; j < a; j++ {
				out = append(out, models.SpreadCandidate{Type: typ, K1: ordered[j], K2: ordered[i]})
			}
		}
	}
	return out
}

// NeutralCandidates pairs the put i strikes below the ATM index with the call i
// strikes above it, for offsets 1 through a-1 that stay inside the chain.
func NeutralCandidates(chain *models.OptionChain) []models.SpreadCandidate {
	if chain == nil {
		return nil
	}
	strikes := chain.StrikePrices()
	a := chain.ATMIndex()

	var out []models.SpreadCandidate
	for i := 1; i < a && a+i < len(strikes); i++ {
		out = append(out, models.SpreadCandidate{
			Type: models.Neutral,
			K1:   strikes[a-i],
			K2:   strikes[a+i],
		})
	}
	return out
}
