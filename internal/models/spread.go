package models

import "fmt"

// SpreadType represents the strategy family of a candidate.
type SpreadType string

const (
	BullCall SpreadType = "BULL_CALL"
	BearCall SpreadType = "BEAR_CALL"
	BullPut  SpreadType = "BULL_PUT"
	BearPut  SpreadType = "BEAR_PUT"
	Neutral  SpreadType = "NEUTRAL"
)

// VerticalTypes lists the vertical spread types in generation order.
var VerticalTypes = []SpreadType{BullCall, BearCall, BullPut, BearPut}

// Right returns the option right both legs of a vertical use.
func (t SpreadType) Right() Right {
	switch t {
	case BullPut, BearPut:
		return Put
	default:
		return Call
	}
}

// IsVertical reports whether the type is a two-leg same-right spread.
func (t SpreadType) IsVertical() bool {
	switch t {
	case BullCall, BearCall, BullPut, BearPut:
		return true
	}
	return false
}

// SpreadCandidate is a strategy under evaluation.
//
// For verticals K1 is the leg priced as P1 and K2 the leg priced as P2. Call
// spreads have K1 < K2, put spreads K1 > K2. For NEUTRAL, K1 is the put strike
// and K2 the call strike.
type SpreadCandidate struct {
	Type SpreadType `json:"type" csv:"type"`
	K1   float64    `json:"k1" csv:"k1"`
	K2   float64    `json:"k2" csv:"k2"`
}

func (c SpreadCandidate) String() string {
	return fmt.Sprintf("%s %g/%g", c.Type, c.K1, c.K2)
}

// Evaluation pairs a candidate with its expected profit.
type Evaluation struct {
	Candidate      SpreadCandidate `json:"candidate"`
	ExpectedProfit float64         `json:"expected_profit"`
}
