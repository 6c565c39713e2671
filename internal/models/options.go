package models

import (
	"sort"
	"time"
)

// Right is the option right of a contract.
type Right string

const (
	Call Right = "C"
	Put  Right = "P"
)

// String returns the long name of the right.
func (r Right) String() string {
	switch r {
	case Call:
		return "CALL"
	case Put:
		return "PUT"
	default:
		return string(r)
	}
}

// OptionChain represents an assembled option chain for one expiration.
type OptionChain struct {
	Symbol     string         `json:"symbol"`
	ContractID int64          `json:"contract_id"`
	SpotPrice  float64        `json:"spot_price"`
	ATMStrike  float64        `json:"atm_strike"`
	Expiry     time.Time      `json:"expiry"`
	Exchange   string         `json:"exchange"`
	Strikes    []OptionStrike `json:"strikes"`
}

// OptionStrike represents a single strike in the option chain.
type OptionStrike struct {
	Strike float64     `json:"strike"`
	Call   OptionQuote `json:"call"`
	Put    OptionQuote `json:"put"`
}

// Quote returns the quote for the given right.
func (s *OptionStrike) Quote(right Right) *OptionQuote {
	if right == Call {
		return &s.Call
	}
	return &s.Put
}

// Complete reports whether both legs carry ask price and ask size.
func (s *OptionStrike) Complete() bool {
	return s.Call.Complete() && s.Put.Complete()
}

// StrikePrices returns the chain's strikes in ascending order.
func (c *OptionChain) StrikePrices() []float64 {
	out := make([]float64, len(c.Strikes))
	for i := range c.Strikes {
		out[i] = c.Strikes[i].Strike
	}
	return out
}

// Lookup finds the entry for an exact strike.
func (c *OptionChain) Lookup(strike float64) (*OptionStrike, bool) {
	i := sort.Search(len(c.Strikes), func(i int) bool { return c.Strikes[i].Strike >= strike })
	if i < len(c.Strikes) && c.Strikes[i].Strike == strike {
		return &c.Strikes[i], true
	}
	return nil, false
}

// ATMIndex returns the index of the ATM strike. If that strike was dropped
// during assembly, it returns the position the strike would occupy.
func (c *OptionChain) ATMIndex() int {
	return sort.Search(len(c.Strikes), func(i int) bool { return c.Strikes[i].Strike >= c.ATMStrike })
}

// DropIncomplete removes strikes missing an ask price or ask size on either
// leg and returns the removed strike prices.
func (c *OptionChain) DropIncomplete() []float64 {
	var dropped []float64
	kept := c.Strikes[:0]
	for _, s := range c.Strikes {
		if s.Complete() {
			kept = append(kept, s)
		} else {
			dropped = append(dropped, s.Strike)
		}
	}
	c.Strikes = kept
	return dropped
}
