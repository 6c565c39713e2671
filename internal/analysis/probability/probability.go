// Package probability derives a terminal-price distribution from option depth.
package probability

import (
	"option-spreads/internal/errors"
	"option-spreads/internal/models"
)

// Bucket is one terminal-price hypothesis and its probability mass.
type Bucket struct {
	Price       float64 `json:"price" csv:"price"`
	Probability float64 `json:"probability" csv:"probability"`
}

// Distribution is a discrete distribution over terminal prices. Buckets keep
// the order in which their prices were first derived from the chain.
type Distribution struct {
	Buckets []Bucket `json:"buckets"`
}

// Len returns the number of buckets.
func (d *Distribution) Len() int {
	return len(d.Buckets)
}

// Total returns the summed probability mass.
func (d *Distribution) Total() float64 {
	total := 0.0
	for _, b := range d.Buckets {
		total += b.Probability
	}
	return total
}

// Probability returns the mass at an exact price.
func (d *Distribution) Probability(price float64) (float64, bool) {
	for _, b := range d.Buckets {
		if b.Price == price {
			return b.Probability, true
		}
	}
	return 0, false
}

// Mean returns the probability-weighted price.
func (d *Distribution) Mean() float64 {
	mean := 0.0
	for _, b := range d.Buckets {
		mean += b.Price * b.Probability
	}
	return mean
}

// Build converts the chain's ask depth into a distribution.
//
// Each strike below the ATM strike proposes the price strike+put ask, each
// strike above proposes strike-call ask; equal prices share one bucket. Walking
// the strikes in ascending order with chain index i, a put adds its ask size to
// buckets i and later, a call adds its ask size to buckets before i. Weights
// are then normalised to sum to one.
func Build(chain *models.OptionChain) (*Distribution, error) {
	if chain == nil {
		return nil, errors.Unavailable("probability", "", "nil chain", nil)
	}
	atm := chain.ATMStrike

	index := make(map[float64]int, len(chain.Strikes))
	prices := make([]float64, 0, len(chain.Strikes))
	for _, s := range chain.Strikes {
		var price float64
		switch {
		case s.Strike < atm:
			price = s.Strike + s.Put.AskPrice
		case s.Strike > atm:
			price = s.Strike - s.Call.AskPrice
		default:
			continue
		}
		if _, ok := index[price]; !ok {
			index[price] = len(prices)
			prices = append(prices, price)
		}
	}

	n := len(prices)
	if n == 0 {
		return nil, errors.Unavailable("probability", chain.Symbol, "no out-of-the-money strikes", nil)
	}

	weights := make([]float64, n)
	for i, s := range chain.Strikes {
		switch {
		case s.Strike < atm:
			for j := i; j < n; j++ {
				weights[j] += s.Put.AskSize
			}
		case s.Strike > atm:
			for j := 0; j < i && j < n; j++ {
				weights[j] += s.Call.AskSize
			}
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, errors.Unavailable("probability", chain.Symbol, "no ask depth", nil)
	}

	dist := &Distribution{Buckets: make([]Bucket, n)}
	for i, price := range prices {
		dist.Buckets[i] = Bucket{Price: price, Probability: weights[i] / total}
	}
	return dist, nil
}
