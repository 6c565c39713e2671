package spreads

import "option-spreads/internal/models"

// Payoff returns the profit of a vertical spread at terminal price b, given the
// ask p1 at K1 and the ask p2 at K2. Call spreads expect K1 < K2, put spreads
// K1 > K2.
func Payoff(typ models.SpreadType, k1, k2, p1, p2, b float64) float64 {
	net := p1 - p2
	switch typ {
	case models.BullCall:
		switch {
		case b <= k1:
			return -net
		case b >= k2:
			return (k2 - k1) - net
		default:
			return (b - k1) - net
		}
	case models.BearCall:
		switch {
		case b <= k1:
			return net
		case b >= k2:
			return net - (k2 - k1)
		default:
			return net - (b - k1)
		}
	case models.BullPut:
		switch {
		case b <= k2:
			return net - (k1 - k2)
		case b >= k1:
			return net
		default:
			return net - (k1 - b)
		}
	case models.BearPut:
		switch {
		case b <= k2:
			return (k1 - k2) - net
		case b >= k1:
			return -net
		default:
			return (k1 - b) - net
		}
	}
	return 0
}

// NeutralTerm returns the contribution of belief b with mass p to a long
// strangle bought for cost = put ask + call ask, scaled by 1/cost.
func NeutralTerm(kPut, kCall, cost, b, p float64) float64 {
	switch {
	case b < kPut:
		return ((kPut - b) - cost) * p / cost
	case b > kCall:
		return ((b - kCall) - cost) * p / cost
	default:
		return -cost * p / cost
	}
}
