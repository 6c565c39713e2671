package chain

import (
	"math"
	"sort"
	"time"

	"option-spreads/internal/models"
)

// NearestStrike returns the index of the strike closest to price in an
// ascending slice, comparing absolute distance. Ties keep the lower strike.
// It returns -1 for an empty slice.
func NearestStrike(strikes []float64, price float64) int {
	best := -1
	minDist := math.Inf(1)
	for i, strike := range strikes {
		if d := math.Abs(strike - price); d < minDist {
			minDist = d
			best = i
		}
	}
	return best
}

// Window returns the contiguous run of strikes within width positions of the
// ATM index, clamped to the slice bounds, and the ATM index inside it.
func Window(strikes []float64, atm, width int) ([]float64, int) {
	if atm < 0 || atm >= len(strikes) {
		return nil, -1
	}
	lo := atm - width
	if lo < 0 {
		lo = 0
	}
	hi := atm + width + 1
	if hi > len(strikes) {
		hi = len(strikes)
	}
	out := make([]float64, hi-lo)
	copy(out, strikes[lo:hi])
	return out, atm - lo
}

// SortedStrikes returns a sorted copy with duplicates removed.
func SortedStrikes(strikes []float64) []float64 {
	out := append([]float64(nil), strikes...)
	sort.Float64s(out)
	n := 0
	for i, s := range out {
		if i == 0 || s != out[n-1] {
			out[n] = s
			n++
		}
	}
	return out[:n]
}

// SelectExpiry returns the earliest expiration whose whole-day distance from
// now exceeds minDays. Unparseable dates are skipped.
func SelectExpiry(expirations []string, now time.Time, minDays int) (time.Time, bool) {
	dates := make([]time.Time, 0, len(expirations))
	for _, e := range expirations {
		d, err := time.ParseInLocation(models.ExpiryLayout, e, now.Location())
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	for _, d := range dates {
		if days := int(d.Sub(now).Hours() / 24); days > minDays {
			return d, true
		}
	}
	return time.Time{}, false
}
