package probability

import (
	"math"
	"testing"

	"option-spreads/internal/errors"
	"option-spreads/internal/models"
)

type leg struct {
	ask, size float64
}

func quote(l leg) models.OptionQuote {
	q := models.OptionQuote{}
	q.Apply(models.AskPrice, l.ask)
	q.Apply(models.AskSize, l.size)
	return q
}

func buildChain(atm float64, strikes []float64, calls, puts []leg) *models.OptionChain {
	c := &models.OptionChain{Symbol: "TEST", ATMStrike: atm}
	for i, k := range strikes {
		c.Strikes = append(c.Strikes, models.OptionStrike{
			Strike: k,
			Call:   quote(calls[i]),
			Put:    quote(puts[i]),
		})
	}
	return c
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestBuild_CumulativeDepth(t *testing.T) {
	chain := buildChain(100,
		[]float64{90, 95, 100, 105},
		[]leg{{9, 1}, {6, 1}, {3, 1}, {1.5, 30}},
		[]leg{{0.5, 5}, {1, 10}, {3, 1}, {7, 1}},
	)

	dist, err := Build(chain)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []Bucket{
		{Price: 90.5, Probability: 35.0 / 125},
		{Price: 96, Probability: 45.0 / 125},
		{Price: 103.5, Probability: 45.0 / 125},
	}
	if len(dist.Buckets) != len(want) {
		t.Fatalf("got %d buckets, want %d", len(dist.Buckets), len(want))
	}
	for i, b := range dist.Buckets {
		if b.Price != want[i].Price || !approx(b.Probability, want[i].Probability) {
			t.Errorf("bucket %d = %+v, want %+v", i, b, want[i])
		}
	}
}

func TestBuild_EqualPricesShareBucket(t *testing.T) {
	// 90+6 and 95+1 both propose 96.
	chain := buildChain(100,
		[]float64{90, 95, 100, 105},
		[]leg{{12, 1}, {8, 1}, {4, 1}, {1, 2}},
		[]leg{{6, 3}, {1, 4}, {4, 1}, {7, 1}},
	)

	dist, err := Build(chain)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if dist.Len() != 2 {
		t.Fatalf("got %d buckets, want 2 after merging", dist.Len())
	}

	p96, ok := dist.Probability(96)
	if !ok || !approx(p96, 5.0/14) {
		t.Errorf("P(96) = %v, want %v", p96, 5.0/14)
	}
	p104, ok := dist.Probability(104)
	if !ok || !approx(p104, 9.0/14) {
		t.Errorf("P(104) = %v, want %v", p104, 9.0/14)
	}
}

func TestBuild_DroppedATMShiftsCallContribution(t *testing.T) {
	// Without the ATM strike in the chain the call at index 1 only reaches
	// bucket 0, not its own bucket.
	chain := buildChain(100,
		[]float64{95, 105},
		[]leg{{6, 1}, {1, 10}},
		[]leg{{1, 4}, {6, 1}},
	)

	dist, err := Build(chain)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	// weights: put@0 -> [4,4]; call@1 -> [14,4]
	if !approx(dist.Buckets[0].Probability, 14.0/18) || !approx(dist.Buckets[1].Probability, 4.0/18) {
		t.Errorf("got %+v", dist.Buckets)
	}
}

func TestBuild_NoOutOfTheMoneyStrikes(t *testing.T) {
	chain := buildChain(100, []float64{100}, []leg{{2, 1}}, []leg{{2, 1}})

	_, err := Build(chain)
	if !errors.Is(err, errors.ErrDataUnavailable) {
		t.Errorf("Build() error = %v, want ErrDataUnavailable", err)
	}
}

func TestBuild_NilChain(t *testing.T) {
	if _, err := Build(nil); !errors.Is(err, errors.ErrDataUnavailable) {
		t.Errorf("Build(nil) error = %v, want ErrDataUnavailable", err)
	}
}
