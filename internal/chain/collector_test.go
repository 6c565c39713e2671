package chain

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"option-spreads/internal/broker"
	"option-spreads/internal/config"
	"option-spreads/internal/errors"
	"option-spreads/internal/models"
)

var testNow = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

// testMarket quotes every strike from 90 to 210 in steps of 5 with a
// midpoint near 150.
func testMarket() broker.PaperMarket {
	m := broker.PaperMarket{
		Symbol:      "XYZ",
		ContractID:  4242,
		Midpoint:    151.2,
		Exchange:    "SMART",
		Expirations: []string{"20261016", "20261023", "20261120"},
	}
	for k := 90.0; k <= 210; k += 5 {
		m.Strikes = append(m.Strikes, k)
		callAsk := 160 - k
		if callAsk < 0.2 {
			callAsk = 0.2
		}
		putAsk := k - 140
		if putAsk < 0.2 {
			putAsk = 0.2
		}
		m.Quotes = append(m.Quotes,
			broker.PaperQuote{Strike: k, Right: models.Call, Bid: callAsk - 0.1, Ask: callAsk, BidSize: 5, AskSize: 10},
			broker.PaperQuote{Strike: k, Right: models.Put, Bid: putAsk - 0.1, Ask: putAsk, BidSize: 5, AskSize: 12},
		)
	}
	return m
}

func testConfig() config.CollectorConfig {
	cfg := config.DefaultCollectorConfig()
	cfg.RequestTimeout = 2 * time.Second
	cfg.Quiescence = 200 * time.Millisecond
	return cfg
}

func connectedPaper(t *testing.T, m broker.PaperMarket) *broker.PaperGateway {
	t.Helper()
	gw := broker.NewPaperGateway(m)
	if err := gw.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = gw.Disconnect() })
	return gw
}

func collect(t *testing.T, gw broker.Gateway, cfg config.CollectorConfig, symbol string) (*models.OptionChain, error) {
	t.Helper()
	c := NewCollector(gw, cfg, zerolog.Nop(), WithClock(func() time.Time { return testNow }))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.Collect(ctx, symbol)
}

func TestCollect_AssemblesWindow(t *testing.T) {
	gw := connectedPaper(t, testMarket())

	chain, err := collect(t, gw, testConfig(), "xyz")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if chain.Symbol != "XYZ" || chain.ContractID != 4242 {
		t.Errorf("chain header = %s/%d", chain.Symbol, chain.ContractID)
	}
	if chain.SpotPrice != 151.2 || chain.ATMStrike != 150 {
		t.Errorf("spot %v atm %v, want 151.2 and 150", chain.SpotPrice, chain.ATMStrike)
	}
	if got := chain.Expiry.Format(models.ExpiryLayout); got != "20261023" {
		t.Errorf("expiry = %s, want 20261023", got)
	}
	if len(chain.Strikes) != 15 {
		t.Fatalf("got %d strikes, want 15", len(chain.Strikes))
	}
	if chain.Strikes[0].Strike != 115 || chain.Strikes[14].Strike != 185 {
		t.Errorf("strikes span %v..%v, want 115..185", chain.Strikes[0].Strike, chain.Strikes[14].Strike)
	}

	for _, s := range chain.Strikes {
		if !s.Complete() {
			t.Errorf("strike %v incomplete", s.Strike)
			continue
		}
		if s.Call.AskSize != 10 || s.Put.AskSize != 12 {
			t.Errorf("strike %v sizes = %v/%v", s.Strike, s.Call.AskSize, s.Put.AskSize)
		}
	}
	if s, ok := chain.Lookup(150); !ok || s.Call.AskPrice != 10 || s.Put.AskPrice != 10 {
		t.Errorf("ATM quotes = %+v", s)
	}

	// Midpoint plus all 30 quote subscriptions are cancelled.
	if got := len(gw.Cancelled()); got != 31 {
		t.Errorf("cancelled %d requests, want 31", got)
	}
}

func TestCollect_SnapshotMode(t *testing.T) {
	gw := connectedPaper(t, testMarket())
	cfg := testConfig()
	cfg.Snapshot = true

	chain, err := collect(t, gw, cfg, "XYZ")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(chain.Strikes) != 15 {
		t.Errorf("got %d strikes, want 15", len(chain.Strikes))
	}
	cancelled := gw.Cancelled()
	if len(cancelled) != 1 || cancelled[0] != MidpointRequestID {
		t.Errorf("cancelled = %v, want only the midpoint", cancelled)
	}
}

func TestCollect_DropsIncompleteStrikes(t *testing.T) {
	m := testMarket()
	var quotes []broker.PaperQuote
	for _, q := range m.Quotes {
		switch {
		case q.Strike == 150 && q.Right == models.Put:
			q.Ask = 0 // never quoted
		case q.Strike == 185 && q.Right == models.Call:
			continue // no such contract
		}
		quotes = append(quotes, q)
	}
	m.Quotes = quotes
	gw := connectedPaper(t, m)

	chain, err := collect(t, gw, testConfig(), "XYZ")
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(chain.Strikes) != 13 {
		t.Fatalf("got %d strikes, want 13", len(chain.Strikes))
	}
	for _, dropped := range []float64{150, 185} {
		if _, ok := chain.Lookup(dropped); ok {
			t.Errorf("strike %v should have been dropped", dropped)
		}
	}
	if chain.ATMStrike != 150 {
		t.Errorf("ATM strike = %v, want 150 even when dropped", chain.ATMStrike)
	}
	if idx := chain.ATMIndex(); chain.Strikes[idx].Strike != 155 {
		t.Errorf("ATMIndex() points at %v, want 155", chain.Strikes[idx].Strike)
	}
}

func TestCollect_InformationalNoticeIgnored(t *testing.T) {
	m := testMarket()
	m.Notices = []broker.PaperNotice{
		{RequestID: MidpointRequestID, Code: 2104, Message: "Market data farm connection is OK"},
	}
	gw := connectedPaper(t, m)

	if _, err := collect(t, gw, testConfig(), "XYZ"); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
}

func TestCollect_UnknownSymbol(t *testing.T) {
	gw := connectedPaper(t, testMarket())

	_, err := collect(t, gw, testConfig(), "NOPE")
	if !errors.Is(err, errors.ErrDataUnavailable) {
		t.Fatalf("Collect() error = %v, want ErrDataUnavailable", err)
	}
	var dataErr *errors.DataError
	if !errors.As(err, &dataErr) || dataErr.Stage != "contract" {
		t.Errorf("error = %v, want contract stage DataError", err)
	}
}

func TestCollect_GatewayErrorAborts(t *testing.T) {
	m := testMarket()
	m.Notices = []broker.PaperNotice{
		{RequestID: ParamsRequestID, Code: 321, Message: "Error validating request"},
	}
	gw := connectedPaper(t, m)

	_, err := collect(t, gw, testConfig(), "XYZ")
	var gwErr *errors.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("Collect() error = %v, want GatewayError", err)
	}
	if gwErr.Code != 321 || gwErr.RequestID != ParamsRequestID || gwErr.Informational() {
		t.Errorf("GatewayError = %+v", gwErr)
	}
}

func TestCollect_NoExpiryFarEnough(t *testing.T) {
	m := testMarket()
	m.Expirations = []string{"20261009", "20261016"}
	gw := connectedPaper(t, m)

	_, err := collect(t, gw, testConfig(), "XYZ")
	if !errors.Is(err, errors.ErrDataUnavailable) {
		t.Errorf("Collect() error = %v, want ErrDataUnavailable", err)
	}
}

func TestCollect_MidpointTimeout(t *testing.T) {
	m := testMarket()
	m.Midpoint = 0
	gw := connectedPaper(t, m)
	cfg := testConfig()
	cfg.RequestTimeout = 100 * time.Millisecond

	_, err := collect(t, gw, cfg, "XYZ")
	if !errors.Is(err, errors.ErrTimeout) || !errors.Is(err, errors.ErrDataUnavailable) {
		t.Errorf("Collect() error = %v, want timeout and ErrDataUnavailable", err)
	}
}

func TestCollect_NotConnected(t *testing.T) {
	gw := broker.NewPaperGateway(testMarket())

	_, err := collect(t, gw, testConfig(), "XYZ")
	if !errors.Is(err, errors.ErrNotConnected) {
		t.Errorf("Collect() error = %v, want ErrNotConnected", err)
	}
}

// wideMarket quotes every whole strike from 100 to 400.
func wideMarket() broker.PaperMarket {
	m := broker.PaperMarket{
		Symbol:      "XYZ",
		ContractID:  4242,
		Midpoint:    250.4,
		Exchange:    "SMART",
		Expirations: []string{"20261023"},
	}
	for k := 100.0; k <= 400; k++ {
		m.Strikes = append(m.Strikes, k)
		m.Quotes = append(m.Quotes,
			broker.PaperQuote{Strike: k, Right: models.Call, Bid: 0.9, Ask: 1, BidSize: 5, AskSize: 10},
			broker.PaperQuote{Strike: k, Right: models.Put, Bid: 0.9, Ask: 1, BidSize: 5, AskSize: 12},
		)
	}
	return m
}

func TestCollect_WindowLargerThanQueue(t *testing.T) {
	gw := connectedPaper(t, wideMarket())
	cfg := testConfig()
	cfg.StrikeWindow = 100
	cfg.QueueSize = 16

	var chain *models.OptionChain
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		chain, err = collect(t, gw, cfg, "XYZ")
	}()

	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("Collect did not return with 402 subscriptions over a 16 slot queue")
	}

	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(chain.Strikes) != 201 || chain.ATMStrike != 250 {
		t.Errorf("got %d strikes around %v, want 201 around 250", len(chain.Strikes), chain.ATMStrike)
	}
	for _, s := range chain.Strikes {
		if !s.Complete() {
			t.Fatalf("strike %v incomplete", s.Strike)
		}
	}
}

func TestCollect_DeadlineWhileSubscribing(t *testing.T) {
	m := wideMarket()
	m.TickDelay = 2 * time.Millisecond
	gw := connectedPaper(t, m)
	cfg := testConfig()
	cfg.StrikeWindow = 100
	cfg.QueueSize = 16

	c := NewCollector(gw, cfg, zerolog.Nop(), WithClock(func() time.Time { return testNow }))
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Collect(ctx, "XYZ")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Collect() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Collect returned %v after start, want shortly after the 300ms deadline", elapsed)
	}

	disconnected := make(chan error, 1)
	go func() { disconnected <- gw.Disconnect() }()
	select {
	case err := <-disconnected:
		if err != nil {
			t.Errorf("Disconnect() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Disconnect blocked after a cancelled collection")
	}
}

func TestCollect_NonFiniteMidpoint(t *testing.T) {
	tests := []struct {
		name string
		mid  float64
	}{
		{"positive infinity", math.Inf(1)},
		{"not a number", math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMarket()
			m.Midpoint = tt.mid
			gw := connectedPaper(t, m)
			cfg := testConfig()
			cfg.RequestTimeout = 100 * time.Millisecond

			_, err := collect(t, gw, cfg, "XYZ")
			if !errors.Is(err, errors.ErrTimeout) || !errors.Is(err, errors.ErrDataUnavailable) {
				t.Errorf("Collect() error = %v, want midpoint timeout", err)
			}
		})
	}
}

func TestRun_MidpointIgnoresNonFinite(t *testing.T) {
	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, -3} {
		r := newRun("XYZ", testConfig(), nil, zerolog.Nop())
		r.Midpoint(MidpointRequestID, testNow, price)

		select {
		case <-r.midpointSeen.Done():
			t.Errorf("midpoint %v was accepted", price)
		default:
		}
		if r.midpoint() != 0 {
			t.Errorf("midpoint %v stored as %v", price, r.midpoint())
		}
	}
}

func TestRun_ErrorClassification(t *testing.T) {
	r := newRun("XYZ", testConfig(), map[int]bool{2104: true}, zerolog.Nop())

	r.Error(broker.NoRequest, 2104, "farm OK")
	if r.fatalErr() != nil {
		t.Fatalf("informational code recorded as fatal: %v", r.fatalErr())
	}

	r.Error(ParamsRequestID, 321, "bad request")
	var gwErr *errors.GatewayError
	if !errors.As(r.fatalErr(), &gwErr) || gwErr.Code != 321 || gwErr.Informational() {
		t.Errorf("fatal error = %v", r.fatalErr())
	}
}
