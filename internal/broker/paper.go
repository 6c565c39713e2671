package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"option-spreads/internal/models"
)

// PaperMarket is the static market a PaperGateway serves.
type PaperMarket struct {
	Symbol      string        `mapstructure:"symbol"`
	ContractID  int64         `mapstructure:"contract_id"`
	Midpoint    float64       `mapstructure:"midpoint"`
	Exchange    string        `mapstructure:"exchange"`
	Expirations []string      `mapstructure:"expirations"`
	ExpiryDays  []int         `mapstructure:"expiry_days"` // expirations relative to today
	Strikes     []float64     `mapstructure:"strikes"`
	Quotes      []PaperQuote  `mapstructure:"quotes"`
	Notices     []PaperNotice `mapstructure:"notices"` // sent on connect and for matching request ids
	TickDelay   time.Duration `mapstructure:"tick_delay"`
}

// PaperQuote is the top of book for one option. A zero price is reported as
// the gateway's "no price" value and a zero size is reported as zero.
type PaperQuote struct {
	Strike  float64      `mapstructure:"strike"`
	Right   models.Right `mapstructure:"right"`
	Bid     float64      `mapstructure:"bid"`
	Ask     float64      `mapstructure:"ask"`
	BidSize float64      `mapstructure:"bid_size"`
	AskSize float64      `mapstructure:"ask_size"`
}

// PaperNotice is a gateway error message the simulator emits.
type PaperNotice struct {
	RequestID int    `mapstructure:"request_id"`
	Code      int    `mapstructure:"code"`
	Message   string `mapstructure:"message"`
}

// LoadPaperMarket reads a market fixture from a TOML, JSON or YAML file.
func LoadPaperMarket(path string) (*PaperMarket, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading paper market %s: %w", path, err)
	}

	market := &PaperMarket{}
	if err := v.Unmarshal(market); err != nil {
		return nil, fmt.Errorf("decoding paper market %s: %w", path, err)
	}
	if market.Symbol == "" {
		return nil, fmt.Errorf("paper market %s: symbol is required", path)
	}
	return market, nil
}

// PaperGateway simulates the brokerage gateway from a PaperMarket. Deliveries
// run on a dedicated goroutine, as they would on a live connection.
type PaperGateway struct {
	market  PaperMarket
	handler Handler

	events    chan func(Handler)
	done      chan struct{}
	wg        sync.WaitGroup
	connected bool

	// Request log for inspection in tests
	requests  []int
	cancelled []int

	mu sync.RWMutex
}

// NewPaperGateway creates a simulator for the market.
func NewPaperGateway(market PaperMarket) *PaperGateway {
	return &PaperGateway{
		market: market,
		events: make(chan func(Handler), 256),
	}
}

// Connect starts the delivery goroutine and emits connection notices.
func (p *PaperGateway) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.connected {
		p.mu.Unlock()
		return nil
	}
	p.connected = true
	p.done = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.deliver(p.done)

	for _, n := range p.market.Notices {
		if n.RequestID == NoRequest {
			n := n
			p.emit(func(h Handler) { h.Error(n.RequestID, n.Code, n.Message) })
		}
	}
	return nil
}

// Disconnect stops delivery. Pending events are discarded.
func (p *PaperGateway) Disconnect() error {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return nil
	}
	p.connected = false
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// IsConnected returns whether the simulator is running.
func (p *PaperGateway) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// SetHandler sets the delivery target.
func (p *PaperGateway) SetHandler(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// Requests returns the request ids issued so far, in order.
func (p *PaperGateway) Requests() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]int(nil), p.requests...)
}

// Cancelled returns the request ids cancelled so far, in order.
func (p *PaperGateway) Cancelled() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]int(nil), p.cancelled...)
}

// RequestContractDetails resolves the market's symbol.
func (p *PaperGateway) RequestContractDetails(reqID int, contract models.Contract) error {
	if err := p.record(reqID); err != nil {
		return err
	}
	p.notices(reqID)

	if strings.EqualFold(contract.Symbol, p.market.Symbol) && p.market.ContractID != 0 {
		id := p.market.ContractID
		p.emit(func(h Handler) { h.ContractDetails(reqID, id) })
	} else {
		p.emit(func(h Handler) {
			h.Error(reqID, CodeNoSecurityDefinition, "No security definition has been found for the request")
		})
	}
	p.emit(func(h Handler) { h.ContractDetailsEnd(reqID) })
	return nil
}

// RequestOptionParameters reports the market's strikes and expirations.
func (p *PaperGateway) RequestOptionParameters(reqID int, symbol string, secType models.SecurityType, contractID int64) error {
	if err := p.record(reqID); err != nil {
		return err
	}
	p.notices(reqID)

	if contractID == p.market.ContractID && strings.EqualFold(symbol, p.market.Symbol) {
		params := OptionParameters{
			Exchange:     p.market.Exchange,
			UnderlyingID: p.market.ContractID,
			TradingClass: p.market.Symbol,
			Multiplier:   "100",
			Expirations:  p.expirations(time.Now()),
			Strikes:      append([]float64(nil), p.market.Strikes...),
		}
		p.emit(func(h Handler) { h.OptionParameters(reqID, params) })
	}
	p.emit(func(h Handler) { h.OptionParametersEnd(reqID) })
	return nil
}

// RequestMidpoint emits the market's midpoint once.
func (p *PaperGateway) RequestMidpoint(reqID int, contract models.Contract) error {
	if err := p.record(reqID); err != nil {
		return err
	}
	p.notices(reqID)

	if p.market.Midpoint > 0 {
		mid := p.market.Midpoint
		p.emit(func(h Handler) { h.Midpoint(reqID, time.Now(), mid) })
	}
	return nil
}

// CancelMidpoint records the cancellation.
func (p *PaperGateway) CancelMidpoint(reqID int) error {
	return p.cancel(reqID)
}

// RequestQuote emits price and size ticks for the option.
func (p *PaperGateway) RequestQuote(reqID int, contract models.Contract, snapshot bool) error {
	if err := p.record(reqID); err != nil {
		return err
	}
	p.notices(reqID)

	q, ok := p.findQuote(contract.Strike, contract.Right)
	if !ok {
		p.emit(func(h Handler) {
			h.Error(reqID, CodeNoSecurityDefinition, "No security definition has been found for the request")
		})
		return nil
	}

	p.emit(func(h Handler) {
		h.TickPrice(reqID, models.BidPrice, noPrice(q.Bid))
		h.TickSize(reqID, models.BidSize, q.BidSize)
		h.TickPrice(reqID, models.AskPrice, noPrice(q.Ask))
		h.TickSize(reqID, models.AskSize, q.AskSize)
	})
	if snapshot {
		p.emit(func(h Handler) { h.TickSnapshotEnd(reqID) })
	}
	return nil
}

// CancelQuote records the cancellation.
func (p *PaperGateway) CancelQuote(reqID int) error {
	return p.cancel(reqID)
}

func (p *PaperGateway) expirations(now time.Time) []string {
	out := append([]string(nil), p.market.Expirations...)
	for _, d := range p.market.ExpiryDays {
		out = append(out, now.AddDate(0, 0, d).Format(models.ExpiryLayout))
	}
	return out
}

func (p *PaperGateway) findQuote(strike float64, right models.Right) (PaperQuote, bool) {
	for _, q := range p.market.Quotes {
		if q.Strike == strike && q.Right == right {
			return q, true
		}
	}
	return PaperQuote{}, false
}

func (p *PaperGateway) record(reqID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return fmt.Errorf("paper gateway: request %d: not connected", reqID)
	}
	p.requests = append(p.requests, reqID)
	return nil
}

func (p *PaperGateway) cancel(reqID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, reqID)
	return nil
}

func (p *PaperGateway) notices(reqID int) {
	for _, n := range p.market.Notices {
		if n.RequestID == reqID {
			n := n
			p.emit(func(h Handler) { h.Error(n.RequestID, n.Code, n.Message) })
		}
	}
}

func (p *PaperGateway) emit(fn func(Handler)) {
	p.mu.RLock()
	done := p.done
	p.mu.RUnlock()

	select {
	case p.events <- fn:
	case <-done:
	}
}

func (p *PaperGateway) deliver(done chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-done:
			return
		case fn := <-p.events:
			if p.market.TickDelay > 0 {
				time.Sleep(p.market.TickDelay)
			}
			p.mu.RLock()
			h := p.handler
			p.mu.RUnlock()
			if h != nil {
				fn(h)
			}
		}
	}
}

func noPrice(price float64) float64 {
	if price == 0 {
		return -1
	}
	return price
}

// Ensure PaperGateway implements Gateway interface
var _ Gateway = (*PaperGateway)(nil)
