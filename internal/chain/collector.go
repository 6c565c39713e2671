// Package chain assembles option chains from asynchronous gateway deliveries.
package chain

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"option-spreads/internal/broker"
	"option-spreads/internal/config"
	"option-spreads/internal/errors"
	"option-spreads/internal/logging"
	"option-spreads/internal/models"
	"option-spreads/internal/stream"
)

// Collector drives the request sequence that produces an OptionChain. Only
// the goroutine calling Collect mutates the chain; gateway callbacks record
// discrete results behind signals and push ticks onto a queue.
type Collector struct {
	gateway       broker.Gateway
	cfg           config.CollectorConfig
	logger        zerolog.Logger
	now           func() time.Time
	informational map[int]bool

	mu sync.Mutex // one collection at a time per gateway
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock overrides the clock used for expiration selection.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// NewCollector creates a collector over a connected gateway.
func NewCollector(gw broker.Gateway, cfg config.CollectorConfig, logger zerolog.Logger, opts ...Option) *Collector {
	c := &Collector{
		gateway:       gw,
		cfg:           cfg,
		logger:        logger.With().Str("component", "collector").Logger(),
		now:           time.Now,
		informational: make(map[int]bool, len(cfg.InformationalCodes)),
	}
	for _, code := range cfg.InformationalCodes {
		c.informational[code] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect builds the option chain for symbol. It fails with an error matching
// errors.ErrDataUnavailable when no contract, strikes or expiration can be
// found, and with a *errors.GatewayError when the gateway reports a
// non-informational error.
func (c *Collector) Collect(ctx context.Context, symbol string) (*models.OptionChain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	logger, runID := logging.WithRun(logging.WithSymbol(c.logger, symbol))

	if !c.gateway.IsConnected() {
		return nil, errors.Wrapf(errors.ErrNotConnected, "collecting %s", symbol)
	}

	r := newRun(symbol, c.cfg, c.informational, logger)
	c.gateway.SetHandler(r)
	defer c.gateway.SetHandler(nil)

	logger.Info().Str("run", runID).Msg("Collecting option chain")

	underlying, err := c.resolveContract(ctx, r)
	if err != nil {
		return nil, err
	}

	price, err := c.currentPrice(ctx, r, underlying)
	if err != nil {
		return nil, err
	}

	chain, err := c.buildSkeleton(ctx, r, underlying, price)
	if err != nil {
		return nil, err
	}

	// Requests go out on their own goroutine so the queue keeps draining while
	// they are issued.
	subCtx, stopSubs := context.WithCancel(ctx)
	sub := &subscription{done: make(chan struct{})}
	wg := conc.NewWaitGroup()
	wg.Go(func() {
		defer close(sub.done)
		sub.ids, sub.err = c.subscribe(subCtx, chain)
	})

	start := time.Now()
	err = c.assemble(ctx, r, chain, sub)
	stopSubs()
	wg.Wait()
	if !c.cfg.Snapshot {
		defer c.unsubscribe(logger, sub.ids)
	}
	logging.LogStage(logger, "quotes", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	for _, strike := range chain.DropIncomplete() {
		logger.Debug().Err(errors.ErrIncompleteQuote).Float64("strike", strike).Msg("Dropping strike")
	}
	if len(chain.Strikes) == 0 {
		return nil, errors.Unavailable("quotes", symbol, "no strike has complete call and put quotes", nil)
	}

	m := r.queue.Metrics()
	logger.Info().
		Int("strikes", len(chain.Strikes)).
		Float64("atm", chain.ATMStrike).
		Time("expiry", chain.Expiry).
		Uint64("ticks", m.Popped).
		Uint64("late_ticks", m.Dropped).
		Msg("Option chain assembled")

	return chain, nil
}

func (c *Collector) resolveContract(ctx context.Context, r *run) (models.Contract, error) {
	start := time.Now()
	underlying := models.StockContract(r.symbol, c.cfg.Exchange, c.cfg.Currency)

	if err := c.gateway.RequestContractDetails(ContractRequestID, underlying); err != nil {
		return underlying, errors.Wrap(err, "requesting contract details")
	}
	err := r.wait(ctx, r.contractDone, "contract")
	logging.LogStage(r.logger, "contract", time.Since(start), err)
	if err != nil {
		return underlying, err
	}

	id := r.contractID()
	if id == 0 {
		return underlying, errors.Unavailable("contract", r.symbol, "failed to obtain contract identifier", nil)
	}
	underlying.ContractID = id
	return underlying, nil
}

func (c *Collector) currentPrice(ctx context.Context, r *run, underlying models.Contract) (float64, error) {
	start := time.Now()
	if err := c.gateway.RequestMidpoint(MidpointRequestID, underlying); err != nil {
		return 0, errors.Wrap(err, "requesting midpoint")
	}
	err := r.wait(ctx, r.midpointSeen, "midpoint")
	if cerr := c.gateway.CancelMidpoint(MidpointRequestID); cerr != nil {
		r.logger.Warn().Err(cerr).Msg("Failed to cancel midpoint stream")
	}
	logging.LogStage(r.logger, "midpoint", time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return r.midpoint(), nil
}

func (c *Collector) buildSkeleton(ctx context.Context, r *run, underlying models.Contract, price float64) (*models.OptionChain, error) {
	start := time.Now()
	if err := c.gateway.RequestOptionParameters(ParamsRequestID, r.symbol, models.Stock, underlying.ContractID); err != nil {
		return nil, errors.Wrap(err, "requesting option parameters")
	}
	err := r.wait(ctx, r.paramsDone, "params")
	logging.LogStage(r.logger, "params", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	params := r.selectParams(c.cfg.Exchange)
	strikes := SortedStrikes(params.Strikes)
	if len(strikes) == 0 {
		return nil, errors.Unavailable("params", r.symbol, "failed to access strike prices", nil)
	}

	expiry, ok := SelectExpiry(params.Expirations, c.now(), c.cfg.MinDaysToExpiry)
	if !ok {
		return nil, errors.Unavailable("params", r.symbol, "no expiration far enough out", nil)
	}

	window, atm := Window(strikes, NearestStrike(strikes, price), c.cfg.StrikeWindow)
	if atm < 0 {
		return nil, errors.Unavailable("params", r.symbol, fmt.Sprintf("no strike near price %g", price), nil)
	}

	exchange := params.Exchange
	if exchange == "" {
		exchange = c.cfg.Exchange
	}

	chain := &models.OptionChain{
		Symbol:     r.symbol,
		ContractID: underlying.ContractID,
		SpotPrice:  price,
		ATMStrike:  window[atm],
		Expiry:     expiry,
		Exchange:   exchange,
		Strikes:    make([]models.OptionStrike, len(window)),
	}
	for i, strike := range window {
		chain.Strikes[i].Strike = strike
	}

	r.logger.Debug().
		Float64("price", price).
		Float64("atm", chain.ATMStrike).
		Int("available", len(strikes)).
		Int("window", len(window)).
		Str("expiry", expiry.Format(models.ExpiryLayout)).
		Msg("Strike window selected")

	return chain, nil
}

// subscription tracks the quote requests issued for one run. ids and err are
// safe to read once done is closed.
type subscription struct {
	done chan struct{}
	ids  []int
	err  error
}

// subscribe issues one quote request per strike and right, stopping early
// when ctx ends. It returns the ids issued before any failure so they can be
// cancelled.
func (c *Collector) subscribe(ctx context.Context, chain *models.OptionChain) ([]int, error) {
	ids := make([]int, 0, 2*len(chain.Strikes))
	for i, s := range chain.Strikes {
		for _, right := range []models.Right{models.Call, models.Put} {
			if err := ctx.Err(); err != nil {
				return ids, errors.Wrap(err, "subscribing quotes")
			}
			id := QuoteRequestID(i, right)
			contract := models.OptionContract(chain.Symbol, chain.Exchange, c.cfg.Currency, s.Strike, right, chain.Expiry)
			if err := c.gateway.RequestQuote(id, contract, c.cfg.Snapshot); err != nil {
				return ids, errors.Wrapf(err, "requesting %s %g quote", right, s.Strike)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *Collector) unsubscribe(logger zerolog.Logger, ids []int) {
	for _, id := range ids {
		if err := c.gateway.CancelQuote(id); err != nil {
			logger.Warn().Err(err).Int("req_id", id).Msg("Failed to cancel quote")
		}
	}
}

// assemble drains the queue into the chain while sub issues requests, until
// every subscription settles, no update arrives for the quiescence window
// after the last request, or the run fails. The queue is closed on return so
// a blocked delivery goroutine is released.
func (c *Collector) assemble(ctx context.Context, r *run, chain *models.OptionChain, sub *subscription) error {
	defer r.queue.Close()

	settled := make(map[int]bool, 2*len(chain.Strikes))
	remaining := 2 * len(chain.Strikes)

	apply := func(u models.QuoteUpdate) {
		idx, right, ok := DecodeQuoteRequestID(u.RequestID)
		if !ok || idx >= len(chain.Strikes) {
			r.logger.Debug().Int("req_id", u.RequestID).Msg("Ignoring update for unknown subscription")
			return
		}
		q := chain.Strikes[idx].Quote(right)

		settles := false
		switch u.Kind {
		case models.UpdatePrice, models.UpdateSize:
			q.Apply(u.Field, u.Value)
			settles = q.Complete()
		case models.UpdateSnapshotEnd, models.UpdateFailed:
			settles = true
		}
		if settles && !settled[u.RequestID] {
			settled[u.RequestID] = true
			remaining--
		}
	}

	// The quiescence timer only runs once every request is out.
	var quiet *time.Timer
	var quietC <-chan time.Time
	defer func() {
		if quiet != nil {
			quiet.Stop()
		}
	}()
	subsDone := sub.done

wait:
	for remaining > 0 {
		select {
		case <-subsDone:
			subsDone = nil
			if sub.err != nil {
				return sub.err
			}
			quiet = time.NewTimer(c.cfg.Quiescence)
			quietC = quiet.C
		case u := <-r.queue.C():
			r.queue.Ack()
			apply(u)
			if quiet != nil {
				if !quiet.Stop() {
					<-quiet.C
				}
				quiet.Reset(c.cfg.Quiescence)
			}
		case <-quietC:
			r.logger.Warn().
				Int("unsettled", remaining).
				Int("pending", r.queue.Len()).
				Dur("quiescence", c.cfg.Quiescence).
				Msg("Quote stream went quiet")
			break wait
		case <-r.failed.Done():
			return r.fatalErr()
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "collecting quotes")
		}
	}

	r.queue.Close()
	r.queue.Drain(apply)
	return r.fatalErr()
}

// signal is a single-use event.
type signal struct {
	once sync.Once
	ch   chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) Fire() {
	s.once.Do(func() { close(s.ch) })
}

func (s *signal) Done() <-chan struct{} {
	return s.ch
}

// run is the per-collection state the gateway delivers into.
type run struct {
	symbol        string
	timeout       time.Duration
	informational map[int]bool
	logger        zerolog.Logger
	queue         *stream.Queue

	contractDone *signal
	midpointSeen *signal
	paramsDone   *signal
	failed       *signal

	mu     sync.Mutex
	conID  int64
	price  float64
	params []broker.OptionParameters
	fatal  *errors.GatewayError
}

func newRun(symbol string, cfg config.CollectorConfig, informational map[int]bool, logger zerolog.Logger) *run {
	return &run{
		symbol:        symbol,
		timeout:       cfg.RequestTimeout,
		informational: informational,
		logger:        logger,
		queue:         stream.NewQueue(cfg.QueueSize),
		contractDone:  newSignal(),
		midpointSeen:  newSignal(),
		paramsDone:    newSignal(),
		failed:        newSignal(),
	}
}

// wait blocks until sig fires, the run fails, ctx ends or the stage times out.
func (r *run) wait(ctx context.Context, sig *signal, stage string) error {
	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case <-sig.Done():
		// A failure delivered ahead of the stage's completion still wins.
		return r.fatalErr()
	case <-r.failed.Done():
		return r.fatalErr()
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "waiting for %s", stage)
	case <-timer.C:
		return errors.Unavailable(stage, r.symbol, "no response from gateway", errors.ErrTimeout)
	}
}

func (r *run) contractID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conID
}

func (r *run) midpoint() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.price
}

func (r *run) fatalErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fatal == nil {
		return nil
	}
	return r.fatal
}

// selectParams prefers the configured exchange and otherwise takes the first
// reported parameter set.
func (r *run) selectParams(exchange string) broker.OptionParameters {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.params {
		if strings.EqualFold(p.Exchange, exchange) {
			return p
		}
	}
	if len(r.params) > 0 {
		return r.params[0]
	}
	return broker.OptionParameters{}
}

func (r *run) ContractDetails(reqID int, contractID int64) {
	if reqID != ContractRequestID {
		return
	}
	r.mu.Lock()
	if r.conID == 0 {
		r.conID = contractID
	}
	r.mu.Unlock()
}

func (r *run) ContractDetailsEnd(reqID int) {
	if reqID == ContractRequestID {
		r.contractDone.Fire()
	}
}

func (r *run) Midpoint(reqID int, at time.Time, price float64) {
	if reqID != MidpointRequestID || price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return
	}
	r.mu.Lock()
	if r.price == 0 {
		r.price = price
	}
	r.mu.Unlock()
	r.midpointSeen.Fire()
}

func (r *run) OptionParameters(reqID int, params broker.OptionParameters) {
	if reqID != ParamsRequestID {
		return
	}
	r.mu.Lock()
	r.params = append(r.params, params)
	r.mu.Unlock()
}

func (r *run) OptionParametersEnd(reqID int) {
	if reqID == ParamsRequestID {
		r.paramsDone.Fire()
	}
}

func (r *run) TickPrice(reqID int, field models.TickField, price float64) {
	if reqID < QuoteBaseID || (field != models.BidPrice && field != models.AskPrice) || price == -1 {
		return
	}
	r.queue.Push(models.QuoteUpdate{RequestID: reqID, Kind: models.UpdatePrice, Field: field, Value: price, ReceivedAt: time.Now()})
}

func (r *run) TickSize(reqID int, field models.TickField, size float64) {
	if reqID < QuoteBaseID || (field != models.BidSize && field != models.AskSize) || size == 0 {
		return
	}
	r.queue.Push(models.QuoteUpdate{RequestID: reqID, Kind: models.UpdateSize, Field: field, Value: size, ReceivedAt: time.Now()})
}

func (r *run) TickSnapshotEnd(reqID int) {
	if reqID < QuoteBaseID {
		return
	}
	r.queue.Push(models.QuoteUpdate{RequestID: reqID, Kind: models.UpdateSnapshotEnd, ReceivedAt: time.Now()})
}

func (r *run) Error(reqID int, code int, message string) {
	gwErr := errors.NewGatewayError(reqID, code, message, r.informational[code])
	logging.LogGatewayError(r.logger, gwErr)

	if !gwErr.Informational() {
		r.mu.Lock()
		if r.fatal == nil {
			r.fatal = gwErr
		}
		r.mu.Unlock()
		r.failed.Fire()
		return
	}

	// An informational error still ends the request it names.
	switch {
	case reqID == ContractRequestID:
		r.contractDone.Fire()
	case reqID == ParamsRequestID:
		r.paramsDone.Fire()
	case reqID >= QuoteBaseID:
		r.queue.Push(models.QuoteUpdate{RequestID: reqID, Kind: models.UpdateFailed, ReceivedAt: time.Now()})
	}
}

var _ broker.Handler = (*run)(nil)
