package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"option-spreads/internal/models"
	"option-spreads/pkg/utils"
)

// BridgeGateway talks to the brokerage gateway through a websocket bridge
// process that relays requests and callbacks as JSON frames.
type BridgeGateway struct {
	url          string
	clientID     int
	dialAttempts int
	dialDelay    time.Duration
	logger       zerolog.Logger

	conn      *websocket.Conn
	handler   Handler
	connected bool
	closing   bool
	readers   *conc.WaitGroup

	mu      sync.RWMutex
	writeMu sync.Mutex // Protects websocket writes
}

// BridgeConfig holds configuration for the bridge gateway.
type BridgeConfig struct {
	URL          string
	ClientID     int
	DialAttempts int
	DialDelay    time.Duration
	Logger       zerolog.Logger
}

// NewBridgeGateway creates a bridge gateway. Connect must be called before
// issuing requests.
func NewBridgeGateway(cfg BridgeConfig) *BridgeGateway {
	attempts := cfg.DialAttempts
	if attempts == 0 {
		attempts = 3
	}
	delay := cfg.DialDelay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}

	return &BridgeGateway{
		url:          cfg.URL,
		clientID:     cfg.ClientID,
		dialAttempts: attempts,
		dialDelay:    delay,
		logger:       cfg.Logger.With().Str("component", "bridge").Logger(),
	}
}

// Connect dials the bridge, announces the client id and starts the read loop.
func (b *BridgeGateway) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.connected {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = b.dialAttempts
	retry.InitialDelay = b.dialDelay
	retry.MaxDelay = 10 * time.Second
	retry.OnRetry = func(attempt int, delay time.Duration, err error) {
		b.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Bridge dial failed, retrying")
	}

	conn, err := utils.RetryWithResult(ctx, retry, func() (*websocket.Conn, error) {
		c, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
		return c, err
	})
	if err != nil {
		return fmt.Errorf("dialing bridge %s: %w", b.url, err)
	}

	b.mu.Lock()
	b.conn = conn
	b.connected = true
	b.closing = false
	b.readers = conc.NewWaitGroup()
	b.readers.Go(b.readLoop)
	b.mu.Unlock()

	if err := b.send(envelope{Type: msgHello, ReqID: NoRequest, ClientID: b.clientID}); err != nil {
		b.Disconnect()
		return err
	}

	b.logger.Info().Str("url", b.url).Int("client_id", b.clientID).Msg("Connected to gateway bridge")
	return nil
}

// Disconnect closes the websocket and waits for the read loop to exit.
func (b *BridgeGateway) Disconnect() error {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return nil
	}
	b.closing = true
	b.connected = false
	conn := b.conn
	readers := b.readers
	b.mu.Unlock()

	b.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	b.writeMu.Unlock()

	err := conn.Close()
	readers.Wait()
	return err
}

// IsConnected returns whether the bridge connection is up.
func (b *BridgeGateway) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// SetHandler sets the delivery target.
func (b *BridgeGateway) SetHandler(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// RequestContractDetails requests the contract id for an instrument.
func (b *BridgeGateway) RequestContractDetails(reqID int, contract models.Contract) error {
	return b.send(envelope{Type: msgContractDetails, ReqID: reqID, Contract: &contract})
}

// RequestOptionParameters requests the strike and expiration universe.
func (b *BridgeGateway) RequestOptionParameters(reqID int, symbol string, secType models.SecurityType, contractID int64) error {
	if secType == "" {
		secType = defaultOptionParamSecType
	}
	return b.send(envelope{
		Type:       msgSecDefOptParams,
		ReqID:      reqID,
		Symbol:     symbol,
		SecType:    secType,
		ContractID: contractID,
	})
}

// RequestMidpoint subscribes to tick-by-tick midpoints.
func (b *BridgeGateway) RequestMidpoint(reqID int, contract models.Contract) error {
	return b.send(envelope{Type: msgTickByTick, ReqID: reqID, Contract: &contract, TickType: tickTypeMidPoint})
}

// CancelMidpoint cancels a midpoint subscription.
func (b *BridgeGateway) CancelMidpoint(reqID int) error {
	return b.send(envelope{Type: msgCancelTickByTick, ReqID: reqID})
}

// RequestQuote subscribes to top-of-book market data for a contract.
func (b *BridgeGateway) RequestQuote(reqID int, contract models.Contract, snapshot bool) error {
	return b.send(envelope{Type: msgMarketData, ReqID: reqID, Contract: &contract, Snapshot: snapshot})
}

// CancelQuote cancels a market data subscription.
func (b *BridgeGateway) CancelQuote(reqID int) error {
	return b.send(envelope{Type: msgCancelMarketData, ReqID: reqID})
}

func (b *BridgeGateway) send(e envelope) error {
	b.mu.RLock()
	conn := b.conn
	connected := b.connected
	b.mu.RUnlock()

	if !connected || conn == nil {
		return fmt.Errorf("bridge: %s request %d: not connected", e.Type, e.ReqID)
	}

	data, err := encodeEnvelope(e)
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("bridge: writing %s: %w", e.Type, err)
	}
	return nil
}

// readLoop is the delivery goroutine: every callback runs here.
func (b *BridgeGateway) readLoop() {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			b.mu.Lock()
			closing := b.closing
			b.connected = false
			b.mu.Unlock()

			if !closing {
				b.logger.Error().Err(err).Msg("Bridge connection lost")
				b.dispatch(envelope{Type: msgError, ReqID: NoRequest, Code: CodeConnectivityLost, Message: err.Error()})
			}
			return
		}

		e, err := decodeEnvelope(data)
		if err != nil {
			b.logger.Warn().Err(err).Msg("Skipping malformed bridge frame")
			continue
		}
		b.dispatch(e)
	}
}

func (b *BridgeGateway) dispatch(e envelope) {
	b.mu.RLock()
	h := b.handler
	b.mu.RUnlock()
	if h == nil {
		return
	}

	switch e.Type {
	case msgContractDetails:
		h.ContractDetails(e.ReqID, e.ContractID)
	case msgContractDetailsEnd:
		h.ContractDetailsEnd(e.ReqID)
	case msgMidpoint:
		h.Midpoint(e.ReqID, time.Unix(e.Time, 0), e.Price)
	case msgSecDefOptParams:
		if e.Params != nil {
			h.OptionParameters(e.ReqID, *e.Params)
		}
	case msgSecDefOptParamsEnd:
		h.OptionParametersEnd(e.ReqID)
	case msgTickPrice:
		h.TickPrice(e.ReqID, models.TickField(e.Field), e.Price)
	case msgTickSize:
		h.TickSize(e.ReqID, models.TickField(e.Field), e.Size)
	case msgTickSnapshotEnd:
		h.TickSnapshotEnd(e.ReqID)
	case msgError:
		h.Error(e.ReqID, e.Code, e.Message)
	default:
		b.logger.Debug().Str("type", e.Type).Msg("Ignoring unknown bridge frame")
	}
}

// Ensure BridgeGateway implements Gateway interface
var _ Gateway = (*BridgeGateway)(nil)
