// Package broker provides the brokerage gateway contract and its implementations.
package broker

import (
	"context"
	"time"

	"option-spreads/internal/models"
)

// Gateway defines the request side of the brokerage gateway. Responses are
// delivered asynchronously to the registered Handler, keyed by request id.
type Gateway interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	SetHandler(h Handler)

	// Contract metadata
	RequestContractDetails(reqID int, contract models.Contract) error
	RequestOptionParameters(reqID int, symbol string, secType models.SecurityType, contractID int64) error

	// Market data
	RequestMidpoint(reqID int, contract models.Contract) error
	CancelMidpoint(reqID int) error
	RequestQuote(reqID int, contract models.Contract, snapshot bool) error
	CancelQuote(reqID int) error
}

// Handler receives gateway deliveries. Implementations are called from the
// gateway's delivery goroutine and must not block for long.
type Handler interface {
	ContractDetails(reqID int, contractID int64)
	ContractDetailsEnd(reqID int)
	Midpoint(reqID int, at time.Time, price float64)
	OptionParameters(reqID int, params OptionParameters)
	OptionParametersEnd(reqID int)
	TickPrice(reqID int, field models.TickField, price float64)
	TickSize(reqID int, field models.TickField, size float64)
	TickSnapshotEnd(reqID int)
	Error(reqID int, code int, message string)
}

// OptionParameters is one exchange's strike and expiration universe.
type OptionParameters struct {
	Exchange     string    `json:"exchange" mapstructure:"exchange"`
	UnderlyingID int64     `json:"underlying_id" mapstructure:"underlying_id"`
	TradingClass string    `json:"trading_class" mapstructure:"trading_class"`
	Multiplier   string    `json:"multiplier" mapstructure:"multiplier"`
	Expirations  []string  `json:"expirations" mapstructure:"expirations"`
	Strikes      []float64 `json:"strikes" mapstructure:"strikes"`
}

// NoRequest is the request id the gateway uses for connection-level messages.
const NoRequest = -1

// Gateway message codes used by the implementations in this package.
const (
	CodeNoSecurityDefinition = 200
	CodeConnectivityLost     = 1100
	CodeNotConnected         = 504
)
