package models

import "time"

// TickField identifies a quote attribute. Values match the gateway's tick type
// codes so they can be passed through unchanged.
type TickField int

const (
	BidSize  TickField = 0
	BidPrice TickField = 1
	AskPrice TickField = 2
	AskSize  TickField = 3
)

func (f TickField) String() string {
	switch f {
	case BidSize:
		return "bid_size"
	case BidPrice:
		return "bid_price"
	case AskPrice:
		return "ask_price"
	case AskSize:
		return "ask_size"
	default:
		return "unknown"
	}
}

// QuoteFields is a bitmask of observed quote attributes.
type QuoteFields uint8

func (f TickField) mask() QuoteFields {
	return 1 << uint(f)
}

// OptionQuote holds the top of book for one option contract.
type OptionQuote struct {
	BidPrice float64     `json:"bid_price"`
	AskPrice float64     `json:"ask_price"`
	BidSize  float64     `json:"bid_size"`
	AskSize  float64     `json:"ask_size"`
	Seen     QuoteFields `json:"-"`
}

// Has reports whether the field was observed at least once.
func (q *OptionQuote) Has(field TickField) bool {
	return q.Seen&field.mask() != 0
}

// Apply records a tick value for the field.
func (q *OptionQuote) Apply(field TickField, value float64) {
	switch field {
	case BidSize:
		q.BidSize = value
	case BidPrice:
		q.BidPrice = value
	case AskPrice:
		q.AskPrice = value
	case AskSize:
		q.AskSize = value
	default:
		return
	}
	q.Seen |= field.mask()
}

// Complete reports whether ask price and ask size were both observed.
func (q *OptionQuote) Complete() bool {
	return q.Has(AskPrice) && q.Has(AskSize)
}

// UpdateKind distinguishes the entries carried by the quote update queue.
type UpdateKind int

const (
	UpdatePrice UpdateKind = iota
	UpdateSize
	UpdateSnapshotEnd
	UpdateFailed
)

// QuoteUpdate is a single delivery from a quote subscription.
type QuoteUpdate struct {
	RequestID  int
	Kind       UpdateKind
	Field      TickField
	Value      float64
	ReceivedAt time.Time
}
