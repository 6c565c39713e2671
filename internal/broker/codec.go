package broker

import (
	"fmt"

	"github.com/sugawarayuuta/sonnet"

	"option-spreads/internal/models"
)

// Bridge message types. Outbound requests use the request names; inbound
// deliveries use the callback names.
const (
	msgHello                  = "hello"
	msgContractDetails        = "contract_details"
	msgContractDetailsEnd     = "contract_details_end"
	msgTickByTick             = "tick_by_tick"
	msgCancelTickByTick       = "cancel_tick_by_tick"
	msgMidpoint               = "midpoint"
	msgSecDefOptParams        = "sec_def_opt_params"
	msgSecDefOptParamsEnd     = "sec_def_opt_params_end"
	msgMarketData             = "mkt_data"
	msgCancelMarketData       = "cancel_mkt_data"
	msgTickPrice              = "tick_price"
	msgTickSize               = "tick_size"
	msgTickSnapshotEnd        = "tick_snapshot_end"
	msgError                  = "error"
	tickTypeMidPoint          = "MidPoint"
	defaultOptionParamSecType = models.Stock
)

// envelope is the single JSON frame shape exchanged with the bridge.
type envelope struct {
	Type  string `json:"type"`
	ReqID int    `json:"req_id"`

	// Requests
	ClientID   int                 `json:"client_id,omitempty"`
	Contract   *models.Contract    `json:"contract,omitempty"`
	Symbol     string              `json:"symbol,omitempty"`
	SecType    models.SecurityType `json:"sec_type,omitempty"`
	ContractID int64               `json:"contract_id,omitempty"`
	TickType   string              `json:"tick_type,omitempty"`
	Snapshot   bool                `json:"snapshot,omitempty"`

	// Deliveries
	Time    int64             `json:"time,omitempty"`
	Price   float64           `json:"price,omitempty"`
	Size    float64           `json:"size,omitempty"`
	Field   int               `json:"field,omitempty"`
	Params  *OptionParameters `json:"params,omitempty"`
	Code    int               `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
}

func encodeEnvelope(e envelope) ([]byte, error) {
	data, err := sonnet.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", e.Type, err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	var e envelope
	if err := sonnet.Unmarshal(data, &e); err != nil {
		return envelope{}, fmt.Errorf("decoding bridge frame: %w", err)
	}
	if e.Type == "" {
		return envelope{}, fmt.Errorf("decoding bridge frame: missing type")
	}
	return e, nil
}
