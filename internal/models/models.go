// Package models provides domain models for option chain analysis.
package models

import "time"

// SecurityType represents the gateway security type of a contract.
type SecurityType string

const (
	Stock  SecurityType = "STK"
	Option SecurityType = "OPT"
)

// ExpiryLayout is the gateway's date format for expirations.
const ExpiryLayout = "20060102"

// Contract describes an instrument in a gateway request.
type Contract struct {
	ContractID int64        `json:"contract_id,omitempty"`
	Symbol     string       `json:"symbol"`
	SecType    SecurityType `json:"sec_type"`
	Exchange   string       `json:"exchange"`
	Currency   string       `json:"currency"`
	Right      Right        `json:"right,omitempty"`
	Strike     float64      `json:"strike,omitempty"`
	Expiry     string       `json:"expiry,omitempty"` // YYYYMMDD
}

// StockContract returns the underlying contract for a symbol.
func StockContract(symbol, exchange, currency string) Contract {
	return Contract{
		Symbol:   symbol,
		SecType:  Stock,
		Exchange: exchange,
		Currency: currency,
	}
}

// OptionContract returns the option contract on symbol for one strike and right.
func OptionContract(symbol, exchange, currency string, strike float64, right Right, expiry time.Time) Contract {
	return Contract{
		Symbol:   symbol,
		SecType:  Option,
		Exchange: exchange,
		Currency: currency,
		Right:    right,
		Strike:   strike,
		Expiry:   expiry.Format(ExpiryLayout),
	}
}
