package chain

import "option-spreads/internal/models"

// Fixed request ids for the metadata stages. Quote subscriptions start at
// QuoteBaseID, which must be odd so calls land on odd ids.
const (
	ContractRequestID = 0
	MidpointRequestID = 1
	ParamsRequestID   = 2
	QuoteBaseID       = 3
)

// QuoteRequestID returns the subscription id for a strike index and right.
func QuoteRequestID(index int, right models.Right) int {
	id := QuoteBaseID + 2*index
	if right == models.Put {
		id++
	}
	return id
}

// DecodeQuoteRequestID maps a subscription id back to its strike index and
// right. The boolean is false for ids below QuoteBaseID.
func DecodeQuoteRequestID(reqID int) (int, models.Right, bool) {
	if reqID < QuoteBaseID {
		return 0, "", false
	}
	right := models.Put
	if reqID&1 == 1 {
		right = models.Call
	}
	return (reqID - QuoteBaseID) / 2, right, true
}
