package deribit

import "encoding/json"

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcMessage is everything the venue sends: responses carry ID and
// Result/Error, notifications carry Method and Params.
type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// subscriptionParams is the params payload of a "subscription" notification.
type subscriptionParams struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// heartbeatParams is the params payload of a "heartbeat" notification.
// Type "test_request" must be answered with public/test.
type heartbeatParams struct {
	Type string `json:"type"`
}

// TradeMessage is one raw trade entry from a trades.option.{currency}.raw
// subscription.
type TradeMessage struct {
	TradeID        string  `json:"trade_id"`
	InstrumentName string  `json:"instrument_name"`
	Timestamp      int64   `json:"timestamp"` // epoch milliseconds
	Amount         float64 `json:"amount"`
	Price          float64 `json:"price"`
	Direction      string  `json:"direction"` // taker side: "buy" or "sell"
	IV             float64 `json:"iv"`        // percent, e.g. 62.5
	IndexPrice     float64 `json:"index_price"`
}

// instrumentResult is one entry from public/get_instruments.
type instrumentResult struct {
	InstrumentName      string  `json:"instrument_name"`
	BaseCurrency        string  `json:"base_currency"`
	Strike              float64 `json:"strike"`
	OptionType          string  `json:"option_type"` // "call" or "put"
	ExpirationTimestamp int64   `json:"expiration_timestamp"`
	ContractSize        float64 `json:"contract_size"`
	Kind                string  `json:"kind"`
}

// bookSummaryResult is one entry from public/get_book_summary_by_currency.
type bookSummaryResult struct {
	InstrumentName string  `json:"instrument_name"`
	MarkIV         float64 `json:"mark_iv"` // percent
	OpenInterest   float64 `json:"open_interest"`
}

// indexPriceResult is the result of public/get_index_price.
type indexPriceResult struct {
	IndexPrice float64 `json:"index_price"`
}

// restEnvelope is the standard REST response wrapper.
type restEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}
