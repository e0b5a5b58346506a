package stronghold

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// Number is a venue numeric field. Stronghold sends most amounts as JSON
// strings but some as bare numbers; both decode to their literal text.
// An absent or null field decodes to the empty string.
type Number string

// UnmarshalJSON implements json.Unmarshaler for Number.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*n = ""
	case data[0] == '"':
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number(s)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("number: unexpected %q", data[0])
	default:
		*n = Number(data)
	}
	return nil
}

func (n Number) String() string { return string(n) }

// RawMarket is an entry of /venues/{venueId}/markets.
type RawMarket struct {
	ID                    string `json:"id"`
	BaseAssetID           string `json:"baseAssetId"`
	CounterAssetID        string `json:"counterAssetId"`
	MinimumOrderSize      Number `json:"minimumOrderSize"`
	MinimumOrderIncrement Number `json:"minimumOrderIncrement"`
	MinimumPriceIncrement Number `json:"minimumPriceIncrement"`
	DisplayDecimalsPrice  Number `json:"displayDecimalsPrice"`
	DisplayDecimalsAmount Number `json:"displayDecimalsAmount"`

	Raw json.RawMessage `json:"-"`
}

func (m *RawMarket) setRaw(b json.RawMessage) { m.Raw = b }

// RawAsset is an entry of /venues/{venueId}/assets.
type RawAsset struct {
	ID                  string `json:"id"`
	Code                string `json:"code"`
	DisplayDecimalsFull Number `json:"displayDecimalsFull"`

	Raw json.RawMessage `json:"-"`
}

func (a *RawAsset) setRaw(b json.RawMessage) { a.Raw = b }

// RawOrderBook is the result of /markets/{marketId}/orderbook. Each level is a
// [price, size] pair.
type RawOrderBook struct {
	MarketID string     `json:"marketId"`
	Bids     [][]Number `json:"bids"`
	Asks     [][]Number `json:"asks"`
}

// TradeShape discriminates the two wire forms of a trade.
type TradeShape int

const (
	// ShapeTuple is the public feed form [price, amount, side, timestamp].
	ShapeTuple TradeShape = iota + 1
	// ShapeObject is the account history form with named fields.
	ShapeObject
)

func (s TradeShape) String() string {
	switch s {
	case ShapeTuple:
		return "tuple"
	case ShapeObject:
		return "object"
	default:
		return "unknown"
	}
}

// TupleTrade is a public trade: [price, amount, side, timestamp].
type TupleTrade []Number

// ObjectTrade is a trade from the account's history.
type ObjectTrade struct {
	ID         string `json:"id"`
	OrderID    string `json:"orderId"`
	MarketID   string `json:"marketId"`
	Side       string `json:"side"`
	Size       Number `json:"size"`
	Price      Number `json:"price"`
	Settled    bool   `json:"settled"`
	Maker      bool   `json:"maker"`
	ExecutedAt string `json:"executedAt"`
}

// RawTrade holds exactly one trade shape. Shape says which field is set.
type RawTrade struct {
	Shape  TradeShape
	Tuple  TupleTrade
	Object *ObjectTrade
	Raw    json.RawMessage
}

// NewTupleTrade wraps a public feed trade.
func NewTupleTrade(t TupleTrade) *RawTrade {
	return &RawTrade{Shape: ShapeTuple, Tuple: t}
}

// NewObjectTrade wraps an account history trade.
func NewObjectTrade(t *ObjectTrade) *RawTrade {
	return &RawTrade{Shape: ShapeObject, Object: t}
}

// UnmarshalJSON decides the shape from the first token only: a JSON array
// is a tuple trade and a JSON object is an object trade.
func (t *RawTrade) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("trade: empty value")
	}

	switch trimmed[0] {
	case '[':
		var tuple TupleTrade
		if err := sonic.Unmarshal(trimmed, &tuple); err != nil {
			return fmt.Errorf("trade tuple: %w", err)
		}
		if tuple == nil {
			tuple = TupleTrade{}
		}
		*t = RawTrade{Shape: ShapeTuple, Tuple: tuple}
	case '{':
		var obj ObjectTrade
		if err := sonic.Unmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("trade object: %w", err)
		}
		*t = RawTrade{Shape: ShapeObject, Object: &obj}
	default:
		return fmt.Errorf("trade: expected array or object, got %q", trimmed[0])
	}

	t.Raw = append(json.RawMessage(nil), trimmed...)
	return nil
}

// RawTrades is the result of the trade endpoints: either an object naming
// the market with its trades, or a bare array of trades.
type RawTrades struct {
	MarketID string     `json:"marketId"`
	Trades   []RawTrade `json:"trades"`
}

// UnmarshalJSON implements json.Unmarshaler for RawTrades.
func (r *RawTrades) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("trades: empty result")
	}

	switch trimmed[0] {
	case '[':
		var trades []RawTrade
		if err := sonic.Unmarshal(trimmed, &trades); err != nil {
			return err
		}
		*r = RawTrades{Trades: trades}
	case '{':
		type wrapped RawTrades
		var w wrapped
		if err := sonic.Unmarshal(trimmed, &w); err != nil {
			return err
		}
		*r = RawTrades(w)
	default:
		return fmt.Errorf("trades: expected array or object, got %q", trimmed[0])
	}
	return nil
}

// RawOrder is an order as returned by the orders endpoints. Older responses
// spell the market field marketID.
type RawOrder struct {
	ID          string `json:"id"`
	MarketID    string `json:"marketId"`
	MarketIDAlt string `json:"marketID"`
	Type        string `json:"type"`
	Side        string `json:"side"`
	Size        Number `json:"size"`
	SizeFilled  Number `json:"sizeFilled"`
	Price       Number `json:"price"`
	PlacedAt    string `json:"placedAt"`

	Raw json.RawMessage `json:"-"`
}

func (o *RawOrder) setRaw(b json.RawMessage) { o.Raw = b }

func (o *RawOrder) marketID() string {
	if o.MarketID != "" {
		return o.MarketID
	}
	return o.MarketIDAlt
}

// RawBalance is one asset entry of an account.
type RawBalance struct {
	AssetID           string `json:"assetId"`
	Amount            Number `json:"amount"`
	AvailableForTrade Number `json:"availableForTrade"`
}

// RawAccount is the result of /accounts/{accountId} and an entry of /accounts.
type RawAccount struct {
	ID       string       `json:"id"`
	VenueID  string       `json:"venueId"`
	Balances []RawBalance `json:"balances"`

	Raw json.RawMessage `json:"-"`
}

func (a *RawAccount) setRaw(b json.RawMessage) { a.Raw = b }

// RawDeposit is the result of the deposit endpoint.
type RawDeposit struct {
	AssetID                   string `json:"assetId"`
	PaymentMethod             string `json:"paymentMethod"`
	PaymentMethodInstructions struct {
		DepositAddress string `json:"deposit_address"`
		Reference      string `json:"reference"`
	} `json:"paymentMethodInstructions"`
}

// RawTransaction is an entry of the transactions endpoint.
type RawTransaction struct {
	ID                   string `json:"id"`
	AssetID              string `json:"assetId"`
	Amount               Number `json:"amount"`
	Direction            string `json:"direction"`
	Status               string `json:"status"`
	PaymentMethod        string `json:"paymentMethod"`
	PaymentMethodDetails struct {
		WithdrawalAddress string `json:"withdrawal_address"`
		DepositAddress    string `json:"deposit_address"`
	} `json:"paymentMethodDetails"`
	RequestedAt string `json:"requestedAt"`
	UpdatedAt   string `json:"updatedAt"`

	Raw json.RawMessage `json:"-"`
}

func (t *RawTransaction) setRaw(b json.RawMessage) { t.Raw = b }

type rawCarrier interface {
	setRaw(json.RawMessage)
}

// decodeItems decodes a JSON array element by element and keeps each
// element's bytes as its raw payload.
func decodeItems[T any, PT interface {
	*T
	rawCarrier
}](field string, data []byte) ([]T, error) {
	var items []json.RawMessage
	if err := sonic.Unmarshal(data, &items); err != nil {
		return nil, parseError(field, string(data), err)
	}

	out := make([]T, len(items))
	for i, item := range items {
		p := PT(&out[i])
		if err := sonic.Unmarshal(item, p); err != nil {
			return nil, parseError(field, string(item), err)
		}
		p.setRaw(item)
	}
	return out, nil
}

// decodeItem decodes a single JSON object and keeps its bytes.
func decodeItem[T any, PT interface {
	*T
	rawCarrier
}](field string, data []byte) (*T, error) {
	var v T
	p := PT(&v)
	if err := sonic.Unmarshal(data, p); err != nil {
		return nil, parseError(field, string(data), err)
	}
	p.setRaw(append(json.RawMessage(nil), data...))
	return &v, nil
}
