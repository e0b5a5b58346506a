package core

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// OrderSide represents the direction of an order or trade.
type OrderSide int

// Order side constants define the direction of a trade.
const (
	// SideUnknown is used when the venue reports a side token that cannot be decoded.
	SideUnknown OrderSide = iota
	// SideBuy indicates an order to purchase an asset.
	SideBuy
	// SideSell indicates an order to sell an asset.
	SideSell
)

// String returns the string representation of the order side ("buy", "sell" or "unknown").
func (s OrderSide) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
// It accepts both uppercase and lowercase formats.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"BUY"`, `"buy"`:
		*s = SideBuy
	case `"SELL"`, `"sell"`:
		*s = SideSell
	default:
		*s = SideUnknown
	}
	return nil
}

// ParseSide decodes a venue side token. Unrecognized tokens yield SideUnknown.
func ParseSide(token string) OrderSide {
	switch token {
	case "buy", "BUY", "Buy":
		return SideBuy
	case "sell", "SELL", "Sell":
		return SideSell
	default:
		return SideUnknown
	}
}

// TakerOrMaker records the liquidity role of a trade. The zero value means the
// venue did not report it.
type TakerOrMaker int

const (
	// LiquidityUnset indicates the role is not known.
	LiquidityUnset TakerOrMaker = iota
	// LiquidityTaker indicates the order matched immediately against the book.
	LiquidityTaker
	// LiquidityMaker indicates the trade filled a resting order.
	LiquidityMaker
)

// String returns "taker", "maker" or an empty string when unset.
func (t TakerOrMaker) String() string {
	switch t {
	case LiquidityTaker:
		return "taker"
	case LiquidityMaker:
		return "maker"
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler for TakerOrMaker. Unset encodes as null.
func (t TakerOrMaker) MarshalJSON() ([]byte, error) {
	if t == LiquidityUnset {
		return []byte("null"), nil
	}
	return []byte(`"` + t.String() + `"`), nil
}

// OrderType represents the type of order to place on an exchange.
type OrderType int

// Order type constants define how an order is executed.
const (
	// TypeLimit executes at a specified price or better.
	TypeLimit OrderType = iota
	// TypeMarket executes immediately at the best available price.
	TypeMarket
)

// String returns the venue representation of the order type.
func (t OrderType) String() string {
	return [...]string{"limit", "market"}[t]
}

// Precision holds decimal-digit counts. A nil field means the venue did not specify it.
type Precision struct {
	Amount *int `json:"amount"`
	Price  *int `json:"price"`
}

// MinMax is an optional bound pair. Nil means unbounded or unreported.
type MinMax struct {
	Min *apd.Decimal `json:"min"`
	Max *apd.Decimal `json:"max"`
}

// Limits groups the order bounds of a market.
type Limits struct {
	Amount MinMax `json:"amount"`
	Price  MinMax `json:"price"`
	Cost   MinMax `json:"cost"`
}

// Market describes a tradable pair.
type Market struct {
	// Symbol is the canonical "BASE/QUOTE" identifier.
	Symbol string `json:"symbol"`
	// ID is the venue market identifier (e.g. "XLMUSD").
	ID string `json:"id"`
	// Base is the canonical base currency code.
	Base string `json:"base"`
	// Quote is the canonical quote currency code.
	Quote string `json:"quote"`
	// BaseID is the venue asset id of the base currency (e.g. "XLM/stellar.org").
	BaseID string `json:"base_id"`
	// QuoteID is the venue asset id of the quote currency.
	QuoteID   string    `json:"quote_id"`
	Precision Precision `json:"precision"`
	Limits    Limits    `json:"limits"`
	// Info is the raw venue payload.
	Info any `json:"info,omitempty"`
}

// Currency describes an asset listed by the venue.
type Currency struct {
	// Code is the canonical currency code.
	Code string `json:"code"`
	// ID is the venue asset identifier.
	ID string `json:"id"`
	// Precision is the display precision in decimal digits, nil if unspecified.
	Precision *int `json:"precision"`
	Info      any  `json:"info,omitempty"`
}

// OrderBookLevel represents a single price level in the order book.
type OrderBookLevel struct {
	// Price is the limit price for this level.
	Price apd.Decimal `json:"price"`
	// Quantity is the total quantity available at this price.
	Quantity apd.Decimal `json:"quantity"`
}

// OrderBook represents a snapshot of the order book for a trading pair.
// Levels keep the order the venue sent them in: bids best-first descending,
// asks best-first ascending.
type OrderBook struct {
	Symbol    string           `json:"symbol"`
	Bids      []OrderBookLevel `json:"bids"`
	Asks      []OrderBookLevel `json:"asks"`
	Timestamp time.Time        `json:"timestamp"`
	Info      any              `json:"info,omitempty"`
}

// Trade represents a single execution, either from the public feed or from
// the account's trade history. Fields the venue does not report stay zero.
type Trade struct {
	ID           string       `json:"id,omitempty"`
	OrderID      string       `json:"order_id,omitempty"`
	Symbol       string       `json:"symbol,omitempty"`
	Side         OrderSide    `json:"side"`
	Price        apd.Decimal  `json:"price"`
	Amount       apd.Decimal  `json:"amount"`
	Cost         *apd.Decimal `json:"cost,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
	TakerOrMaker TakerOrMaker `json:"taker_or_maker"`
	Info         any          `json:"info,omitempty"`
}

// Order represents an order placed on the venue.
type Order struct {
	ID string `json:"id"`
	// MarketID is the venue market id the order was placed on.
	MarketID string `json:"market_id"`
	// Symbol is resolved from MarketID; empty when the market is unknown.
	Symbol string      `json:"symbol"`
	Side   OrderSide   `json:"side"`
	Price  apd.Decimal `json:"price"`
	// Amount is the ordered quantity.
	Amount apd.Decimal `json:"amount"`
	// Filled is the executed quantity.
	Filled apd.Decimal `json:"filled"`
	// Remaining is Amount - Filled. A negative value is a venue anomaly and is kept as is.
	Remaining apd.Decimal `json:"remaining"`
	Timestamp time.Time   `json:"timestamp"`
	Info      any         `json:"info,omitempty"`
}

// SetQuantities assigns amount and filled and recomputes Remaining.
func (o *Order) SetQuantities(amount, filled *apd.Decimal) error {
	o.Amount.Set(amount)
	o.Filled.Set(filled)
	if _, err := apd.BaseContext.Sub(&o.Remaining, &o.Amount, &o.Filled); err != nil {
		return err
	}
	return nil
}

// Balance represents account balance for a single asset.
//
// Free is derived as Total - Available, where Available is the venue's
// "available for trade" figure. Free can only be negative when the venue
// itself reports more available than total.
type Balance struct {
	Asset     string      `json:"asset"`
	Total     apd.Decimal `json:"total"`
	Available apd.Decimal `json:"available"`
	Free      apd.Decimal `json:"free"`
}

// Account is a trading account held on a venue.
type Account struct {
	ID      string `json:"id"`
	VenueID string `json:"venue_id"`
	Info    any    `json:"info,omitempty"`
}

// DepositAddress is where funds for a currency can be sent.
type DepositAddress struct {
	Currency      string `json:"currency"`
	Address       string `json:"address"`
	Tag           string `json:"tag,omitempty"`
	PaymentMethod string `json:"payment_method"`
	Info          any    `json:"info,omitempty"`
}

// TransactionStatus is the canonical lifecycle state of a deposit or withdrawal.
type TransactionStatus string

const (
	TxStatusPending  TransactionStatus = "pending"
	TxStatusOK       TransactionStatus = "ok"
	TxStatusFailed   TransactionStatus = "failed"
	TxStatusCanceled TransactionStatus = "canceled"
)

// TransactionType tells deposits from withdrawals.
type TransactionType string

const (
	TxTypeDeposit    TransactionType = "deposit"
	TxTypeWithdrawal TransactionType = "withdrawal"
)

// Transaction is a deposit or withdrawal.
type Transaction struct {
	ID        string            `json:"id"`
	Currency  string            `json:"currency"`
	Amount    apd.Decimal       `json:"amount"`
	Type      TransactionType   `json:"type"`
	Status    TransactionStatus `json:"status"`
	Address   string            `json:"address,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Updated   time.Time         `json:"updated"`
	Info      any               `json:"info,omitempty"`
}
