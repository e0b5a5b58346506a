// Package order builds create-order requests and fits them to a market's
// precision and limits.
package order

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-playground/validator/v10"

	"strongbridge/pkg/core"
	"strongbridge/pkg/exchange"
)

// ErrInvalidOrder is wrapped by every validation failure.
var ErrInvalidOrder = errors.New("invalid order")

var validate = validator.New()

// Builder provides a fluent interface for constructing order requests.
// It accumulates the first error and reports it on Build.
//
// Example:
//
//	req, err := order.NewBuilder("XLM/USD").
//	    Buy().
//	    Limit().
//	    Price("0.1044").
//	    Amount("100").
//	    ForMarket(market).
//	    Build()
type Builder struct {
	req    *exchange.OrderRequest
	market *core.Market
	err    error
}

// NewBuilder creates a new order builder for the given trading symbol.
func NewBuilder(symbol string) *Builder {
	return &Builder{
		req: &exchange.OrderRequest{Symbol: symbol},
	}
}

// Side sets the order side.
func (b *Builder) Side(side core.OrderSide) *Builder {
	if b.err != nil {
		return b
	}
	b.req.Side = side
	return b
}

// Buy sets the order side to buy.
func (b *Builder) Buy() *Builder {
	return b.Side(core.SideBuy)
}

// Sell sets the order side to sell.
func (b *Builder) Sell() *Builder {
	return b.Side(core.SideSell)
}

// Type sets the order type.
func (b *Builder) Type(orderType core.OrderType) *Builder {
	if b.err != nil {
		return b
	}
	b.req.Type = orderType
	return b
}

// Market sets the order type to market.
func (b *Builder) Market() *Builder {
	return b.Type(core.TypeMarket)
}

// Limit sets the order type to limit.
func (b *Builder) Limit() *Builder {
	return b.Type(core.TypeLimit)
}

// Price sets the order price from a string representation.
func (b *Builder) Price(price string) *Builder {
	if b.err != nil {
		return b
	}
	if _, _, err := b.req.Price.SetString(price); err != nil {
		b.err = fmt.Errorf("%w: parse price: %v", ErrInvalidOrder, err)
	}
	return b
}

// PriceDecimal sets the order price from an apd.Decimal value.
func (b *Builder) PriceDecimal(price apd.Decimal) *Builder {
	if b.err != nil {
		return b
	}
	b.req.Price.Set(&price)
	return b
}

// Amount sets the order amount from a string representation.
func (b *Builder) Amount(amount string) *Builder {
	if b.err != nil {
		return b
	}
	if _, _, err := b.req.Amount.SetString(amount); err != nil {
		b.err = fmt.Errorf("%w: parse amount: %v", ErrInvalidOrder, err)
	}
	return b
}

// AmountDecimal sets the order amount from an apd.Decimal value.
func (b *Builder) AmountDecimal(amount apd.Decimal) *Builder {
	if b.err != nil {
		return b
	}
	b.req.Amount.Set(&amount)
	return b
}

// ForMarket fits the order to m on Build: amount and price are truncated to
// the market's precision and the amount is checked against its minimum.
func (b *Builder) ForMarket(m *core.Market) *Builder {
	if b.err != nil {
		return b
	}
	if m != nil && m.Symbol != b.req.Symbol {
		b.err = fmt.Errorf("%w: market %s does not match %s", ErrInvalidOrder, m.Symbol, b.req.Symbol)
		return b
	}
	b.market = m
	return b
}

// Build validates and returns the order request.
func (b *Builder) Build() (*exchange.OrderRequest, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.market != nil {
		if err := Fit(b.req, b.market); err != nil {
			return nil, err
		}
	}
	if err := Validate(b.req); err != nil {
		return nil, err
	}
	return b.req, nil
}

// Validate checks an order request without any market knowledge.
func Validate(req *exchange.OrderRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	if req.Amount.IsZero() || req.Amount.Negative {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidOrder)
	}
	if req.Type == core.TypeLimit && (req.Price.IsZero() || req.Price.Negative) {
		return fmt.Errorf("%w: price must be positive for limit orders", ErrInvalidOrder)
	}
	return nil
}

// Fit truncates req's amount and price to m's precision and enforces the
// minimum amount. Unspecified precision leaves a value untouched.
func Fit(req *exchange.OrderRequest, m *core.Market) error {
	if m.Precision.Amount != nil {
		if err := Truncate(&req.Amount, *m.Precision.Amount); err != nil {
			return fmt.Errorf("%w: truncate amount: %v", ErrInvalidOrder, err)
		}
	}
	if m.Precision.Price != nil && req.Type == core.TypeLimit {
		if err := Truncate(&req.Price, *m.Precision.Price); err != nil {
			return fmt.Errorf("%w: truncate price: %v", ErrInvalidOrder, err)
		}
	}
	if minAmount := m.Limits.Amount.Min; minAmount != nil && req.Amount.Cmp(minAmount) < 0 {
		return fmt.Errorf("%w: amount %s below minimum %s", ErrInvalidOrder, req.Amount.Text('f'), minAmount.Text('f'))
	}
	return nil
}

// Truncate drops every digit of d past digits decimal places, rounding
// toward zero.
func Truncate(d *apd.Decimal, digits int) error {
	if digits < 0 {
		return fmt.Errorf("negative precision %d", digits)
	}
	if -d.Exponent <= int32(digits) {
		return nil
	}
	ctx := apd.BaseContext.WithPrecision(uint32(d.NumDigits()) + 1)
	ctx.Rounding = apd.RoundDown
	_, err := ctx.Quantize(d, d, -int32(digits))
	return err
}

// Format renders d in plain decimal notation for the venue.
func Format(d *apd.Decimal) string {
	return d.Text('f')
}
