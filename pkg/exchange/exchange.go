package exchange

import (
	"context"
	"time"

	"github.com/cockroachdb/apd/v3"

	"strongbridge/pkg/core"
)

// Exchange defines the unified interface a trading client uses to talk to a
// venue: market data, account state, orders and funding.
type Exchange interface {
	Name() string
	Version() string

	FetchTime(ctx context.Context) (time.Time, error)
	LoadMarkets(ctx context.Context, reload bool) (*core.Markets, error)
	FetchMarkets(ctx context.Context) ([]core.Market, error)
	FetchCurrencies(ctx context.Context) ([]core.Currency, error)
	FetchOrderBook(ctx context.Context, symbol string, opts ...Option) (*core.OrderBook, error)
	FetchTrades(ctx context.Context, symbol string, opts ...Option) ([]core.Trade, error)

	FetchAccounts(ctx context.Context) ([]core.Account, error)
	FetchBalance(ctx context.Context, opts ...Option) ([]core.Balance, error)
	FetchMyTrades(ctx context.Context, symbol string, opts ...Option) ([]core.Trade, error)
	FetchOpenOrders(ctx context.Context, symbol string, opts ...Option) ([]core.Order, error)

	CreateOrder(ctx context.Context, req *OrderRequest, opts ...Option) (*core.Order, error)
	CancelOrder(ctx context.Context, req *CancelRequest, opts ...Option) (*core.Order, error)

	CreateDepositAddress(ctx context.Context, code string, opts ...Option) (*core.DepositAddress, error)
	Withdraw(ctx context.Context, req *WithdrawRequest, opts ...Option) (*core.Transaction, error)
	FetchTransactions(ctx context.Context, code string, opts ...Option) ([]core.Transaction, error)

	// SetSandbox switches between the live and the sandbox venue.
	SetSandbox(enabled bool) error
	Close() error
}

// OrderRequest contains the parameters required to place a new order on an exchange.
type OrderRequest struct {
	Symbol string         `validate:"required"`
	Side   core.OrderSide `validate:"oneof=1 2"`
	Type   core.OrderType `validate:"oneof=0 1"`
	// Price is ignored for market orders.
	Price  apd.Decimal
	Amount apd.Decimal
}

// CancelRequest contains the parameters required to cancel an existing order.
type CancelRequest struct {
	Symbol  string
	OrderID string `validate:"required"`
}

// WithdrawRequest moves funds off the venue.
type WithdrawRequest struct {
	// Code is the canonical currency code.
	Code    string `validate:"required"`
	Amount  apd.Decimal
	Address string `validate:"required"`
	// PaymentMethod overrides the rail derived from Code.
	PaymentMethod string
}
