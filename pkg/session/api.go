package session

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"strongbridge/pkg/core"
	"strongbridge/pkg/exchange"
	"strongbridge/pkg/exchange/stronghold"
	"strongbridge/pkg/order"
)

var validate = validator.New()

// Name returns the exchange identifier.
func (s *Session) Name() string {
	return s.protocol.Name()
}

// Version returns the venue API version.
func (s *Session) Version() string {
	return s.protocol.Version()
}

// FetchTime returns the venue clock.
func (s *Session) FetchTime(ctx context.Context) (time.Time, error) {
	return call[time.Time](ctx, s, core.OpFetchTime, nil)
}

// LoadMarkets returns the market index of the current venue, fetching it
// when reload is set, caching is off or the cached copy has expired.
func (s *Session) LoadMarkets(ctx context.Context, reload bool) (*core.Markets, error) {
	key := marketsKey(s.Venue().ID)
	if !reload && s.config.CacheEnabled {
		if m, ok := cached[*core.Markets](s.cache, key); ok {
			return m, nil
		}
	}

	list, err := call[[]core.Market](ctx, s, core.OpFetchMarkets, nil)
	if err != nil {
		return nil, err
	}
	markets := core.NewMarkets(list)
	s.cache.Set(key, markets)

	s.logger.Debug().Int("markets", markets.Len()).Msg("markets loaded")
	return markets, nil
}

// FetchMarkets always asks the venue and refreshes the market index.
func (s *Session) FetchMarkets(ctx context.Context) ([]core.Market, error) {
	markets, err := s.LoadMarkets(ctx, true)
	if err != nil {
		return nil, err
	}
	return markets.List(), nil
}

// FetchCurrencies lists the venue's assets and refreshes the asset cache.
func (s *Session) FetchCurrencies(ctx context.Context) ([]core.Currency, error) {
	key := currenciesKey(s.Venue().ID)
	currencies, err := call[[]core.Currency](ctx, s, core.OpFetchCurrencies, nil)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, currencies)
	return currencies, nil
}

// FetchOrderBook returns the book for symbol. WithLimit caps the levels kept per side.
func (s *Session) FetchOrderBook(ctx context.Context, symbol string, opts ...exchange.Option) (*core.OrderBook, error) {
	o := exchange.ApplyOptions(opts...)
	m, err := s.market(ctx, symbol)
	if err != nil {
		return nil, err
	}

	book, err := call[*core.OrderBook](ctx, s, core.OpFetchOrderBook,
		withParams(o, core.Params{stronghold.ParamMarketID: m.ID}))
	if err != nil {
		return nil, err
	}
	book.Symbol = m.Symbol
	if o.Limit > 0 {
		book.Bids = book.Bids[:min(o.Limit, len(book.Bids))]
		book.Asks = book.Asks[:min(o.Limit, len(book.Asks))]
	}
	return book, nil
}

// FetchTrades returns recent public trades for symbol.
func (s *Session) FetchTrades(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.Trade, error) {
	o := exchange.ApplyOptions(opts...)
	m, err := s.market(ctx, symbol)
	if err != nil {
		return nil, err
	}

	trades, err := call[[]core.Trade](ctx, s, core.OpFetchTrades,
		withParams(o, core.Params{stronghold.ParamMarketID: m.ID}))
	if err != nil {
		return nil, err
	}
	return filterBySinceLimit(trades, o, func(t core.Trade) time.Time { return t.Timestamp }), nil
}

// FetchAccounts lists the trading accounts of the credential on the current venue.
func (s *Session) FetchAccounts(ctx context.Context) ([]core.Account, error) {
	return call[[]core.Account](ctx, s, core.OpFetchAccounts, nil)
}

// FetchBalance returns the per-asset balances of the account.
func (s *Session) FetchBalance(ctx context.Context, opts ...exchange.Option) ([]core.Balance, error) {
	o := exchange.ApplyOptions(opts...)
	account, err := s.account(ctx, o)
	if err != nil {
		return nil, err
	}
	return call[[]core.Balance](ctx, s, core.OpFetchBalance,
		withParams(o, core.Params{core.PathAccountID: account}))
}

// FetchMyTrades returns the account's executions, optionally for one symbol.
func (s *Session) FetchMyTrades(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.Trade, error) {
	o := exchange.ApplyOptions(opts...)
	if err := s.ensureMarkets(ctx, symbol); err != nil {
		return nil, err
	}
	account, err := s.account(ctx, o)
	if err != nil {
		return nil, err
	}

	trades, err := call[[]core.Trade](ctx, s, core.OpFetchMyTrades,
		withParams(o, core.Params{core.PathAccountID: account}))
	if err != nil {
		return nil, err
	}
	if symbol != "" {
		trades = slices.DeleteFunc(trades, func(t core.Trade) bool { return t.Symbol != symbol })
	}
	return filterBySinceLimit(trades, o, func(t core.Trade) time.Time { return t.Timestamp }), nil
}

// FetchOpenOrders returns the account's resting orders, optionally for one symbol.
func (s *Session) FetchOpenOrders(ctx context.Context, symbol string, opts ...exchange.Option) ([]core.Order, error) {
	o := exchange.ApplyOptions(opts...)
	if err := s.ensureMarkets(ctx, symbol); err != nil {
		return nil, err
	}
	account, err := s.account(ctx, o)
	if err != nil {
		return nil, err
	}

	orders, err := call[[]core.Order](ctx, s, core.OpFetchOpenOrders,
		withParams(o, core.Params{core.PathAccountID: account}))
	if err != nil {
		return nil, err
	}
	if symbol != "" {
		orders = slices.DeleteFunc(orders, func(ord core.Order) bool { return ord.Symbol != symbol })
	}
	return filterBySinceLimit(orders, o, func(ord core.Order) time.Time { return ord.Timestamp }), nil
}

// CreateOrder places an order. Amount and price are truncated to the
// market precision before they are sent.
func (s *Session) CreateOrder(ctx context.Context, req *exchange.OrderRequest, opts ...exchange.Option) (*core.Order, error) {
	if req == nil {
		return nil, s.badRequest("order request is required", nil)
	}
	o := exchange.ApplyOptions(opts...)
	m, err := s.market(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}

	fitted := exchange.OrderRequest{Symbol: req.Symbol, Side: req.Side, Type: req.Type}
	fitted.Price.Set(&req.Price)
	fitted.Amount.Set(&req.Amount)
	if err := order.Fit(&fitted, m); err != nil {
		return nil, s.invalidOrder(err)
	}
	if err := order.Validate(&fitted); err != nil {
		return nil, s.invalidOrder(err)
	}

	account, err := s.account(ctx, o)
	if err != nil {
		return nil, err
	}

	params := core.Params{
		core.PathAccountID:       account,
		stronghold.ParamMarketID: m.ID,
		stronghold.ParamSide:     fitted.Side.String(),
		stronghold.ParamType:     fitted.Type.String(),
		stronghold.ParamSize:     order.Format(&fitted.Amount),
	}
	if fitted.Type == core.TypeLimit {
		params[stronghold.ParamPrice] = order.Format(&fitted.Price)
	}

	placed, err := call[*core.Order](ctx, s, core.OpCreateOrder, withParams(o, params))
	if err != nil {
		return nil, err
	}
	if placed.Symbol == "" {
		placed.Symbol = m.Symbol
	}
	s.logger.Info().
		Str("order_id", placed.ID).
		Str("symbol", placed.Symbol).
		Stringer("side", placed.Side).
		Str("amount", placed.Amount.Text('f')).
		Msg("order placed")
	return placed, nil
}

// CancelOrder cancels an order by id. The venue answers with little more
// than an acknowledgement, so the result carries the request's id and symbol.
func (s *Session) CancelOrder(ctx context.Context, req *exchange.CancelRequest, opts ...exchange.Option) (*core.Order, error) {
	if req == nil {
		return nil, s.badRequest("cancel request is required", nil)
	}
	if err := validate.Struct(req); err != nil {
		return nil, s.badRequest("invalid cancel request", err)
	}
	o := exchange.ApplyOptions(opts...)
	account, err := s.account(ctx, o)
	if err != nil {
		return nil, err
	}

	canceled, err := call[*core.Order](ctx, s, core.OpCancelOrder, withParams(o, core.Params{
		core.PathAccountID:      account,
		stronghold.ParamOrderID: req.OrderID,
	}))
	if err != nil {
		return nil, err
	}
	if canceled.ID == "" {
		canceled.ID = req.OrderID
	}
	if canceled.Symbol == "" {
		canceled.Symbol = req.Symbol
	}
	if m, ok := s.marketIndex(s.Venue().ID).MarketBySymbol(canceled.Symbol); ok && canceled.MarketID == "" {
		canceled.MarketID = m.ID
	}
	return canceled, nil
}

// CreateDepositAddress asks the venue for deposit instructions for code.
func (s *Session) CreateDepositAddress(ctx context.Context, code string, opts ...exchange.Option) (*core.DepositAddress, error) {
	o := exchange.ApplyOptions(opts...)
	asset, err := s.currency(ctx, code)
	if err != nil {
		return nil, err
	}
	account, err := s.account(ctx, o)
	if err != nil {
		return nil, err
	}

	addr, err := call[*core.DepositAddress](ctx, s, core.OpCreateDepositAddress, withParams(o, core.Params{
		core.PathAccountID:      account,
		stronghold.ParamAssetID: asset.ID,
	}))
	if err != nil {
		return nil, err
	}
	if addr.Currency == "" {
		addr.Currency = asset.Code
	}
	return addr, nil
}

// Withdraw requests a withdrawal. The returned transaction is pending and
// carries the requested amount and address.
func (s *Session) Withdraw(ctx context.Context, req *exchange.WithdrawRequest, opts ...exchange.Option) (*core.Transaction, error) {
	if req == nil {
		return nil, s.badRequest("withdraw request is required", nil)
	}
	if err := validate.Struct(req); err != nil {
		return nil, s.badRequest("invalid withdraw request", err)
	}
	if req.Amount.IsZero() || req.Amount.Negative {
		return nil, s.badRequest("withdraw amount must be positive", nil)
	}

	o := exchange.ApplyOptions(opts...)
	asset, err := s.currency(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	account, err := s.account(ctx, o)
	if err != nil {
		return nil, err
	}

	params := core.Params{
		core.PathAccountID:      account,
		stronghold.ParamAssetID: asset.ID,
		stronghold.ParamAmount:  order.Format(&req.Amount),
		stronghold.ParamAddress: req.Address,
	}
	if req.PaymentMethod != "" {
		params[stronghold.ParamPaymentMethod] = req.PaymentMethod
	}

	tx, err := call[*core.Transaction](ctx, s, core.OpWithdraw, withParams(o, params))
	if err != nil {
		return nil, err
	}
	tx.Currency = asset.Code
	tx.Amount.Set(&req.Amount)
	tx.Address = req.Address

	s.logger.Info().
		Str("transaction_id", tx.ID).
		Str("currency", tx.Currency).
		Str("amount", tx.Amount.Text('f')).
		Msg("withdrawal requested")
	return tx, nil
}

// FetchTransactions lists deposits and withdrawals, optionally for one currency.
func (s *Session) FetchTransactions(ctx context.Context, code string, opts ...exchange.Option) ([]core.Transaction, error) {
	o := exchange.ApplyOptions(opts...)
	account, err := s.account(ctx, o)
	if err != nil {
		return nil, err
	}

	txs, err := call[[]core.Transaction](ctx, s, core.OpFetchTransactions,
		withParams(o, core.Params{core.PathAccountID: account}))
	if err != nil {
		return nil, err
	}
	if code != "" {
		code = strings.ToUpper(code)
		txs = slices.DeleteFunc(txs, func(tx core.Transaction) bool { return tx.Currency != code })
	}
	return filterBySinceLimit(txs, o, func(tx core.Transaction) time.Time { return tx.Timestamp }), nil
}

// market resolves a canonical symbol against the loaded market index.
func (s *Session) market(ctx context.Context, symbol string) (*core.Market, error) {
	markets, err := s.LoadMarkets(ctx, false)
	if err != nil {
		return nil, err
	}
	m, ok := markets.MarketBySymbol(symbol)
	if !ok {
		e := core.NewExchangeErrorWithCode(s.Name(), core.ErrorTypeBadRequest, 0,
			string(core.ErrCodeInvalidSymbol), fmt.Sprintf("unknown symbol %q", symbol))
		e.Err = core.ErrMarketNotFound
		return nil, e
	}
	return m, nil
}

// ensureMarkets loads the market index private results are resolved
// against and checks symbol, if given, is listed.
func (s *Session) ensureMarkets(ctx context.Context, symbol string) error {
	if symbol != "" {
		_, err := s.market(ctx, symbol)
		return err
	}
	_, err := s.LoadMarkets(ctx, false)
	return err
}

// currency resolves a canonical code, or a venue asset id, to a listed asset.
func (s *Session) currency(ctx context.Context, code string) (*core.Currency, error) {
	currencies, ok := cached[[]core.Currency](s.cache, currenciesKey(s.Venue().ID))
	if !ok || !s.config.CacheEnabled {
		var err error
		if currencies, err = s.FetchCurrencies(ctx); err != nil {
			return nil, err
		}
	}

	upper := strings.ToUpper(code)
	for i := range currencies {
		if currencies[i].Code == upper || currencies[i].ID == code {
			return &currencies[i], nil
		}
	}
	return nil, core.NewExchangeErrorWithCode(s.Name(), core.ErrorTypeBadRequest, 0,
		string(core.ErrCodeUnknownCurrency), fmt.Sprintf("unknown currency %q", code))
}

// account picks the account for a private call: the per-call option, then
// the configured or previously discovered account of the current venue, then
// the first account the venue lists.
func (s *Session) account(ctx context.Context, o *exchange.Options) (string, error) {
	if o.AccountID != "" {
		return o.AccountID, nil
	}

	s.mu.RLock()
	venueID := s.active.ID
	id := s.accounts[venueID]
	s.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	accounts, err := s.FetchAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		e := core.NewExchangeErrorWithCode(s.Name(), core.ErrorTypeNotFound, 0,
			string(core.ErrCodeNoAccount), fmt.Sprintf("no trading account on venue %s", venueID))
		e.Err = core.ErrNoAccount
		return "", e
	}

	first := accounts[0]
	if first.VenueID != "" {
		venueID = first.VenueID
	}
	s.mu.Lock()
	s.accounts[venueID] = first.ID
	s.mu.Unlock()

	s.logger.Debug().Str("account_id", first.ID).Str("venue", venueID).Msg("account discovered")
	return first.ID, nil
}

func (s *Session) badRequest(msg string, err error) error {
	e := core.NewExchangeError(s.Name(), core.ErrorTypeBadRequest, 0, msg)
	e.Err = err
	return e
}

func (s *Session) invalidOrder(err error) error {
	e := core.NewExchangeError(s.Name(), core.ErrorTypeInvalidOrder, 0, "invalid order")
	e.Err = err
	return e
}

// withParams merges the caller's extra venue params under the operation's own.
func withParams(o *exchange.Options, params core.Params) core.Params {
	if len(o.Params) == 0 {
		return params
	}
	merged := make(core.Params, len(o.Params)+len(params))
	maps.Copy(merged, o.Params)
	maps.Copy(merged, params)
	return merged
}

// filterBySinceLimit orders items by time and keeps those inside the
// option's range. With a start time the earliest Limit items are kept,
// otherwise the latest.
func filterBySinceLimit[T any](items []T, o *exchange.Options, ts func(T) time.Time) []T {
	slices.SortStableFunc(items, func(a, b T) int {
		return ts(a).Compare(ts(b))
	})
	items = slices.DeleteFunc(items, func(item T) bool {
		return !o.InRange(ts(item))
	})
	if o.Limit <= 0 || len(items) <= o.Limit {
		return items
	}
	if o.StartTime.IsZero() {
		return items[len(items)-o.Limit:]
	}
	return items[:o.Limit]
}
