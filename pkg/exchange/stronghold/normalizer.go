package stronghold

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"strongbridge/pkg/core"
)

// CurrencyCodeFunc canonicalizes a venue currency token such as "XLM".
type CurrencyCodeFunc func(token string) string

var currencyAliases = map[string]string{
	"XBT": "BTC",
}

// DefaultCurrencyCode upper-cases token and applies common aliases.
func DefaultCurrencyCode(token string) string {
	code := strings.ToUpper(strings.TrimSpace(token))
	if alias, ok := currencyAliases[code]; ok {
		return alias
	}
	return code
}

// Normalizer converts Stronghold payloads to canonical core records.
type Normalizer struct {
	currencyCode CurrencyCodeFunc
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithCurrencyCode replaces the currency canonicalization function.
func WithCurrencyCode(fn CurrencyCodeFunc) NormalizerOption {
	return func(n *Normalizer) {
		if fn != nil {
			n.currencyCode = fn
		}
	}
}

// NewNormalizer creates a new Normalizer instance.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{currencyCode: DefaultCurrencyCode}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Code returns the canonical code for a venue asset id. Asset ids look like
// "XLM/stellar.org"; only the segment before the first "/" names the currency.
func (n *Normalizer) Code(assetID string) string {
	token, _, _ := strings.Cut(assetID, "/")
	return n.currencyCode(token)
}

// NormalizeMarket converts a market listing entry. Only the minimum amount
// is filled in Limits; every other bound stays nil.
func (n *Normalizer) NormalizeMarket(data *RawMarket) (*core.Market, error) {
	base := n.Code(data.BaseAssetID)
	quote := n.Code(data.CounterAssetID)

	market := &core.Market{
		Symbol:  base + "/" + quote,
		ID:      data.ID,
		Base:    base,
		Quote:   quote,
		BaseID:  data.BaseAssetID,
		QuoteID: data.CounterAssetID,
		Info:    data.Raw,
	}

	var err error
	if market.Precision.Amount, err = parsePrecision("displayDecimalsAmount", data.DisplayDecimalsAmount); err != nil {
		return nil, err
	}
	if market.Precision.Price, err = parsePrecision("displayDecimalsPrice", data.DisplayDecimalsPrice); err != nil {
		return nil, err
	}
	if market.Limits.Amount.Min, err = parseOptionalDecimal("minimumOrderSize", data.MinimumOrderSize); err != nil {
		return nil, err
	}

	return market, nil
}

// NormalizeMarkets converts a market listing.
func (n *Normalizer) NormalizeMarkets(data []RawMarket) ([]core.Market, error) {
	markets := make([]core.Market, 0, len(data))
	for i := range data {
		m, err := n.NormalizeMarket(&data[i])
		if err != nil {
			return nil, err
		}
		markets = append(markets, *m)
	}
	return markets, nil
}

// NormalizeCurrency converts an asset listing entry.
func (n *Normalizer) NormalizeCurrency(data *RawAsset) (*core.Currency, error) {
	precision, err := parsePrecision("displayDecimalsFull", data.DisplayDecimalsFull)
	if err != nil {
		return nil, err
	}
	return &core.Currency{
		Code:      n.Code(data.ID),
		ID:        data.ID,
		Precision: precision,
		Info:      data.Raw,
	}, nil
}

// NormalizeCurrencies converts an asset listing.
func (n *Normalizer) NormalizeCurrencies(data []RawAsset) ([]core.Currency, error) {
	currencies := make([]core.Currency, 0, len(data))
	for i := range data {
		c, err := n.NormalizeCurrency(&data[i])
		if err != nil {
			return nil, err
		}
		currencies = append(currencies, *c)
	}
	return currencies, nil
}

// NormalizeOrderBook converts an order book result. The timestamp comes
// from the envelope. Levels keep the venue's order.
func (n *Normalizer) NormalizeOrderBook(data *RawOrderBook, timestamp time.Time, symbol string) (*core.OrderBook, error) {
	bids, err := n.normalizeLevels("bids", data.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := n.normalizeLevels("asks", data.Asks)
	if err != nil {
		return nil, err
	}

	return &core.OrderBook{
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: timestamp,
		Info:      data,
	}, nil
}

func (n *Normalizer) normalizeLevels(field string, levels [][]Number) ([]core.OrderBookLevel, error) {
	result := make([]core.OrderBookLevel, 0, len(levels))
	for i, level := range levels {
		if len(level) < 2 {
			return nil, core.NewParseError(Name, fmt.Sprintf("%s[%d]", field, i), fmt.Sprint(level),
				fmt.Errorf("expected [price, size], got %d elements", len(level)))
		}

		var l core.OrderBookLevel
		if err := parseNonNegative(&l.Price, field+".price", level[0]); err != nil {
			return nil, err
		}
		if err := parseNonNegative(&l.Quantity, field+".size", level[1]); err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, nil
}

// NormalizeTrade converts either trade shape. markets resolves the market id
// of object trades; market, if given, is the market the trades were requested
// for and supplies the symbol when the payload does not.
func (n *Normalizer) NormalizeTrade(data *RawTrade, markets core.MarketIndex, market *core.Market) (*core.Trade, error) {
	var (
		trade *core.Trade
		err   error
	)
	switch data.Shape {
	case ShapeTuple:
		trade, err = n.normalizeTupleTrade(data.Tuple)
	case ShapeObject:
		if data.Object == nil {
			return nil, core.NewParseError(Name, "trade", "", fmt.Errorf("object shape without payload"))
		}
		trade, err = n.normalizeObjectTrade(data.Object, markets)
	default:
		return nil, core.NewParseError(Name, "trade", string(data.Raw), fmt.Errorf("unknown trade shape"))
	}
	if err != nil {
		return nil, err
	}

	if trade.Symbol == "" && market != nil {
		trade.Symbol = market.Symbol
	}
	if len(data.Raw) > 0 {
		trade.Info = data.Raw
	} else {
		trade.Info = data
	}
	return trade, nil
}

func (n *Normalizer) normalizeTupleTrade(t TupleTrade) (*core.Trade, error) {
	if len(t) != 4 {
		return nil, core.NewParseError(Name, "trade", fmt.Sprint([]Number(t)),
			fmt.Errorf("expected [price, amount, side, timestamp], got %d elements", len(t)))
	}

	trade := &core.Trade{Side: core.ParseSide(string(t[2]))}
	if err := parseNonNegative(&trade.Price, "trade.price", t[0]); err != nil {
		return nil, err
	}
	if err := parseNonNegative(&trade.Amount, "trade.amount", t[1]); err != nil {
		return nil, err
	}

	ts, err := parseTime("trade.timestamp", string(t[3]))
	if err != nil {
		return nil, err
	}
	trade.Timestamp = ts

	return trade, nil
}

func (n *Normalizer) normalizeObjectTrade(o *ObjectTrade, markets core.MarketIndex) (*core.Trade, error) {
	trade := &core.Trade{
		ID:           o.ID,
		OrderID:      o.OrderID,
		Side:         core.ParseSide(o.Side),
		TakerOrMaker: core.LiquidityTaker,
	}
	if o.Maker {
		trade.TakerOrMaker = core.LiquidityMaker
	}
	if markets != nil {
		if m, ok := markets.MarketByID(o.MarketID); ok {
			trade.Symbol = m.Symbol
		}
	}

	if err := parseNonNegative(&trade.Price, "trade.price", o.Price); err != nil {
		return nil, err
	}
	if err := parseNonNegative(&trade.Amount, "trade.size", o.Size); err != nil {
		return nil, err
	}

	ts, err := parseTime("trade.executedAt", o.ExecutedAt)
	if err != nil {
		return nil, err
	}
	trade.Timestamp = ts

	return trade, nil
}

// NormalizeTrades converts a list of trades of either shape.
func (n *Normalizer) NormalizeTrades(data []RawTrade, markets core.MarketIndex, market *core.Market) ([]core.Trade, error) {
	trades := make([]core.Trade, 0, len(data))
	for i := range data {
		t, err := n.NormalizeTrade(&data[i], markets, market)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, nil
}

// NormalizeOrder converts an order. Size and sizeFilled are required;
// Remaining is derived and never clamped.
func (n *Normalizer) NormalizeOrder(data *RawOrder, markets core.MarketIndex) (*core.Order, error) {
	order := &core.Order{
		ID:       data.ID,
		MarketID: data.marketID(),
		Side:     core.ParseSide(data.Side),
		Info:     data.Raw,
	}
	if markets != nil {
		if m, ok := markets.MarketByID(order.MarketID); ok {
			order.Symbol = m.Symbol
		}
	}

	var amount, filled apd.Decimal
	if err := parseNonNegative(&amount, "order.size", data.Size); err != nil {
		return nil, err
	}
	if err := parseNonNegative(&filled, "order.sizeFilled", data.SizeFilled); err != nil {
		return nil, err
	}
	if err := order.SetQuantities(&amount, &filled); err != nil {
		return nil, core.NewParseError(Name, "order.remaining", data.Size.String(), err)
	}

	if data.Price != "" {
		if err := parseNonNegative(&order.Price, "order.price", data.Price); err != nil {
			return nil, err
		}
	}

	placed, err := parseOptionalTime("order.placedAt", data.PlacedAt)
	if err != nil {
		return nil, err
	}
	order.Timestamp = placed

	return order, nil
}

// NormalizeOrders converts a list of orders.
func (n *Normalizer) NormalizeOrders(data []RawOrder, markets core.MarketIndex) ([]core.Order, error) {
	orders := make([]core.Order, 0, len(data))
	for i := range data {
		o, err := n.NormalizeOrder(&data[i], markets)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// NormalizeBalance converts one asset entry. Absent amounts count as zero.
// Free is Total - Available, where Available is the venue's
// availableForTrade figure.
func (n *Normalizer) NormalizeBalance(data *RawBalance) (*core.Balance, error) {
	b := &core.Balance{Asset: n.Code(data.AssetID)}
	if err := parseDefaultZero(&b.Total, "balance.amount", data.Amount); err != nil {
		return nil, err
	}
	if err := parseDefaultZero(&b.Available, "balance.availableForTrade", data.AvailableForTrade); err != nil {
		return nil, err
	}
	if _, err := apd.BaseContext.Sub(&b.Free, &b.Total, &b.Available); err != nil {
		return nil, core.NewParseError(Name, "balance.free", data.AssetID, err)
	}
	return b, nil
}

// NormalizeBalances converts the balances of an account.
func (n *Normalizer) NormalizeBalances(account *RawAccount) ([]core.Balance, error) {
	balances := make([]core.Balance, 0, len(account.Balances))
	for i := range account.Balances {
		b, err := n.NormalizeBalance(&account.Balances[i])
		if err != nil {
			return nil, err
		}
		balances = append(balances, *b)
	}
	return balances, nil
}

// NormalizeAccounts converts the account list.
func (n *Normalizer) NormalizeAccounts(data []RawAccount) []core.Account {
	accounts := make([]core.Account, 0, len(data))
	for _, a := range data {
		accounts = append(accounts, core.Account{ID: a.ID, VenueID: a.VenueID, Info: a.Raw})
	}
	return accounts
}

// NormalizeDepositAddress converts deposit instructions. The reference, when
// present, is the memo or tag the deposit must carry.
func (n *Normalizer) NormalizeDepositAddress(data *RawDeposit, raw []byte) *core.DepositAddress {
	addr := &core.DepositAddress{
		Address:       data.PaymentMethodInstructions.DepositAddress,
		Tag:           data.PaymentMethodInstructions.Reference,
		PaymentMethod: data.PaymentMethod,
		Info:          raw,
	}
	if data.AssetID != "" {
		addr.Currency = n.Code(data.AssetID)
	}
	return addr
}

var transactionStatuses = map[string]core.TransactionStatus{
	"queued":    core.TxStatusPending,
	"pending":   core.TxStatusPending,
	"settling":  core.TxStatusPending,
	"complete":  core.TxStatusOK,
	"completed": core.TxStatusOK,
	"settled":   core.TxStatusOK,
	"failed":    core.TxStatusFailed,
	"rejected":  core.TxStatusFailed,
	"cancelled": core.TxStatusCanceled,
	"canceled":  core.TxStatusCanceled,
}

// NormalizeTransaction converts a deposit or withdrawal. Unknown statuses are
// kept verbatim.
func (n *Normalizer) NormalizeTransaction(data *RawTransaction) (*core.Transaction, error) {
	tx := &core.Transaction{
		ID:       data.ID,
		Currency: n.Code(data.AssetID),
		Status:   core.TransactionStatus(strings.ToLower(data.Status)),
		Info:     data.Raw,
	}
	if s, ok := transactionStatuses[strings.ToLower(data.Status)]; ok {
		tx.Status = s
	}

	switch strings.ToLower(data.Direction) {
	case "outgoing", "withdrawal":
		tx.Type = core.TxTypeWithdrawal
		tx.Address = data.PaymentMethodDetails.WithdrawalAddress
	default:
		tx.Type = core.TxTypeDeposit
		tx.Address = data.PaymentMethodDetails.DepositAddress
	}

	if err := parseDefaultZero(&tx.Amount, "transaction.amount", data.Amount); err != nil {
		return nil, err
	}

	var err error
	if tx.Timestamp, err = parseOptionalTime("transaction.requestedAt", data.RequestedAt); err != nil {
		return nil, err
	}
	if tx.Updated, err = parseOptionalTime("transaction.updatedAt", data.UpdatedAt); err != nil {
		return nil, err
	}
	return tx, nil
}

// NormalizeTransactions converts a transaction list.
func (n *Normalizer) NormalizeTransactions(data []RawTransaction) ([]core.Transaction, error) {
	txs := make([]core.Transaction, 0, len(data))
	for i := range data {
		tx, err := n.NormalizeTransaction(&data[i])
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, nil
}

func parseError(field, value string, err error) *core.ExchangeError {
	return core.NewParseError(Name, field, value, err)
}

func parseDecimal(dest *apd.Decimal, field string, v Number) error {
	if _, _, err := apd.BaseContext.SetString(dest, string(v)); err != nil {
		return parseError(field, string(v), err)
	}
	if dest.Form != apd.Finite {
		return parseError(field, string(v), fmt.Errorf("not a finite number"))
	}
	return nil
}

// parseNonNegative requires a present, finite, non-negative decimal.
func parseNonNegative(dest *apd.Decimal, field string, v Number) error {
	if v == "" {
		return parseError(field, "", fmt.Errorf("missing value"))
	}
	if err := parseDecimal(dest, field, v); err != nil {
		return err
	}
	if dest.Negative && !dest.IsZero() {
		return parseError(field, string(v), fmt.Errorf("negative value"))
	}
	return nil
}

// parseDefaultZero treats an absent value as zero.
func parseDefaultZero(dest *apd.Decimal, field string, v Number) error {
	if v == "" {
		dest.SetInt64(0)
		return nil
	}
	return parseDecimal(dest, field, v)
}

func parseOptionalDecimal(field string, v Number) (*apd.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d := new(apd.Decimal)
	if err := parseNonNegative(d, field, v); err != nil {
		return nil, err
	}
	return d, nil
}

// parsePrecision reads a decimal-digit count. Absent means unspecified.
func parsePrecision(field string, v Number) (*int, error) {
	if v == "" {
		return nil, nil
	}
	digits, err := strconv.Atoi(string(v))
	if err != nil {
		return nil, parseError(field, string(v), err)
	}
	if digits < 0 {
		return nil, parseError(field, string(v), fmt.Errorf("negative precision"))
	}
	return &digits, nil
}

func parseTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, parseError(field, "", fmt.Errorf("missing value"))
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, parseError(field, s, err)
	}
	return t, nil
}

func parseOptionalTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseTime(field, s)
}
