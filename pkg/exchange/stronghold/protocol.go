package stronghold

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"strongbridge/pkg/core"
)

const (
	// Name is the exchange identifier.
	Name = "stronghold"

	ProductionURL = "https://api.stronghold.co"
	SandboxURL    = "https://api.sandbox.stronghold.co"

	LiveVenueID    = "trade-public"
	SandboxVenueID = "sandbox-public"
)

// Request parameter names shared with the session.
const (
	ParamVenueID       = core.PathVenueID
	ParamAccountID     = core.PathAccountID
	ParamMarketID      = "marketId"
	ParamOrderID       = "orderId"
	ParamAssetID       = "assetId"
	ParamSide          = "side"
	ParamType          = "type"
	ParamSize          = "size"
	ParamPrice         = "price"
	ParamAmount        = "amount"
	ParamAddress       = "address"
	ParamPaymentMethod = "paymentMethod"
)

// paymentMethods maps currency codes to the rails Stronghold moves them on.
var paymentMethods = map[string]string{
	"ETH": "ethereum",
	"BTC": "bitcoin",
	"XLM": "stellar",
	"XRP": "ripple",
	"LTC": "litecoin",
	"SHX": "stellar",
}

// PaymentMethod returns the payment method for a canonical currency code.
func PaymentMethod(code string) (string, bool) {
	m, ok := paymentMethods[strings.ToUpper(code)]
	return m, ok
}

// Protocol implements the core.Protocol interface for Stronghold.
type Protocol struct {
	signer     *Signer
	normalizer *Normalizer
}

// NewProtocol creates a new Stronghold protocol instance.
func NewProtocol(opts ...NormalizerOption) *Protocol {
	return &Protocol{
		signer:     NewSigner(),
		normalizer: NewNormalizer(opts...),
	}
}

// Normalizer returns the normalizer used to parse responses.
func (p *Protocol) Normalizer() *Normalizer {
	return p.normalizer
}

// Name returns the protocol identifier "stronghold".
func (p *Protocol) Name() string {
	return Name
}

// Version returns the API version path segment.
func (p *Protocol) Version() string {
	return "v1"
}

// Venue returns the default live or sandbox venue.
func (p *Protocol) Venue(sandbox bool) core.Venue {
	if sandbox {
		return core.Venue{ID: SandboxVenueID, BaseURL: SandboxURL, Sandbox: true}
	}
	return core.Venue{ID: LiveVenueID, BaseURL: ProductionURL}
}

// SupportedOperations returns the list of operations supported by this protocol.
func (p *Protocol) SupportedOperations() []core.Operation {
	return []core.Operation{
		core.OpFetchTime,
		core.OpFetchMarkets,
		core.OpFetchCurrencies,
		core.OpFetchOrderBook,
		core.OpFetchTrades,
		core.OpFetchMyTrades,
		core.OpFetchAccounts,
		core.OpFetchBalance,
		core.OpFetchOpenOrders,
		core.OpCreateOrder,
		core.OpCancelOrder,
		core.OpCreateDepositAddress,
		core.OpWithdraw,
		core.OpFetchTransactions,
	}
}

// RateLimits returns one request per second.
func (p *Protocol) RateLimits() core.RateLimitConfig {
	return core.RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             1,
	}
}

type route struct {
	method string
	path   string
}

var routes = map[core.Operation]route{
	core.OpFetchTime:            {http.MethodGet, "/utcTimestamp"},
	core.OpFetchMarkets:         {http.MethodGet, "/venues/{venueId}/markets"},
	core.OpFetchCurrencies:      {http.MethodGet, "/venues/{venueId}/assets"},
	core.OpFetchOrderBook:       {http.MethodGet, "/venues/{venueId}/markets/{marketId}/orderbook"},
	core.OpFetchTrades:          {http.MethodGet, "/venues/{venueId}/markets/{marketId}/trades"},
	core.OpFetchAccounts:        {http.MethodGet, "/venues/{venueId}/accounts"},
	core.OpFetchBalance:         {http.MethodGet, "/venues/{venueId}/accounts/{accountId}"},
	core.OpFetchMyTrades:        {http.MethodGet, "/venues/{venueId}/accounts/{accountId}/trades"},
	core.OpFetchOpenOrders:      {http.MethodGet, "/venues/{venueId}/accounts/{accountId}/orders"},
	core.OpCreateOrder:          {http.MethodPost, "/venues/{venueId}/accounts/{accountId}/orders"},
	core.OpCancelOrder:          {http.MethodDelete, "/venues/{venueId}/accounts/{accountId}/orders/{orderId}"},
	core.OpCreateDepositAddress: {http.MethodPost, "/venues/{venueId}/accounts/{accountId}/deposit"},
	core.OpWithdraw:             {http.MethodPost, "/venues/{venueId}/accounts/{accountId}/withdrawal"},
	core.OpFetchTransactions:    {http.MethodGet, "/venues/{venueId}/accounts/{accountId}/transactions"},
}

// BuildRequest constructs the templated request for op. Path placeholders
// are filled from params by PrepareRequest; params not consumed by the path
// become the query (GET) or the JSON body (other methods).
func (p *Protocol) BuildRequest(ctx context.Context, op core.Operation, params core.Params) (*core.Request, error) {
	r, ok := routes[op]
	if !ok {
		return nil, core.NewExchangeErrorWithCode(Name, core.ErrorTypeBadRequest, 0,
			string(core.ErrCodeUnsupported), fmt.Sprintf("unsupported operation: %s", op))
	}

	req := core.NewRequest(r.method, r.path).SetRequireAuth(op.IsPrivate())

	switch op {
	case core.OpCreateOrder:
		return p.buildCreateOrderRequest(req, params)
	case core.OpCreateDepositAddress:
		return p.buildDepositRequest(req, params)
	case core.OpWithdraw:
		return p.buildWithdrawRequest(req, params)
	}

	return req.SetQueryParams(params), nil
}

func (p *Protocol) buildCreateOrderRequest(req *core.Request, params core.Params) (*core.Request, error) {
	if err := requireParams(params, ParamMarketID, ParamSide, ParamSize); err != nil {
		return nil, err
	}

	orderType := "limit"
	if t, ok := params[ParamType]; ok {
		orderType = fmt.Sprint(t)
	}
	if orderType == "limit" {
		if err := requireParams(params, ParamPrice); err != nil {
			return nil, err
		}
	}

	req.SetQuery(ParamVenueID, params[ParamVenueID]).
		SetQuery(ParamAccountID, params[ParamAccountID]).
		SetQuery("marketID", params[ParamMarketID]).
		SetQuery(ParamType, orderType).
		SetQuery(ParamSide, params[ParamSide]).
		SetQuery(ParamSize, params[ParamSize])
	if price, ok := params[ParamPrice]; ok && orderType == "limit" {
		req.SetQuery(ParamPrice, price)
	}
	return req, nil
}

func (p *Protocol) buildDepositRequest(req *core.Request, params core.Params) (*core.Request, error) {
	if err := requireParams(params, ParamAssetID); err != nil {
		return nil, err
	}
	method, err := p.paymentMethod(params)
	if err != nil {
		return nil, err
	}

	req.SetQuery(ParamVenueID, params[ParamVenueID]).
		SetQuery(ParamAccountID, params[ParamAccountID]).
		SetQuery(ParamAssetID, params[ParamAssetID]).
		SetQuery(ParamPaymentMethod, method)
	return req, nil
}

func (p *Protocol) buildWithdrawRequest(req *core.Request, params core.Params) (*core.Request, error) {
	if err := requireParams(params, ParamAssetID, ParamAmount, ParamAddress); err != nil {
		return nil, err
	}
	method, err := p.paymentMethod(params)
	if err != nil {
		return nil, err
	}

	req.SetQuery(ParamVenueID, params[ParamVenueID]).
		SetQuery(ParamAccountID, params[ParamAccountID]).
		SetQuery(ParamAssetID, params[ParamAssetID]).
		SetQuery(ParamAmount, params[ParamAmount]).
		SetQuery(ParamPaymentMethod, method).
		SetQuery("paymentMethodDetails", map[string]any{
			"withdrawal_address": params[ParamAddress],
		})
	return req, nil
}

func (p *Protocol) paymentMethod(params core.Params) (string, error) {
	if m, ok := params[ParamPaymentMethod]; ok && fmt.Sprint(m) != "" {
		return fmt.Sprint(m), nil
	}
	code := p.normalizer.Code(fmt.Sprint(params[ParamAssetID]))
	method, ok := PaymentMethod(code)
	if !ok {
		return "", core.NewExchangeErrorWithCode(Name, core.ErrorTypeBadRequest, 0,
			string(core.ErrCodeUnsupported), fmt.Sprintf("no payment method for %s", code))
	}
	return method, nil
}

func requireParams(params core.Params, names ...string) error {
	for _, name := range names {
		v, ok := params[name]
		if !ok || v == nil || fmt.Sprint(v) == "" {
			return core.NewExchangeError(Name, core.ErrorTypeBadRequest, 0,
				fmt.Sprintf("missing required parameter: %s", name))
		}
	}
	return nil
}

// PrepareRequest fills the path template and prefixes the API version.
// Public requests send leftover params in the URL. Private GETs with
// leftover params do the same; every other private request sends them as a
// JSON object with sorted keys, "{}" when none are left, and signs that body.
func (p *Protocol) PrepareRequest(req *core.Request, creds *core.Credentials, nonce int64) (*core.SignedRequest, error) {
	path, rest, err := req.Implode()
	if err != nil {
		e := core.NewExchangeError(Name, core.ErrorTypeBadRequest, 0, "build path")
		e.Err = err
		return nil, e
	}
	path = "/" + p.Version() + path

	var (
		query url.Values
		body  []byte
	)
	if !req.RequireAuth || (req.Method == http.MethodGet && len(rest) > 0) {
		query = encodeQuery(rest)
	} else {
		body, err = sonic.ConfigStd.Marshal(map[string]any(rest))
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	}

	var signed *core.SignedRequest
	if req.RequireAuth {
		signed, err = p.signer.Sign(req.Method, path, body, creds, nonce)
		if err != nil {
			return nil, err
		}
	} else {
		signed = &core.SignedRequest{
			Method:  req.Method,
			Path:    path,
			Body:    body,
			Headers: map[string]string{"Content-Type": "application/json"},
		}
	}

	signed.Query = query
	for k, v := range req.Headers {
		if _, ok := signed.Headers[k]; !ok {
			signed.Headers[k] = v
		}
	}
	return signed, nil
}

func encodeQuery(params core.Params) url.Values {
	if len(params) == 0 {
		return nil
	}
	q := make(url.Values, len(params))
	for k, v := range params {
		q.Set(k, fmt.Sprint(v))
	}
	return q
}

// ParseResponse decodes the envelope, classifies it and normalizes the result.
func (p *Protocol) ParseResponse(op core.Operation, statusCode int, body []byte, markets core.MarketIndex) (any, error) {
	env, err := DecodeEnvelope(body)
	if err != nil {
		return nil, undecodable(statusCode, body, err)
	}
	if err := Classify(env); err != nil {
		var e *core.ExchangeError
		if errors.As(err, &e) && e.StatusCode == 0 {
			e.StatusCode = statusCode
		}
		return nil, err
	}

	n := p.normalizer
	switch op {
	case core.OpFetchTime:
		return p.parseTime(env)

	case core.OpFetchMarkets:
		data, err := decodeItems[RawMarket]("markets", env.Result)
		if err != nil {
			return nil, err
		}
		return n.NormalizeMarkets(data)

	case core.OpFetchCurrencies:
		data, err := decodeItems[RawAsset]("assets", env.Result)
		if err != nil {
			return nil, err
		}
		return n.NormalizeCurrencies(data)

	case core.OpFetchOrderBook:
		var data RawOrderBook
		if err := sonic.Unmarshal(env.Result, &data); err != nil {
			return nil, parseError("orderbook", string(env.Result), err)
		}
		ts, err := env.Time()
		if err != nil {
			return nil, err
		}
		symbol := data.MarketID
		if m, ok := lookup(markets, data.MarketID); ok {
			symbol = m.Symbol
		}
		return n.NormalizeOrderBook(&data, ts, symbol)

	case core.OpFetchTrades, core.OpFetchMyTrades:
		var data RawTrades
		if err := sonic.Unmarshal(env.Result, &data); err != nil {
			return nil, parseError("trades", string(env.Result), err)
		}
		market, _ := lookup(markets, data.MarketID)
		return n.NormalizeTrades(data.Trades, markets, market)

	case core.OpFetchAccounts:
		data, err := decodeItems[RawAccount]("accounts", env.Result)
		if err != nil {
			return nil, err
		}
		return n.NormalizeAccounts(data), nil

	case core.OpFetchBalance:
		data, err := decodeItem[RawAccount]("account", env.Result)
		if err != nil {
			return nil, err
		}
		return n.NormalizeBalances(data)

	case core.OpFetchOpenOrders:
		data, err := decodeItems[RawOrder]("orders", env.Result)
		if err != nil {
			return nil, err
		}
		return n.NormalizeOrders(data, markets)

	case core.OpCreateOrder:
		data, err := decodeItem[RawOrder]("order", env.Result)
		if err != nil {
			return nil, err
		}
		return n.NormalizeOrder(data, markets)

	case core.OpCancelOrder:
		var data struct {
			ID string `json:"id"`
		}
		if len(env.Result) > 0 && env.Result[0] == '{' {
			if err := sonic.Unmarshal(env.Result, &data); err != nil {
				return nil, parseError("order", string(env.Result), err)
			}
		}
		return &core.Order{ID: data.ID, Info: env.Raw}, nil

	case core.OpCreateDepositAddress:
		var data RawDeposit
		if err := sonic.Unmarshal(env.Result, &data); err != nil {
			return nil, parseError("deposit", string(env.Result), err)
		}
		return n.NormalizeDepositAddress(&data, env.Raw), nil

	case core.OpWithdraw:
		var data struct {
			ID string `json:"id"`
		}
		if err := sonic.Unmarshal(env.Result, &data); err != nil {
			return nil, parseError("withdrawal", string(env.Result), err)
		}
		return &core.Transaction{
			ID:     data.ID,
			Type:   core.TxTypeWithdrawal,
			Status: core.TxStatusPending,
			Info:   env.Raw,
		}, nil

	case core.OpFetchTransactions:
		data, err := decodeItems[RawTransaction]("transactions", env.Result)
		if err != nil {
			return nil, err
		}
		return n.NormalizeTransactions(data)

	default:
		return nil, core.NewExchangeErrorWithCode(Name, core.ErrorTypeBadRequest, 0,
			string(core.ErrCodeUnsupported), fmt.Sprintf("unsupported operation: %s", op))
	}
}

// parseTime reads the venue clock. The result is either a timestamp string
// or an object carrying one; the envelope timestamp is the fallback.
func (p *Protocol) parseTime(env *Envelope) (time.Time, error) {
	var s string
	if len(env.Result) > 0 {
		switch env.Result[0] {
		case '"':
			_ = sonic.Unmarshal(env.Result, &s)
		case '{':
			var obj struct {
				Timestamp string `json:"timestamp"`
			}
			_ = sonic.Unmarshal(env.Result, &obj)
			s = obj.Timestamp
		}
	}
	if s == "" {
		s = env.Timestamp
	}
	return parseTime("utcTimestamp", s)
}

func lookup(markets core.MarketIndex, id string) (*core.Market, bool) {
	if markets == nil || id == "" {
		return nil, false
	}
	return markets.MarketByID(id)
}
