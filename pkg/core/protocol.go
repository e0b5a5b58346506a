package core

import (
	"context"
)

// RateLimitConfig defines rate limiting parameters for an exchange protocol.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum general requests per second.
	RequestsPerSecond float64 `json:"requests_per_second"`
	// Burst allows temporary exceeding of rate limits.
	Burst int `json:"burst"`
}

// MarketIndex resolves venue market ids and canonical symbols to markets.
type MarketIndex interface {
	MarketByID(id string) (*Market, bool)
	MarketBySymbol(symbol string) (*Market, bool)
}

// Markets is a MarketIndex backed by a slice of markets.
type Markets struct {
	byID     map[string]*Market
	bySymbol map[string]*Market
	list     []Market
}

// NewMarkets indexes the given markets by id and symbol.
func NewMarkets(markets []Market) *Markets {
	m := &Markets{
		byID:     make(map[string]*Market, len(markets)),
		bySymbol: make(map[string]*Market, len(markets)),
		list:     markets,
	}
	for i := range m.list {
		mk := &m.list[i]
		m.byID[mk.ID] = mk
		m.bySymbol[mk.Symbol] = mk
	}
	return m
}

// MarketByID implements MarketIndex.
func (m *Markets) MarketByID(id string) (*Market, bool) {
	if m == nil {
		return nil, false
	}
	mk, ok := m.byID[id]
	return mk, ok
}

// MarketBySymbol implements MarketIndex.
func (m *Markets) MarketBySymbol(symbol string) (*Market, bool) {
	if m == nil {
		return nil, false
	}
	mk, ok := m.bySymbol[symbol]
	return mk, ok
}

// List returns the indexed markets in load order.
func (m *Markets) List() []Market {
	if m == nil {
		return nil
	}
	return m.list
}

// Len returns the number of indexed markets.
func (m *Markets) Len() int {
	if m == nil {
		return 0
	}
	return len(m.list)
}

// Protocol defines the interface for exchange-specific protocol implementations.
// Each exchange must implement this interface to handle request building,
// signing, response classification and normalization.
type Protocol interface {
	// Name returns the exchange identifier (e.g., "stronghold").
	Name() string

	// Version returns the API version being used.
	Version() string

	// Venue returns the default venue for the given environment.
	Venue(sandbox bool) Venue

	// BuildRequest constructs a templated request for the specified operation.
	// The params map contains operation-specific parameters, including the
	// venue and account identifiers injected by the caller.
	BuildRequest(ctx context.Context, op Operation, params Params) (*Request, error)

	// PrepareRequest fills the path template, serializes the remaining
	// parameters and, for private requests, signs with creds and nonce.
	PrepareRequest(req *Request, creds *Credentials, nonce int64) (*SignedRequest, error)

	// ParseResponse classifies the raw response and normalizes its result.
	// markets resolves market ids for trades and orders; it may be nil.
	ParseResponse(op Operation, statusCode int, body []byte, markets MarketIndex) (any, error)

	// SupportedOperations returns the list of operations this protocol supports.
	SupportedOperations() []Operation

	// RateLimits returns the rate limiting configuration for this exchange.
	RateLimits() RateLimitConfig
}
