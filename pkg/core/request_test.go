package core

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req := NewRequest("GET", "/venues/{venueId}/markets")

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/venues/{venueId}/markets", req.Path)
	assert.NotNil(t, req.Query)
	assert.NotNil(t, req.Headers)
	assert.Equal(t, 1, req.Weight)
	assert.False(t, req.RequireAuth)
}

func TestRequest_Setters(t *testing.T) {
	req := NewRequest("POST", "/x")

	assert.Equal(t, req, req.SetQuery("a", 1))
	assert.Equal(t, req, req.SetHeader("X-Custom", "value"))
	assert.Equal(t, req, req.SetWeight(5))
	assert.Equal(t, req, req.SetRequireAuth(true))
	assert.Equal(t, req, req.SetQueryParams(Params{"b": "2"}))

	assert.Equal(t, 1, req.Query["a"])
	assert.Equal(t, "2", req.Query["b"])
	assert.Equal(t, "value", req.Headers["X-Custom"])
	assert.Equal(t, 5, req.Weight)
	assert.True(t, req.RequireAuth)
}

func TestRequest_Implode(t *testing.T) {
	req := NewRequest("GET", "/venues/{venueId}/markets/{marketId}/trades")
	req.SetQuery("venueId", "trade-public")
	req.SetQuery("marketId", "XLMUSD")
	req.SetQuery("limit", 10)

	path, rest, err := req.Implode()
	require.NoError(t, err)

	assert.Equal(t, "/venues/trade-public/markets/XLMUSD/trades", path)
	assert.Equal(t, Params{"limit": 10}, rest)
	// the request itself is not modified
	assert.Len(t, req.Query, 3)
}

func TestRequest_Implode_EscapesValues(t *testing.T) {
	tests := []struct {
		name    string
		orderID string
		want    string
	}{
		{"slash", "o1/../x", "/accounts/acc/orders/o1%2F..%2Fx"},
		{"query", "o1?all=1", "/accounts/acc/orders/o1%3Fall=1"},
		{"fragment", "o1#x", "/accounts/acc/orders/o1%23x"},
		{"space", "o 1", "/accounts/acc/orders/o%201"},
		{"plain", "ord-123_A", "/accounts/acc/orders/ord-123_A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest("DELETE", "/accounts/{accountId}/orders/{orderId}").
				SetQueryParams(Params{"accountId": "acc", "orderId": tt.orderID})
			path, rest, err := req.Implode()
			require.NoError(t, err)
			assert.Equal(t, tt.want, path)
			assert.Empty(t, rest)
		})
	}
}

func TestRequest_Implode_NoPlaceholders(t *testing.T) {
	req := NewRequest("GET", "/utcTimestamp")

	path, rest, err := req.Implode()
	require.NoError(t, err)
	assert.Equal(t, "/utcTimestamp", path)
	assert.Empty(t, rest)
}

func TestRequest_Implode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		query Params
	}{
		{"missing_param", "/venues/{venueId}/markets", Params{}},
		{"empty_param", "/venues/{venueId}/markets", Params{"venueId": ""}},
		{"unterminated", "/venues/{venueId/markets", Params{"venueId": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest("GET", tt.path).SetQueryParams(tt.query)
			_, _, err := req.Implode()
			assert.Error(t, err)
		})
	}
}

func TestSignedRequest_URL(t *testing.T) {
	s := &SignedRequest{Path: "/v1/venues/trade-public/markets"}
	assert.Equal(t, "/v1/venues/trade-public/markets", s.URL())

	s.Query = url.Values{"limit": {"10"}, "after": {"5"}}
	assert.Equal(t, "/v1/venues/trade-public/markets?after=5&limit=10", s.URL())
}
