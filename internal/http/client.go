// Package http executes prepared venue requests over resty.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"resty.dev/v3"

	"strongbridge/pkg/core"
)

// UserAgent is sent with every request unless Config.Headers overrides it.
const UserAgent = "strongbridge/1"

// Client sends SignedRequests to one API root at a time. The root can be
// moved with SetBaseURL while no request is in flight on the old one.
type Client struct {
	rc     *resty.Client
	logger zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

type Config struct {
	BaseURL string        `validate:"required,url"`
	Timeout time.Duration `validate:"min=1ms"`
	// MaxRetries applies to idempotent methods only. Zero sends every
	// request exactly once.
	MaxRetries   int               `validate:"min=0"`
	RetryWaitMin time.Duration     `validate:"min=0"`
	RetryWaitMax time.Duration     `validate:"min=0"`
	Headers      map[string]string `validate:"omitempty"`
	Logger       *zerolog.Logger   `validate:"-"`
}

// Response is the raw outcome of a venue call. Classification is left to the caller.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	Duration   time.Duration
}

var validate = validator.New()

func NewClient(config *Config) (*Client, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = config.Logger.With().Str("component", "http").Logger()
	}

	rc := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(config.RetryWaitMin).
		SetRetryMaxWaitTime(config.RetryWaitMax).
		SetAllowMethodGetPayload(true).
		SetAllowMethodDeletePayload(true).
		SetHeader("User-Agent", UserAgent).
		SetHeaders(config.Headers)

	rc.AddResponseMiddleware(func(_ *resty.Client, resp *resty.Response) error {
		evt := logger.Debug()
		if resp.StatusCode() >= http.StatusInternalServerError {
			evt = logger.Warn()
		}
		evt.Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status", resp.StatusCode()).
			Int("size", len(resp.Bytes())).
			Dur("elapsed", resp.Duration()).
			Msg("http response")
		return nil
	})

	return &Client{rc: rc, logger: logger}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rc.Close()
}

// SetBaseURL points the client at another API root, used when switching venues.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rc.SetBaseURL(baseURL)
}

// BaseURL returns the current API root.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rc.BaseURL()
}

// Do sends req exactly as prepared: the body bytes are not re-encoded, so
// they match what was signed. Failures without any HTTP response come back
// as network or timeout errors.
func (c *Client) Do(ctx context.Context, exchange string, req *core.SignedRequest) (*Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, core.NewExchangeErrorWithCode(exchange, core.ErrorTypeNetwork, 0,
			string(core.ErrCodeClientClosed), core.ErrClientClosed.Error())
	}

	r := c.rc.R().SetContext(ctx)
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", req.Method).Str("path", req.Path).Msg("http request failed")
		return nil, transportError(exchange, err)
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Bytes(),
		Headers:    resp.Header(),
		Duration:   time.Since(start),
	}, nil
}

func transportError(exchange string, err error) *core.ExchangeError {
	kind := core.ErrorTypeNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = core.ErrorTypeTimeout
	}
	e := core.NewExchangeErrorWithCode(exchange, kind, 0, string(core.ErrCodeNetwork), "request failed")
	e.Err = err
	return e
}
