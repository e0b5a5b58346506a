// Package session runs venue calls for one exchange: it owns the venue
// selection, the API keys and their nonces, the rate limiter, the circuit
// breaker and the market cache, and exposes the unified exchange API on top.
package session

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"strongbridge/internal/circuitbreaker"
	transport "strongbridge/internal/http"
	"strongbridge/internal/keyring"
	"strongbridge/internal/logging"
	"strongbridge/internal/nonce"
	"strongbridge/internal/ratelimit"
	"strongbridge/pkg/core"
	"strongbridge/pkg/exchange"
)

// State represents the lifecycle state of a Session.
type State int

const (
	// StateNew indicates a newly created session that has not yet been activated.
	StateNew State = iota
	// StateActive indicates a session that is ready to process requests.
	StateActive
	// StateClosed indicates a session that has been shut down and can no longer be used.
	StateClosed
)

// String returns the string representation of the State.
func (s State) String() string {
	return [...]string{"NEW", "ACTIVE", "CLOSED"}[s]
}

// Session represents a stateful connection to an exchange.
// Sessions are safe for concurrent use. A venue switch waits for calls in
// flight and is never observed halfway by a signed request.
type Session struct {
	// mu guards the venue selection, the account table and the state. Calls
	// hold it for reading from venue selection until the response is parsed.
	mu       sync.RWMutex
	live     core.Venue
	sandbox  core.Venue
	active   core.Venue
	saved    *core.Venue
	accounts map[string]string
	state    State

	config         *core.Config
	protocol       core.Protocol
	keys           *keyring.KeyRing
	rateLimiter    *ratelimit.RateLimiter
	circuitBreaker *circuitbreaker.Breaker
	client         *transport.Client
	cache          *Cache
	logger         zerolog.Logger
	logCloser      io.Closer
	createdAt      time.Time
	lastUsed       atomic.Int64
}

var _ exchange.Exchange = (*Session)(nil)

type options struct {
	protocol  core.Protocol
	container *exchange.Container
	logger    *zerolog.Logger
	clock     nonce.Clock
	keys      *keyring.KeyRing
	live      *core.Venue
	sandbox   *core.Venue
}

// Option customizes a Session.
type Option func(*options)

// WithProtocol uses p instead of looking the exchange up in a container.
func WithProtocol(p core.Protocol) Option {
	return func(o *options) {
		o.protocol = p
	}
}

// WithContainer resolves the exchange name from c instead of the default container.
func WithContainer(c *exchange.Container) Option {
	return func(o *options) {
		o.container = c
	}
}

// WithLogger replaces the logger built from the config.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// WithClock sets the clock the signing nonces are derived from.
func WithClock(clock nonce.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithKeyRing signs with keys instead of the config credentials.
func WithKeyRing(keys *keyring.KeyRing) Option {
	return func(o *options) {
		o.keys = keys
	}
}

// WithVenues replaces the protocol's live and sandbox venues.
func WithVenues(live, sandbox core.Venue) Option {
	return func(o *options) {
		o.live = &live
		o.sandbox = &sandbox
	}
}

// New creates a new Session with the provided configuration.
// The configuration is validated before the session is created.
func New(config *core.Config, opts ...Option) (*Session, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	protocol := o.protocol
	if protocol == nil {
		container := o.container
		if container == nil {
			container = exchange.DefaultContainer()
		}
		p, err := container.Protocol(config.Exchange)
		if err != nil {
			return nil, err
		}
		protocol = p
	}

	var (
		logger    zerolog.Logger
		logCloser io.Closer
	)
	if o.logger != nil {
		logger = *o.logger
	} else {
		l, closer, err := logging.New(logging.Config{
			Level:  config.LogLevel,
			Format: config.LogFormat,
			File:   config.LogFile,
		})
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		logger, logCloser = l, closer
	}
	logger = logger.With().Str("exchange", protocol.Name()).Logger()

	live := protocol.Venue(false)
	if config.VenueID != "" {
		live.ID = config.VenueID
	}
	sandbox := protocol.Venue(true)
	if o.live != nil {
		live, sandbox = *o.live, *o.sandbox
	}
	active := live
	if config.Sandbox {
		active = sandbox
	}

	client, err := transport.NewClient(&transport.Config{
		BaseURL:      active.BaseURL,
		Timeout:      config.Timeout,
		MaxRetries:   config.MaxRetries,
		RetryWaitMin: config.RetryWaitMin,
		RetryWaitMax: config.RetryWaitMax,
		Logger:       &logger,
	})
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}

	keys := o.keys
	if keys == nil {
		keys = keyring.FromCredentials(config.Credentials,
			keyring.WithClock(o.clock),
			keyring.WithLogger(logger))
	}

	ttl := config.CacheTTL
	if !config.CacheEnabled {
		ttl = 0
	}

	s := &Session{
		live:        live,
		sandbox:     sandbox,
		active:      active,
		accounts:    make(map[string]string),
		state:       StateActive,
		config:      config,
		protocol:    protocol,
		keys:        keys,
		rateLimiter: newRateLimiter(config, protocol),
		circuitBreaker: circuitbreaker.New(circuitbreaker.Config{
			FailThreshold:    config.CircuitBreakerThreshold,
			SuccessThreshold: 1,
			Cooldown:         config.CircuitBreakerCooldown,
		}),
		client:    client,
		cache:     NewCache(ttl),
		logger:    logger,
		logCloser: logCloser,
		createdAt: time.Now(),
	}
	if config.AccountID != "" {
		s.accounts[active.ID] = config.AccountID
	}

	logger.Info().
		Str("venue", active.ID).
		Bool("sandbox", active.Sandbox).
		Int("keys", keys.Len()).
		Float64("rate_limit", float64(s.rateLimiter.Limit())).
		Int("rate_burst", s.rateLimiter.Burst()).
		Msg("session created")

	return s, nil
}

// newRateLimiter sizes the limiter from the config, falling back to the
// protocol's published limit when the config leaves it unset.
func newRateLimiter(config *core.Config, protocol core.Protocol) *ratelimit.RateLimiter {
	if config.RateLimitRequests > 0 && config.RateLimitPeriod > 0 {
		return ratelimit.New(config.RateLimitRequests, config.RateLimitPeriod)
	}
	limits := protocol.RateLimits()
	return ratelimit.NewPerSecond(rate.Limit(limits.RequestsPerSecond), limits.Burst)
}

// Do runs one venue operation: it selects the venue, builds and signs the
// request, waits for the rate limiter, sends it and returns the normalized
// result or the classified error.
func (s *Session) Do(ctx context.Context, op core.Operation, params core.Params) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := s.protocol.Name()
	if s.state == StateClosed {
		e := core.NewExchangeError(name, core.ErrorTypeConfig, 0, "session closed").WithCode(core.ErrCodeClientClosed)
		e.Err = core.ErrClientClosed
		return nil, e
	}
	venue := s.active

	log := s.logger.With().
		Str("call_id", uuid.NewString()).
		Stringer("op", op).
		Str("venue", venue.ID).
		Logger()

	req, err := s.protocol.BuildRequest(ctx, op, params)
	if err != nil {
		return nil, err
	}
	if req.HasPathParam(core.PathVenueID) && isEmpty(req.Query[core.PathVenueID]) {
		req.SetQuery(core.PathVenueID, venue.ID)
	}

	var key *keyring.APIKey
	bucket := "public"
	if req.RequireAuth {
		if key = s.keys.Current(); key == nil {
			e := core.NewConfigError(name, "no API credentials configured").WithCode(core.ErrCodeNoCredentials)
			e.Err = core.ErrNoCredentials
			return nil, e
		}
		bucket = key.ID
	}

	if !s.circuitBreaker.Allow() {
		return nil, core.NewExchangeErrorWithCode(name, core.ErrorTypeServerError, 0,
			string(core.ErrCodeCircuitOpen), "circuit breaker open")
	}

	if err := s.rateLimiter.WaitBucket(ctx, bucket, req.Weight); err != nil {
		e := core.NewExchangeError(name, core.ErrorTypeTimeout, 0, "rate limit wait").WithCode(core.ErrCodeRateLimit)
		e.Err = err
		return nil, e
	}

	var (
		creds *core.Credentials
		n     int64
	)
	if key != nil {
		creds = key.Credentials()
		n = key.Nonce()
		log = log.With().Str("key", keyring.MaskKey(key.Key)).Logger()
	}

	signed, err := s.protocol.PrepareRequest(req, creds, n)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("method", signed.Method).Str("url", signed.URL()).Int64("nonce", n).Msg("calling venue")

	var result any
	resp, err := s.client.Do(ctx, name, signed)
	if err == nil {
		result, err = s.protocol.ParseResponse(op, resp.StatusCode, resp.Body, s.marketIndex(venue.ID))
	}

	s.circuitBreaker.Record(err)
	s.lastUsed.Store(time.Now().UnixNano())
	if key != nil {
		if err != nil {
			s.keys.OnError(key.ID, err)
		} else {
			s.keys.MarkUsed(key.ID)
		}
	}

	if err != nil {
		log.Warn().Err(err).Stringer("kind", core.ErrorTypeOf(err)).Msg("call failed")
		return nil, err
	}

	log.Debug().Int("status", resp.StatusCode).Dur("duration", resp.Duration).Msg("call completed")
	return result, nil
}

func isEmpty(v any) bool {
	return v == nil || fmt.Sprint(v) == ""
}

// call runs op and asserts the normalized result type.
func call[T any](ctx context.Context, s *Session, op core.Operation, params core.Params) (T, error) {
	var zero T
	res, err := s.Do(ctx, op, params)
	if err != nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result type %T", op, res)
	}
	return v, nil
}

// SetSandbox switches between the live and the sandbox venue. The live
// venue is saved on the way in and restored on the way out. Calls in flight
// finish on the venue they started on.
func (s *Session) SetSandbox(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return core.ErrClientClosed
	}
	if s.active.Sandbox == enabled {
		return nil
	}

	if enabled {
		saved := s.active
		s.saved = &saved
		s.active = s.sandbox
	} else {
		s.active = s.live
		if s.saved != nil {
			s.active = *s.saved
			s.saved = nil
		}
	}
	s.client.SetBaseURL(s.active.BaseURL)

	s.logger.Info().Str("venue", s.active.ID).Bool("sandbox", s.active.Sandbox).Msg("venue switched")
	return nil
}

// Venue returns the venue calls are currently addressed to.
func (s *Session) Venue() core.Venue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Close releases the HTTP client and the log file. Further calls fail.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	s.cache.Clear()

	if err := s.client.Close(); err != nil {
		return err
	}
	s.logger.Info().Msg("session closed")
	if s.logCloser != nil {
		return s.logCloser.Close()
	}
	return nil
}

// State returns the current lifecycle state of the session.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Protocol returns the protocol implementation used by this session.
func (s *Session) Protocol() core.Protocol {
	return s.protocol
}

// Config returns the configuration used by this session.
func (s *Session) Config() *core.Config {
	return s.config
}

// KeyRing returns the keys the session signs with.
func (s *Session) KeyRing() *keyring.KeyRing {
	return s.keys
}

// CreatedAt returns the timestamp when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastUsed returns when the last call completed, zero if none has.
func (s *Session) LastUsed() time.Time {
	ns := s.lastUsed.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// BreakerState reports the circuit breaker position.
func (s *Session) BreakerState() circuitbreaker.State {
	return s.circuitBreaker.State()
}

// RateLimitMetrics returns the limiter counters.
func (s *Session) RateLimitMetrics() ratelimit.MetricsSnapshot {
	return s.rateLimiter.Metrics()
}

// ClearCache drops the cached markets, currencies and discovered accounts.
func (s *Session) ClearCache() {
	s.cache.Clear()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]string)
	if s.config.AccountID != "" {
		venue := s.live
		if s.config.Sandbox {
			venue = s.sandbox
		}
		s.accounts[venue.ID] = s.config.AccountID
	}
}

func (s *Session) marketIndex(venueID string) *core.Markets {
	m, _ := cached[*core.Markets](s.cache, marketsKey(venueID))
	return m
}

func marketsKey(venueID string) string {
	return "markets:" + venueID
}

func currenciesKey(venueID string) string {
	return "currencies:" + venueID
}
