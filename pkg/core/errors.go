package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of an exchange error.
type ErrorType int

// Error type constants categorize errors for proper handling and retry logic.
const (
	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNetwork indicates a transport failure with no decodable venue response.
	ErrorTypeNetwork
	// ErrorTypeTimeout indicates the request exceeded its deadline.
	ErrorTypeTimeout
	// ErrorTypeRateLimit indicates rate limit was exceeded.
	ErrorTypeRateLimit
	// ErrorTypeAuthentication indicates a missing, invalid or revoked credential,
	// a bad passphrase or a bad signature.
	ErrorTypeAuthentication
	// ErrorTypeInvalidNonce indicates a stale or out-of-order request timestamp.
	ErrorTypeInvalidNonce
	// ErrorTypeBadRequest indicates invalid request parameters.
	ErrorTypeBadRequest
	// ErrorTypeNotFound indicates the requested resource does not exist.
	ErrorTypeNotFound
	// ErrorTypeServerError indicates a server-side error.
	ErrorTypeServerError
	// ErrorTypeInsufficientFunds indicates account lacks required balance.
	ErrorTypeInsufficientFunds
	// ErrorTypeInvalidOrder indicates the order violates exchange rules.
	ErrorTypeInvalidOrder
	// ErrorTypeExchange indicates the venue reported failure without a recognized code.
	ErrorTypeExchange
	// ErrorTypeParse indicates a venue field could not be interpreted.
	ErrorTypeParse
	// ErrorTypeConfig indicates missing or malformed local configuration.
	ErrorTypeConfig
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	names := [...]string{
		"UNKNOWN",
		"NETWORK",
		"TIMEOUT",
		"RATE_LIMIT",
		"AUTHENTICATION",
		"INVALID_NONCE",
		"BAD_REQUEST",
		"NOT_FOUND",
		"SERVER_ERROR",
		"INSUFFICIENT_FUNDS",
		"INVALID_ORDER",
		"EXCHANGE_ERROR",
		"PARSE_ERROR",
		"CONFIG_ERROR",
	}
	if int(t) < 0 || int(t) >= len(names) {
		return "UNKNOWN"
	}
	return names[t]
}

// Sentinel errors for common error conditions.
var (
	// ErrClientClosed is returned when attempting to use a closed client.
	ErrClientClosed = errors.New("client is closed")
	// ErrNoCredentials is returned when no API credentials are configured.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrMarketNotFound is returned when a symbol or market id is not in the market index.
	ErrMarketNotFound = errors.New("market not found")
	// ErrNoAccount is returned when no trading account could be resolved.
	ErrNoAccount = errors.New("no trading account")
)

// ExchangeError is the classified failure of a venue call.
type ExchangeError struct {
	// Type categorizes the error for programmatic handling.
	Type ErrorType `json:"type"`
	// StatusCode is the HTTP status code from the response.
	StatusCode int `json:"status_code"`
	// Code is the exchange-specific error code.
	Code string `json:"code"`
	// Message is the human-readable error description. For venue errors this
	// is the raw response body.
	Message string `json:"message"`
	// RawError contains the original error response for debugging.
	RawError any `json:"raw_error,omitempty"`
	// Exchange identifies which exchange returned this error.
	Exchange string `json:"exchange"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`
	// Err is the underlying cause, if any.
	Err error `json:"-"`
}

func (e *ExchangeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (%d/%s): %s",
			e.Exchange, e.Type, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("[%s] %s (%d): %s",
		e.Exchange, e.Type, e.StatusCode, msg)
}

// Unwrap returns the underlying cause.
func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// WithCode returns the ExchangeError with the specified error code.
func (e *ExchangeError) WithCode(code ErrorCode) *ExchangeError {
	e.Code = string(code)
	return e
}

// NewExchangeError builds an ExchangeError stamped with the current time.
func NewExchangeError(exchange string, errorType ErrorType, statusCode int, message string) *ExchangeError {
	return &ExchangeError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Exchange:   exchange,
		Timestamp:  time.Now(),
	}
}

// NewExchangeErrorWithCode is NewExchangeError with a venue or connector code.
func NewExchangeErrorWithCode(exchange string, errorType ErrorType, statusCode int, code, message string) *ExchangeError {
	return &ExchangeError{
		Type:       errorType,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Exchange:   exchange,
		Timestamp:  time.Now(),
	}
}

// NewParseError reports a venue field that could not be interpreted.
func NewParseError(exchange, field, value string, err error) *ExchangeError {
	return &ExchangeError{
		Type:      ErrorTypeParse,
		Code:      string(ErrCodeParse),
		Message:   fmt.Sprintf("parse %s %q", field, value),
		Exchange:  exchange,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// NewConfigError reports missing or malformed local configuration.
func NewConfigError(exchange, message string) *ExchangeError {
	return &ExchangeError{
		Type:      ErrorTypeConfig,
		Code:      string(ErrCodeInvalidConfig),
		Message:   message,
		Exchange:  exchange,
		Timestamp: time.Now(),
	}
}

func errorTypeOf(err error) (ErrorType, bool) {
	var e *ExchangeError
	if errors.As(err, &e) {
		return e.Type, true
	}
	return ErrorTypeUnknown, false
}

func isType(err error, t ErrorType) bool {
	got, ok := errorTypeOf(err)
	return ok && got == t
}

// ErrorTypeOf returns the classified kind of err, or ErrorTypeUnknown.
func ErrorTypeOf(err error) ErrorType {
	t, _ := errorTypeOf(err)
	return t
}

// IsNetworkError reports a transport failure.
func IsNetworkError(err error) bool {
	return isType(err, ErrorTypeNetwork)
}

// IsTimeoutError reports an expired deadline.
func IsTimeoutError(err error) bool {
	return isType(err, ErrorTypeTimeout)
}

// IsRateLimitError reports a throttled call.
func IsRateLimitError(err error) bool {
	return isType(err, ErrorTypeRateLimit)
}

// IsAuthenticationError reports a credential, passphrase or signature rejection.
func IsAuthenticationError(err error) bool {
	return isType(err, ErrorTypeAuthentication)
}

// IsNonceError returns true if the venue rejected the request timestamp.
// The request can be retried once the nonce source is resynchronized.
func IsNonceError(err error) bool {
	return isType(err, ErrorTypeInvalidNonce)
}

// IsInsufficientFunds returns true if the venue reported a balance shortfall.
func IsInsufficientFunds(err error) bool {
	return isType(err, ErrorTypeInsufficientFunds)
}

// IsExchangeError returns true for venue failures without a recognized code.
func IsExchangeError(err error) bool {
	return isType(err, ErrorTypeExchange)
}

// IsParseError returns true if a venue field could not be interpreted.
func IsParseError(err error) bool {
	return isType(err, ErrorTypeParse)
}

// IsConfigError returns true for local configuration failures.
func IsConfigError(err error) bool {
	return isType(err, ErrorTypeConfig)
}

// IsRetryable reports whether a caller may retry the request unchanged
// (or, for nonce errors, after resynchronizing).
func IsRetryable(err error) bool {
	t, ok := errorTypeOf(err)
	if !ok {
		return false
	}
	switch t {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeInvalidNonce, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsTerminalError reports failures that repeat if the request is resent unchanged.
func IsTerminalError(err error) bool {
	t, ok := errorTypeOf(err)
	if !ok {
		return false
	}
	return t == ErrorTypeInsufficientFunds ||
		t == ErrorTypeInvalidOrder ||
		t == ErrorTypeNotFound ||
		t == ErrorTypeAuthentication ||
		t == ErrorTypeParse ||
		t == ErrorTypeConfig
}
