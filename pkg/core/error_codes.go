package core

import "errors"

// ErrorCode is a connector-level error identifier carried in ExchangeError.Code
// when the venue did not supply its own.
type ErrorCode string

const (
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"
	// ErrCodeUndecodable marks a response whose body was empty or not a JSON object.
	ErrCodeUndecodable ErrorCode = "UNDECODABLE_RESPONSE"
	// ErrCodeRateLimit marks a call that gave up waiting for the local limiter.
	ErrCodeRateLimit     ErrorCode = "RATE_LIMIT"
	ErrCodeInvalidSymbol ErrorCode = "INVALID_SYMBOL"
	ErrCodeParse         ErrorCode = "PARSE_ERROR"
	// ErrCodeUnknownCurrency marks a code or asset id the venue does not list.
	ErrCodeUnknownCurrency ErrorCode = "UNKNOWN_CURRENCY"
	ErrCodeNoAccount       ErrorCode = "NO_ACCOUNT"
	// ErrCodeCircuitOpen marks calls refused after repeated transport failures.
	ErrCodeCircuitOpen ErrorCode = "CIRCUIT_OPEN"

	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeClientClosed  ErrorCode = "CLIENT_CLOSED"
	ErrCodeNoCredentials ErrorCode = "NO_CREDENTIALS"
	ErrCodeUnsupported   ErrorCode = "UNSUPPORTED_METHOD"
)

// IsErrorCode reports whether err is an ExchangeError carrying code.
func IsErrorCode(err error, code ErrorCode) bool {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return ErrorCode(exErr.Code) == code
	}
	return false
}
