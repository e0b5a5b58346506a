package stronghold

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"strongbridge/pkg/core"
)

// Envelope is the wrapper around every Stronghold response.
type Envelope struct {
	RequestID  string          `json:"requestId"`
	Timestamp  string          `json:"timestamp"`
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	ErrorCode  string          `json:"errorCode,omitempty"`
	ErrorMsg   string          `json:"errorMessage,omitempty"`
	Result     json.RawMessage `json:"result"`

	// Raw is the undecoded response body.
	Raw []byte `json:"-"`
}

// Time parses the envelope timestamp. A missing or malformed value is a
// parse error.
func (e *Envelope) Time() (time.Time, error) {
	return parseTime("timestamp", e.Timestamp)
}

var errUndecodable = errors.New("response is not a JSON object")

// errorCodes is the venue's exhaustive error table.
var errorCodes = map[string]core.ErrorType{
	"CREDENTIAL_MISSING":     core.ErrorTypeAuthentication,
	"CREDENTIAL_INVALID":     core.ErrorTypeAuthentication,
	"CREDENTIAL_REVOKED":     core.ErrorTypeAuthentication,
	"CREDENTIAL_NO_IDENTITY": core.ErrorTypeAuthentication,
	"PASSPHRASE_INVALID":     core.ErrorTypeAuthentication,
	"SIGNATURE_INVALID":      core.ErrorTypeAuthentication,
	"TIME_INVALID":           core.ErrorTypeInvalidNonce,
	"BYPASS_INVALID":         core.ErrorTypeAuthentication,
	"INSUFFICIENT_FUNDS":     core.ErrorTypeInsufficientFunds,
}

// ErrorKind returns the classified kind for a venue error code.
func ErrorKind(code string) (core.ErrorType, bool) {
	t, ok := errorCodes[code]
	return t, ok
}

// DecodeEnvelope decodes a response body. An empty or non-JSON body, or a
// JSON value that is not an object, is reported as undecodable and must not
// be classified.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errUndecodable
	}

	var env Envelope
	if err := sonic.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	env.Raw = body
	return &env, nil
}

// Classify raises the error an envelope reports, or returns nil to pass it
// through. A recognized error code wins over the success flag.
func Classify(env *Envelope) error {
	if kind, ok := errorCodes[env.ErrorCode]; ok {
		return classified(env, kind)
	}
	if !env.Success {
		return classified(env, core.ErrorTypeExchange)
	}
	return nil
}

func classified(env *Envelope, kind core.ErrorType) *core.ExchangeError {
	e := core.NewExchangeErrorWithCode(Name, kind, env.StatusCode, env.ErrorCode, string(env.Raw))
	e.RawError = env
	return e
}

// undecodable reports a response that carried no usable envelope. The
// failure belongs to the transport, so the kind follows the HTTP status.
func undecodable(statusCode int, body []byte, err error) *core.ExchangeError {
	kind := core.ErrorTypeNetwork
	switch {
	case statusCode == http.StatusTooManyRequests:
		kind = core.ErrorTypeRateLimit
	case statusCode >= http.StatusInternalServerError:
		kind = core.ErrorTypeServerError
	}
	e := core.NewExchangeErrorWithCode(Name, kind, statusCode, string(core.ErrCodeUndecodable), string(body))
	e.Err = err
	return e
}
