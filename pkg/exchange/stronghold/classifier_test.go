package stronghold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strongbridge/pkg/core"
)

func TestDecodeEnvelope(t *testing.T) {
	body := []byte(`{"requestId":"r1","timestamp":"2019-01-27T23:02:04.123Z","success":true,"statusCode":200,"result":[]}`)

	env, err := DecodeEnvelope(body)
	require.NoError(t, err)

	assert.Equal(t, "r1", env.RequestID)
	assert.True(t, env.Success)
	assert.Equal(t, 200, env.StatusCode)
	assert.Equal(t, "[]", string(env.Result))
	assert.Equal(t, body, env.Raw)

	ts, err := env.Time()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 1, 27, 23, 2, 4, 123_000_000, time.UTC), ts.UTC())
}

func TestEnvelope_TimeRequired(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"success":true,"result":[]}`))
	require.NoError(t, err)

	_, err = env.Time()
	require.Error(t, err)
	assert.True(t, core.IsParseError(err))
}

func TestDecodeEnvelope_Undecodable(t *testing.T) {
	for _, body := range []string{"", "   ", "<html>bad gateway</html>", "[]", `{"success":`} {
		_, err := DecodeEnvelope([]byte(body))
		assert.Error(t, err, "body %q", body)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		wantType core.ErrorType
	}{
		{"success passes through", `{"success":true,"statusCode":200,"result":[]}`, false, 0},
		{"insufficient funds", `{"success":false,"statusCode":400,"errorCode":"INSUFFICIENT_FUNDS"}`, true, core.ErrorTypeInsufficientFunds},
		{"unknown code", `{"success":false,"statusCode":400,"errorCode":"UNKNOWN_X"}`, true, core.ErrorTypeExchange},
		{"no code", `{"success":false,"statusCode":500}`, true, core.ErrorTypeExchange},
		{"time invalid", `{"success":false,"errorCode":"TIME_INVALID"}`, true, core.ErrorTypeInvalidNonce},
		{"code wins over success flag", `{"success":true,"errorCode":"SIGNATURE_INVALID"}`, true, core.ErrorTypeAuthentication},
		{"unknown code with success", `{"success":true,"errorCode":"UNKNOWN_X","result":{}}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.body))
			require.NoError(t, err)

			err = Classify(env)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantType, core.ErrorTypeOf(err))

			var exErr *core.ExchangeError
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, tt.body, exErr.Message)
			assert.Equal(t, Name, exErr.Exchange)
		})
	}
}

func TestErrorKind_Table(t *testing.T) {
	auth := []string{
		"CREDENTIAL_MISSING",
		"CREDENTIAL_INVALID",
		"CREDENTIAL_REVOKED",
		"CREDENTIAL_NO_IDENTITY",
		"PASSPHRASE_INVALID",
		"SIGNATURE_INVALID",
		"BYPASS_INVALID",
	}
	for _, code := range auth {
		kind, ok := ErrorKind(code)
		assert.True(t, ok, code)
		assert.Equal(t, core.ErrorTypeAuthentication, kind, code)
	}

	kind, ok := ErrorKind("TIME_INVALID")
	assert.True(t, ok)
	assert.Equal(t, core.ErrorTypeInvalidNonce, kind)

	kind, ok = ErrorKind("INSUFFICIENT_FUNDS")
	assert.True(t, ok)
	assert.Equal(t, core.ErrorTypeInsufficientFunds, kind)

	_, ok = ErrorKind("UNKNOWN_X")
	assert.False(t, ok)
}

func TestClassify_Retryability(t *testing.T) {
	nonceEnv, _ := DecodeEnvelope([]byte(`{"success":false,"errorCode":"TIME_INVALID"}`))
	fundsEnv, _ := DecodeEnvelope([]byte(`{"success":false,"errorCode":"INSUFFICIENT_FUNDS"}`))

	assert.True(t, core.IsRetryable(Classify(nonceEnv)))
	assert.False(t, core.IsRetryable(Classify(fundsEnv)))
	assert.True(t, core.IsTerminalError(Classify(fundsEnv)))
}
