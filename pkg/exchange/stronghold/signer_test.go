package stronghold

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strongbridge/pkg/core"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("stronghold-test-secret"))

func testCreds() *core.Credentials {
	return &core.Credentials{
		APIKey:     "cred-id",
		SecretKey:  testSecret,
		Passphrase: "pass",
	}
}

func TestPayload(t *testing.T) {
	tests := []struct {
		name   string
		nonce  int64
		method string
		path   string
		body   []byte
		want   string
	}{
		{"get without body", 1548630124, "GET", "/v1/venues/trade-public/accounts/a1", nil, "1548630124GET/v1/venues/trade-public/accounts/a1"},
		{"post with body", 1548630125, "POST", "/v1/venues/trade-public/accounts/a1/orders", []byte(`{"side":"buy"}`), `1548630125POST/v1/venues/trade-public/accounts/a1/orders{"side":"buy"}`},
		{"delete empty object", 7, "DELETE", "/v1/x", []byte(`{}`), `7DELETE/v1/x{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Payload(tt.nonce, tt.method, tt.path, tt.body)))
		})
	}
}

func TestSigner_Sign(t *testing.T) {
	s := NewSigner()
	body := []byte(`{"marketID":"XLMUSD","side":"buy"}`)

	req, err := s.Sign("POST", "/v1/venues/trade-public/accounts/a1/orders", body, testCreds(), 1548630124)
	require.NoError(t, err)

	secret, _ := base64.StdEncoding.DecodeString(testSecret)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(`1548630124POST/v1/venues/trade-public/accounts/a1/orders{"marketID":"XLMUSD","side":"buy"}`))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, req.Headers[HeaderCredSig])
	assert.Equal(t, "cred-id", req.Headers[HeaderCredID])
	assert.Equal(t, "1548630124", req.Headers[HeaderCredTime])
	assert.Equal(t, "pass", req.Headers[HeaderCredPass])
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.Equal(t, body, req.Body)
	assert.Equal(t, int64(1548630124), req.Nonce)
}

func TestSigner_Deterministic(t *testing.T) {
	s := NewSigner()

	a, err := s.Sign("GET", "/v1/venues/trade-public/accounts/a1", nil, testCreds(), 100)
	require.NoError(t, err)
	b, err := s.Sign("GET", "/v1/venues/trade-public/accounts/a1", nil, testCreds(), 100)
	require.NoError(t, err)
	c, err := s.Sign("GET", "/v1/venues/trade-public/accounts/a1", nil, testCreds(), 101)
	require.NoError(t, err)

	assert.Equal(t, a.Headers[HeaderCredSig], b.Headers[HeaderCredSig])
	assert.NotEqual(t, a.Headers[HeaderCredSig], c.Headers[HeaderCredSig])
}

func TestSigner_BodyChangesSignature(t *testing.T) {
	s := NewSigner()

	a, err := s.Sign("POST", "/v1/x", []byte(`{"size":"1"}`), testCreds(), 100)
	require.NoError(t, err)
	b, err := s.Sign("POST", "/v1/x", []byte(`{"size":"2"}`), testCreds(), 100)
	require.NoError(t, err)

	assert.NotEqual(t, a.Headers[HeaderCredSig], b.Headers[HeaderCredSig])
}

func TestSigner_MissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds *core.Credentials
	}{
		{"nil", nil},
		{"no key", &core.Credentials{SecretKey: testSecret, Passphrase: "p"}},
		{"no secret", &core.Credentials{APIKey: "k", Passphrase: "p"}},
		{"no passphrase", &core.Credentials{APIKey: "k", SecretKey: testSecret}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSigner().Sign("GET", "/v1/x", nil, tt.creds, 1)
			require.Error(t, err)
			assert.True(t, core.IsConfigError(err))
			assert.True(t, core.IsErrorCode(err, core.ErrCodeNoCredentials))
		})
	}
}

func TestSigner_BadSecret(t *testing.T) {
	creds := testCreds()
	creds.SecretKey = "not base64!"

	_, err := NewSigner().Sign("GET", "/v1/x", nil, creds, 1)
	require.Error(t, err)
	assert.True(t, core.IsConfigError(err))
}
