package stronghold

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"

	"strongbridge/pkg/core"
)

// Authentication headers carried by every private request.
const (
	HeaderCredID   = "SH-CRED-ID"
	HeaderCredSig  = "SH-CRED-SIG"
	HeaderCredTime = "SH-CRED-TIME"
	HeaderCredPass = "SH-CRED-PASS"
)

// Signer authenticates private Stronghold requests.
//
// The signature is base64(HMAC-SHA256(secret, nonce + method + path + body))
// where secret is the base64-decoded API secret, nonce is decimal seconds,
// path includes the /v1 prefix but no query string, and body is appended
// only when present.
type Signer struct{}

// NewSigner creates a new Signer.
func NewSigner() *Signer {
	return &Signer{}
}

// Payload returns the exact bytes that are authenticated.
func Payload(nonce int64, method, path string, body []byte) []byte {
	ts := strconv.FormatInt(nonce, 10)
	buf := make([]byte, 0, len(ts)+len(method)+len(path)+len(body))
	buf = append(buf, ts...)
	buf = append(buf, method...)
	buf = append(buf, path...)
	buf = append(buf, body...)
	return buf
}

// Sign builds the signed request for method and path. It fails with a config
// error before doing any work if a credential field is missing or the secret
// is not valid base64.
func (s *Signer) Sign(method, path string, body []byte, creds *core.Credentials, nonce int64) (*core.SignedRequest, error) {
	if missing := creds.Missing(); len(missing) > 0 {
		return nil, core.NewConfigError(Name, "missing credentials: "+strings.Join(missing, ", ")).
			WithCode(core.ErrCodeNoCredentials)
	}

	secret, err := base64.StdEncoding.DecodeString(creds.SecretKey)
	if err != nil {
		e := core.NewConfigError(Name, "secret is not valid base64")
		e.Err = err
		return nil, e
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(Payload(nonce, method, path, body))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return &core.SignedRequest{
		Method: method,
		Path:   path,
		Body:   body,
		Headers: map[string]string{
			HeaderCredID:   creds.APIKey,
			HeaderCredSig:  signature,
			HeaderCredTime: strconv.FormatInt(nonce, 10),
			HeaderCredPass: creds.Passphrase,
			"Content-Type": "application/json",
		},
		Nonce: nonce,
	}, nil
}
