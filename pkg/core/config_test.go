package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig("stronghold")

	assert.Equal(t, "stronghold", config.Exchange)
	assert.False(t, config.Sandbox)
	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.Equal(t, 0, config.MaxRetries)
	assert.Equal(t, 0, config.RateLimitRequests)
	assert.Equal(t, time.Second, config.RateLimitPeriod)
	assert.True(t, config.CacheEnabled)
	assert.Equal(t, time.Hour, config.CacheTTL)
	assert.Equal(t, "info", config.LogLevel)
	assert.Empty(t, config.AccountID)
	assert.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid_config",
			config:  DefaultConfig("stronghold"),
			wantErr: false,
		},
		{
			name: "missing_exchange",
			config: &Config{
				Timeout: 10 * time.Second,
			},
			wantErr: true,
			errMsg:  "Exchange",
		},
		{
			name: "invalid_timeout",
			config: &Config{
				Exchange: "stronghold",
				Timeout:  -1 * time.Second,
			},
			wantErr: true,
			errMsg:  "Timeout",
		},
		{
			name: "negative_max_retries",
			config: &Config{
				Exchange:   "stronghold",
				Timeout:    10 * time.Second,
				MaxRetries: -1,
			},
			wantErr: true,
			errMsg:  "MaxRetries",
		},
		{
			name: "invalid_rate_limit_requests",
			config: &Config{
				Exchange:          "stronghold",
				Timeout:           10 * time.Second,
				RateLimitRequests: -1,
			},
			wantErr: true,
			errMsg:  "RateLimitRequests",
		},
		{
			name: "invalid_log_level",
			config: func() *Config {
				c := DefaultConfig("stronghold")
				c.LogLevel = "trace"
				return c
			}(),
			wantErr: true,
			errMsg:  "LogLevel",
		},
		{
			name: "retry_wait_inverted",
			config: func() *Config {
				c := DefaultConfig("stronghold")
				c.RetryWaitMin = 2 * time.Second
				c.RetryWaitMax = time.Second
				return c
			}(),
			wantErr: true,
			errMsg:  "RetryWaitMax",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, strings.Contains(err.Error(), tt.errMsg), "expected error to contain %q, got %q", tt.errMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Chaining(t *testing.T) {
	config := DefaultConfig("stronghold")
	creds := &Credentials{APIKey: "key", SecretKey: "c2VjcmV0", Passphrase: "pass"}

	result := config.
		WithCredentials(creds).
		WithSandbox(true).
		WithAccount("acc-1").
		WithTimeout(30*time.Second).
		WithRateLimit(5, time.Second).
		WithCache(false, 0)

	assert.Equal(t, config, result)
	assert.Equal(t, creds, config.Credentials)
	assert.True(t, config.Sandbox)
	assert.Equal(t, "acc-1", config.AccountID)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 5, config.RateLimitRequests)
	assert.False(t, config.CacheEnabled)
}

func TestCredentials_Missing(t *testing.T) {
	tests := []struct {
		name  string
		creds *Credentials
		want  []string
	}{
		{"nil", nil, []string{"api_key", "secret_key", "passphrase"}},
		{"complete", &Credentials{APIKey: "k", SecretKey: "s", Passphrase: "p"}, nil},
		{"no_passphrase", &Credentials{APIKey: "k", SecretKey: "s"}, []string{"passphrase"}},
		{"only_passphrase", &Credentials{Passphrase: "p"}, []string{"api_key", "secret_key"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.creds.Missing())
		})
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	assert.Nil(t, CredentialsFromEnv("SBTEST_EMPTY"))

	t.Setenv("SBTEST_API_KEY", "key")
	t.Setenv("SBTEST_SECRET_KEY", "c2VjcmV0")
	t.Setenv("SBTEST_PASSPHRASE", "pass")

	creds := CredentialsFromEnv("sbtest")
	require.NotNil(t, creds)
	assert.Equal(t, "key", creds.APIKey)
	assert.Equal(t, "c2VjcmV0", creds.SecretKey)
	assert.Equal(t, "pass", creds.Passphrase)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
exchange: stronghold
sandbox: true
account_id: acc-42
timeout: 5s
rate_limit_requests: 2
rate_limit_period: 1s
log_level: debug
credentials:
  api_key: key
  secret_key: c2VjcmV0
  passphrase: pass
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "stronghold", config.Exchange)
	assert.True(t, config.Sandbox)
	assert.Equal(t, "acc-42", config.AccountID)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, 2, config.RateLimitRequests)
	assert.Equal(t, "debug", config.LogLevel)
	require.NotNil(t, config.Credentials)
	assert.Equal(t, "pass", config.Credentials.Passphrase)
	// untouched keys keep their defaults
	assert.Equal(t, time.Hour, config.CacheTTL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 5s\n"), 0o600))
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Exchange")
}
