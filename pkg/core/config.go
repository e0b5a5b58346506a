package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Credentials holds API authentication credentials for an exchange.
type Credentials struct {
	// APIKey is the public API key identifier.
	APIKey string `json:"api_key" yaml:"api_key"`
	// SecretKey is the private key used for signing requests. Stronghold
	// issues it base64-encoded.
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	// Passphrase is the additional credential sent with every private request.
	Passphrase string `json:"passphrase,omitempty" yaml:"passphrase,omitempty"`
}

// Missing returns the names of the credential fields that are empty.
func (c *Credentials) Missing() []string {
	if c == nil {
		return []string{"api_key", "secret_key", "passphrase"}
	}
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if c.SecretKey == "" {
		missing = append(missing, "secret_key")
	}
	if c.Passphrase == "" {
		missing = append(missing, "passphrase")
	}
	return missing
}

// CredentialsFromEnv reads PREFIX_API_KEY, PREFIX_SECRET_KEY and PREFIX_PASSPHRASE.
// It returns nil when none of them is set.
func CredentialsFromEnv(prefix string) *Credentials {
	p := strings.ToUpper(prefix)
	creds := &Credentials{
		APIKey:     os.Getenv(p + "_API_KEY"),
		SecretKey:  os.Getenv(p + "_SECRET_KEY"),
		Passphrase: os.Getenv(p + "_PASSPHRASE"),
	}
	if creds.APIKey == "" && creds.SecretKey == "" && creds.Passphrase == "" {
		return nil
	}
	return creds
}

// Venue identifies the trading venue a request is addressed to.
type Venue struct {
	// ID is the venue identifier substituted into request paths.
	ID string `json:"id" yaml:"id"`
	// BaseURL is the API root for the venue.
	BaseURL string `json:"base_url" yaml:"base_url"`
	// Sandbox marks the test venue.
	Sandbox bool `json:"sandbox" yaml:"sandbox"`
}

// Config contains all configuration options for an exchange session.
// A Config is read-only once a session has been created from it; venue
// switching happens on the session.
type Config struct {
	Exchange    string       `json:"exchange" yaml:"exchange" validate:"required"`
	Sandbox     bool         `json:"sandbox" yaml:"sandbox"`
	Credentials *Credentials `json:"credentials,omitempty" yaml:"credentials,omitempty"`

	// VenueID overrides the protocol's default live venue.
	VenueID string `json:"venue_id,omitempty" yaml:"venue_id,omitempty"`
	// AccountID is the default account for private calls. When empty the
	// session uses the first account the venue lists.
	AccountID string `json:"account_id,omitempty" yaml:"account_id,omitempty"`

	// Timeout is the maximum duration for HTTP requests.
	Timeout      time.Duration `json:"timeout" yaml:"timeout" validate:"min=1ms"`
	MaxRetries   int           `json:"max_retries" yaml:"max_retries" validate:"min=0"`
	RetryWaitMin time.Duration `json:"retry_wait_min" yaml:"retry_wait_min" validate:"min=0"`
	RetryWaitMax time.Duration `json:"retry_wait_max" yaml:"retry_wait_max" validate:"min=0"`

	// RateLimitRequests per RateLimitPeriod caps calls. Zero uses the
	// venue's published limit.
	RateLimitRequests int           `json:"rate_limit_requests" yaml:"rate_limit_requests" validate:"min=0"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" yaml:"rate_limit_period" validate:"min=1ms"`

	// CircuitBreakerThreshold consecutive transport failures stop further
	// calls for CircuitBreakerCooldown. Zero disables the breaker.
	CircuitBreakerThreshold int           `json:"circuit_breaker_threshold" yaml:"circuit_breaker_threshold" validate:"min=0"`
	CircuitBreakerCooldown  time.Duration `json:"circuit_breaker_cooldown" yaml:"circuit_breaker_cooldown" validate:"min=0"`

	// CacheEnabled keeps the loaded market index; CacheTTL of zero never expires it.
	CacheEnabled bool          `json:"cache_enabled" yaml:"cache_enabled"`
	CacheTTL     time.Duration `json:"cache_ttl" yaml:"cache_ttl" validate:"min=0"`

	LogLevel  string `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `json:"log_format" yaml:"log_format" validate:"omitempty,oneof=json console"`
	LogFile   string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
}

// DefaultConfig returns a Config initialized with sensible defaults for the specified exchange.
// Default values: 10s timeout, no transport retries, the venue's rate limit,
// breaker after 5 transport failures, market index cached for an hour.
func DefaultConfig(exchange string) *Config {
	return &Config{
		Exchange:     exchange,
		Sandbox:      false,
		Timeout:      10 * time.Second,
		MaxRetries:   0,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 1 * time.Second,

		RateLimitRequests: 0,
		RateLimitPeriod:   time.Second,

		CircuitBreakerThreshold: 5,
		CircuitBreakerCooldown:  30 * time.Second,

		CacheEnabled: true,
		CacheTTL:     time.Hour,

		LogLevel:  "info",
		LogFormat: "json",
	}
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.RetryWaitMax < c.RetryWaitMin {
		return fmt.Errorf("RetryWaitMax must not be less than RetryWaitMin")
	}
	return nil
}

// LoadConfig reads a YAML config file on top of DefaultConfig and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// WithCredentials sets the API credentials and returns the config for chaining.
func (c *Config) WithCredentials(creds *Credentials) *Config {
	c.Credentials = creds
	return c
}

// WithSandbox enables or disables sandbox mode and returns the config for chaining.
func (c *Config) WithSandbox(sandbox bool) *Config {
	c.Sandbox = sandbox
	return c
}

// WithAccount sets the default account id and returns the config for chaining.
func (c *Config) WithAccount(accountID string) *Config {
	c.AccountID = accountID
	return c
}

// WithTimeout sets the request timeout and returns the config for chaining.
func (c *Config) WithTimeout(timeout time.Duration) *Config {
	c.Timeout = timeout
	return c
}

// WithRateLimit sets the rate limiting parameters and returns the config for chaining.
func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}

// WithCache enables or disables market caching with the specified TTL and returns the config for chaining.
func (c *Config) WithCache(enabled bool, ttl time.Duration) *Config {
	c.CacheEnabled = enabled
	c.CacheTTL = ttl
	return c
}
