// Package keyring holds the API credentials a session signs with. Every key
// owns the nonce source for its credential, so all signers sharing a key
// share one nonce sequence.
package keyring

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"strongbridge/internal/nonce"
	"strongbridge/pkg/core"
)

type KeyRing struct {
	mu       sync.RWMutex
	keys     []*APIKey
	current  int
	strategy RotationStrategy
	clock    nonce.Clock
	logger   zerolog.Logger
}

type APIKey struct {
	ID         string
	Key        string
	Secret     string
	Passphrase string
	Disabled   bool
	LastUsed   time.Time
	ErrorCount int

	nonces *nonce.Source
}

type RotationStrategy int

const (
	// RotationNone keeps the current key until it is disabled.
	RotationNone RotationStrategy = iota
	// RotationOnError moves to the next key after an authentication failure.
	RotationOnError
	// RotationOnRateLimit moves to the next key after a rate-limit rejection.
	RotationOnRateLimit
)

// Option configures a KeyRing.
type Option func(*KeyRing)

// WithClock sets the clock used by the per-key nonce sources.
func WithClock(clock nonce.Clock) Option {
	return func(k *KeyRing) {
		k.clock = clock
	}
}

// WithLogger sets the logger used to report rotations.
func WithLogger(l zerolog.Logger) Option {
	return func(k *KeyRing) {
		k.logger = l
	}
}

func NewKeyRing(keys []*APIKey, strategy RotationStrategy, opts ...Option) *KeyRing {
	k := &KeyRing{
		keys:     make([]*APIKey, 0, len(keys)),
		strategy: strategy,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(k)
	}

	for _, key := range keys {
		k.keys = append(k.keys, k.copyKey(key))
	}

	return k
}

// FromCredentials builds a single-key ring. It returns an empty ring for nil credentials.
func FromCredentials(creds *core.Credentials, opts ...Option) *KeyRing {
	if creds == nil {
		return NewKeyRing(nil, RotationNone, opts...)
	}
	return NewKeyRing([]*APIKey{{
		ID:         "default",
		Key:        creds.APIKey,
		Secret:     creds.SecretKey,
		Passphrase: creds.Passphrase,
	}}, RotationNone, opts...)
}

func (k *KeyRing) copyKey(key *APIKey) *APIKey {
	return &APIKey{
		ID:         key.ID,
		Key:        key.Key,
		Secret:     key.Secret,
		Passphrase: key.Passphrase,
		Disabled:   key.Disabled,
		LastUsed:   key.LastUsed,
		ErrorCount: key.ErrorCount,
		nonces:     nonce.New(k.clock),
	}
}

// Len returns the number of keys, including disabled ones.
func (k *KeyRing) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

// Current returns the active key, or nil when every key is disabled.
func (k *KeyRing) Current() *APIKey {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if len(k.keys) == 0 {
		return nil
	}

	for i := 0; i < len(k.keys); i++ {
		idx := (k.current + i) % len(k.keys)
		if !k.keys[idx].Disabled {
			return k.keys[idx]
		}
	}

	return nil
}

func (k *KeyRing) Rotate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.rotateLocked()
}

func (k *KeyRing) rotateLocked() {
	if len(k.keys) == 0 {
		return
	}

	start := k.current
	for {
		k.current = (k.current + 1) % len(k.keys)
		if !k.keys[k.current].Disabled {
			break
		}
		if k.current == start {
			break
		}
	}
	k.logger.Debug().Str("key_id", k.keys[k.current].ID).Msg("api key rotated")
}

// OnError records a failed call made with the key identified by id.
// Nonce rejections resynchronize that key's nonce source; authentication
// and rate-limit failures rotate according to the strategy.
func (k *KeyRing) OnError(id string, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	key := k.findLocked(id)
	if key == nil {
		return
	}
	key.ErrorCount++

	switch {
	case core.IsNonceError(err):
		key.nonces.Resync()
	case core.IsAuthenticationError(err) && k.strategy == RotationOnError:
		k.rotateLocked()
	case core.IsRateLimitError(err) && k.strategy == RotationOnRateLimit:
		k.rotateLocked()
	}
}

// MarkUsed stamps the key identified by id.
func (k *KeyRing) MarkUsed(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key := k.findLocked(id); key != nil {
		key.LastUsed = time.Now()
	}
}

func (k *KeyRing) findLocked(id string) *APIKey {
	for _, key := range k.keys {
		if key.ID == id {
			return key
		}
	}
	return nil
}

func (k *KeyRing) Disable(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key := k.findLocked(id); key != nil {
		key.Disabled = true
	}
}

func (k *KeyRing) Enable(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key := k.findLocked(id); key != nil {
		key.Disabled = false
		key.ErrorCount = 0
	}
}

func (k *KeyRing) Add(key *APIKey) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.findLocked(key.ID) != nil {
		return
	}
	k.keys = append(k.keys, k.copyKey(key))
}

func (k *KeyRing) Remove(id string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i, key := range k.keys {
		if key.ID == id {
			k.keys = append(k.keys[:i], k.keys[i+1:]...)
			if k.current >= len(k.keys) && len(k.keys) > 0 {
				k.current = 0
			}
			return
		}
	}
}

// Credentials returns the key as core credentials.
func (a *APIKey) Credentials() *core.Credentials {
	return &core.Credentials{
		APIKey:     a.Key,
		SecretKey:  a.Secret,
		Passphrase: a.Passphrase,
	}
}

// Nonce returns the next signing nonce for this credential.
func (a *APIKey) Nonce() int64 {
	return a.nonces.Next()
}

func (a *APIKey) String() string {
	return fmt.Sprintf("APIKey{ID:%s, Key:%s}", a.ID, MaskKey(a.Key))
}

// MaskKey hides all but the first and last four characters of a key.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
