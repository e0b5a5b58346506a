// Package circuitbreaker stops a session from hammering a venue that keeps
// failing at the transport level.
package circuitbreaker

import (
	"sync"
	"time"

	"strongbridge/pkg/core"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	// FailThreshold consecutive failures open the breaker. Zero disables it.
	FailThreshold int `json:"fail_threshold" yaml:"fail_threshold"`
	// SuccessThreshold half-open successes close it again.
	SuccessThreshold int `json:"success_threshold" yaml:"success_threshold"`
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
}

type Breaker struct {
	mu        sync.Mutex
	cfg       Config
	state     State
	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time
	changes   int
}

func New(cfg Config) *Breaker {
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// WithClock replaces the breaker's time source.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.now = now
	return b
}

// Allow reports whether a call may proceed. An open breaker turns half-open
// once the cooldown has passed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.FailThreshold <= 0 {
		return true
	}
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return false
		}
		b.transitionLocked(StateHalfOpen)
	}
	return true
}

// Record feeds the outcome of a call. Only transport-level failures count:
// a venue that answers with a classified rejection is healthy.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.FailThreshold <= 0 {
		return
	}

	if !Trips(err) {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.transitionLocked(StateClosed)
			}
		}
		return
	}

	switch b.state {
	case StateHalfOpen:
		b.open()
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailThreshold {
			b.open()
		}
	}
}

// Trips reports whether err counts as a breaker failure.
func Trips(err error) bool {
	if err == nil {
		return false
	}
	switch core.ErrorTypeOf(err) {
	case core.ErrorTypeNetwork, core.ErrorTypeTimeout, core.ErrorTypeServerError:
		return true
	}
	return false
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.transitionLocked(StateOpen)
}

func (b *Breaker) transitionLocked(s State) {
	if b.state == s {
		return
	}
	b.state = s
	b.failures = 0
	b.successes = 0
	b.changes++
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionLocked(StateClosed)
}

// StateChanges counts transitions since creation.
func (b *Breaker) StateChanges() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changes
}
