// Package nonce provides the request timestamp source used to sign private calls.
package nonce

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock func() time.Time

// Source hands out signing nonces in whole seconds. Values never decrease,
// even if the wall clock steps backwards. A Source must be shared by every
// signer using the same credential.
type Source struct {
	mu    sync.Mutex
	clock Clock
	last  int64
	// floor is the lowest value the next nonce may take.
	floor int64
}

// New creates a Source backed by clock. A nil clock uses time.Now.
func New(clock Clock) *Source {
	if clock == nil {
		clock = time.Now
	}
	return &Source{clock: clock}
}

// Next returns the nonce for the next signed request.
func (s *Source) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := max(s.clock().Unix(), s.last, s.floor)
	s.last = n
	return n
}

// Last returns the most recently issued nonce, zero if none.
func (s *Source) Last() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Resync re-reads the clock after an invalid-nonce rejection. The next
// nonce is the current clock or one past the rejected value, whichever is
// greater, so it never repeats or goes below an issued nonce.
func (s *Source) Resync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floor = max(s.clock().Unix(), s.last+1)
}
