package llm

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is the circuit breaker's mode.
type BreakerState int

const (
	// BreakerClosed passes requests through normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen fails fast after repeated failures.
	BreakerOpen
	// BreakerHalfOpen probes with limited requests after the open
	// timeout elapses.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrBreakerOpen is returned when the breaker is rejecting requests.
var ErrBreakerOpen = errors.New("model API circuit breaker is open")

// Breaker prevents hammering a failing model API. Consecutive failures
// open it; after openTimeout it half-opens and probes.
type Breaker struct {
	mu sync.Mutex

	state            BreakerState
	failures         int
	successes        int
	lastStateChange  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

// NewBreaker creates a breaker. Thresholds at or below zero get the
// defaults (5 failures to open, 2 successes to close, 30s open).
func NewBreaker(failureThreshold, successThreshold int, openTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}
	return &Breaker{
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
		lastStateChange:  time.Now(),
	}
}

// Allow reports whether a request may proceed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return nil
	case BreakerOpen:
		if time.Since(b.lastStateChange) >= b.openTimeout {
			b.state = BreakerHalfOpen
			b.successes = 0
			b.lastStateChange = time.Now()
			return nil
		}
		return ErrBreakerOpen
	default:
		return nil
	}
}

// RecordSuccess notes a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
			b.lastStateChange = time.Now()
		}
	}
}

// RecordFailure notes a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.state = BreakerOpen
			b.lastStateChange = time.Now()
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.successes = 0
		b.lastStateChange = time.Now()
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
