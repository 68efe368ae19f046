// SPDX-License-Identifier: MIT

// Package resilience keeps a failing upstream host from being hammered.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/json2xmltv/internal/log"
	"github.com/ManuGH/json2xmltv/internal/metrics"
)

// State of a CircuitBreaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrCircuitOpen is returned by Execute without calling fn.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const (
	defaultThreshold = 5
	defaultCooldown  = 30 * time.Second
)

// CircuitBreaker opens after threshold consecutive failures. Once cooldown
// has elapsed it lets exactly one probe through: success closes it, failure
// reopens it for another cooldown.
//
// Every transition starts a new generation. Results of calls admitted in an
// earlier generation are ignored, so a slow call that started while closed
// cannot close a breaker that has since opened.
type CircuitBreaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	isFailure func(error) bool

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	openedAt   time.Time
	probing    bool
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) { cb.now = now }
}

// WithFailurePredicate restricts which errors count as failures. Errors it
// rejects are returned to the caller but count as successes.
func WithFailurePredicate(fn func(error) bool) Option {
	return func(cb *CircuitBreaker) { cb.isFailure = fn }
}

// NewCircuitBreaker returns a closed breaker. Non-positive threshold or
// cooldown select the defaults of 5 failures and 30s.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration, opts ...Option) *CircuitBreaker {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	cb := &CircuitBreaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		isFailure: func(error) bool { return true },
		state:     StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	metrics.SetCircuitBreakerState(name, string(StateClosed))
	return cb
}

// Execute runs fn unless the breaker refuses the call.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.settle(gen, err == nil || !cb.isFailure(err))
	return err
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cooldown {
		cb.setState(StateHalfOpen)
	}
	switch cb.state {
	case StateOpen:
		return 0, ErrCircuitOpen
	case StateHalfOpen:
		if cb.probing {
			return 0, ErrCircuitOpen
		}
		cb.probing = true
	}
	return cb.generation, nil
}

func (cb *CircuitBreaker) settle(gen uint64, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if gen != cb.generation {
		return
	}
	switch {
	case ok && cb.state == StateHalfOpen:
		cb.setState(StateClosed)
	case ok:
		cb.failures = 0
	case cb.state == StateHalfOpen:
		metrics.RecordCircuitBreakerTrip(cb.name, "probe_failed")
		cb.setState(StateOpen)
	default:
		cb.failures++
		if cb.failures >= cb.threshold {
			metrics.RecordCircuitBreakerTrip(cb.name, "threshold_exceeded")
			cb.setState(StateOpen)
		}
	}
}

// setState moves to next and starts a new generation. Caller holds mu.
func (cb *CircuitBreaker) setState(next State) {
	prev := cb.state
	cb.state = next
	cb.generation++
	cb.failures = 0
	cb.probing = false
	if next == StateOpen {
		cb.openedAt = cb.now()
	}
	metrics.SetCircuitBreakerState(cb.name, string(next))

	logger := log.WithComponent("resilience")
	ev := logger.Info()
	if next == StateOpen {
		ev = logger.Warn()
	}
	ev.Str(log.FieldEvent, "breaker.state_change").
		Str("breaker", cb.name).
		Str("from", string(prev)).
		Str("to", string(next)).
		Msg("circuit breaker changed state")
}

// State returns the current state. An open breaker whose cooldown has passed
// still reports open until the next call is admitted.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the breaker name used in metrics and logs.
func (cb *CircuitBreaker) Name() string { return cb.name }
