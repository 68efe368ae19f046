// SPDX-License-Identifier: MIT

package resilience

import (
	"maps"
	"sync"
	"time"
)

// Registry lazily creates one CircuitBreaker per key, all sharing the same
// settings. The fetcher keys it by upstream host.
type Registry struct {
	prefix    string
	threshold int
	cooldown  time.Duration
	opts      []Option

	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry returns a registry whose breakers are named prefix + ":" + key.
func NewRegistry(prefix string, threshold int, cooldown time.Duration, opts ...Option) *Registry {
	return &Registry{
		prefix:    prefix,
		threshold: threshold,
		cooldown:  cooldown,
		opts:      opts,
		breakers:  make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for key, creating it on first use.
func (r *Registry) Get(key string) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[key]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[key]; ok {
		return cb
	}
	cb = NewCircuitBreaker(r.prefix+":"+key, r.threshold, r.cooldown, r.opts...)
	r.breakers[key] = cb
	return cb
}

// States snapshots the state of every breaker created so far, keyed by key.
func (r *Registry) States() map[string]State {
	r.mu.RLock()
	breakers := maps.Clone(r.breakers)
	r.mu.RUnlock()

	out := make(map[string]State, len(breakers))
	for key, cb := range breakers {
		out[key] = cb.State()
	}
	return out
}
