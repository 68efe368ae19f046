// SPDX-License-Identifier: MIT

// Package ratelimit throttles outbound fetches per upstream host.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a request would wait longer than MaxWait.
var ErrRateLimited = errors.New("upstream rate limit exceeded")

var (
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "json2xmltv",
			Name:      "upstream_ratelimit_exceeded_total",
			Help:      "Total outbound fetches refused by the upstream rate limiter",
		},
		[]string{"limit_type"},
	)
)

// Config holds rate limiting configuration.
type Config struct {
	// Global limits across all hosts
	GlobalRate  rate.Limit
	GlobalBurst int

	// Per-host limits
	PerHostRate  rate.Limit
	PerHostBurst int

	// MaxWait bounds how long Wait queues a request before giving up.
	MaxWait time.Duration

	// Cleanup interval for idle per-host limiters
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		GlobalRate:      50,
		GlobalBurst:     100,
		PerHostRate:     5,
		PerHostBurst:    10,
		MaxWait:         2 * time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

type hostLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter manages outbound rate limiting.
type Limiter struct {
	config Config

	global  *rate.Limiter
	perHost map[string]*hostLimiter
	mu      sync.Mutex

	lastCleanup time.Time
	now         func() time.Time
}

// New creates a new rate limiter with the given config.
func New(config Config) *Limiter {
	def := DefaultConfig()
	if config.GlobalRate <= 0 {
		config.GlobalRate = def.GlobalRate
	}
	if config.GlobalBurst <= 0 {
		config.GlobalBurst = def.GlobalBurst
	}
	if config.PerHostRate <= 0 {
		config.PerHostRate = def.PerHostRate
	}
	if config.PerHostBurst <= 0 {
		config.PerHostBurst = def.PerHostBurst
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	return &Limiter{
		config:      config,
		global:      rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perHost:     make(map[string]*hostLimiter),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow reports whether a fetch to host may proceed right now.
func (l *Limiter) Allow(host string) bool {
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global").Inc()
		return false
	}
	if !l.hostLimiter(host).Allow() {
		rateLimitExceeded.WithLabelValues("per_host").Inc()
		return false
	}
	return true
}

// Wait blocks until a fetch to host may proceed, the context ends, or the
// required delay would exceed MaxWait.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if err := l.wait(ctx, l.global, "global"); err != nil {
		return err
	}
	return l.wait(ctx, l.hostLimiter(host), "per_host")
}

func (l *Limiter) wait(ctx context.Context, lim *rate.Limiter, kind string) error {
	r := lim.Reserve()
	if !r.OK() {
		rateLimitExceeded.WithLabelValues(kind).Inc()
		return ErrRateLimited
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if l.config.MaxWait <= 0 || delay > l.config.MaxWait {
		r.Cancel()
		rateLimitExceeded.WithLabelValues(kind).Inc()
		return ErrRateLimited
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// hostLimiter returns the rate limiter for a specific host.
func (l *Limiter) hostLimiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanupLocked(now)

	hl, ok := l.perHost[host]
	if !ok {
		hl = &hostLimiter{limiter: rate.NewLimiter(l.config.PerHostRate, l.config.PerHostBurst)}
		l.perHost[host] = hl
	}
	hl.lastSeen = now
	return hl.limiter
}

// cleanupLocked drops limiters idle for longer than CleanupInterval.
func (l *Limiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < l.config.CleanupInterval {
		return
	}
	for host, hl := range l.perHost {
		if now.Sub(hl.lastSeen) >= l.config.CleanupInterval {
			delete(l.perHost, host)
		}
	}
	l.lastCleanup = now
}

// Hosts returns the number of tracked hosts.
func (l *Limiter) Hosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perHost)
}
