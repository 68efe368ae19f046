// SPDX-License-Identifier: MIT

package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/json2xmltv/internal/api/problem"
	"github.com/ManuGH/json2xmltv/internal/log"
	"github.com/ManuGH/json2xmltv/internal/metrics"
	"github.com/go-chi/httprate"
)

// RateLimitConfig bounds conversions per client IP. A zero RequestLimit
// disables limiting; a zero WindowSize means one minute.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
}

func (c RateLimitConfig) enabled() bool { return c.RequestLimit > 0 }

func (c RateLimitConfig) window() time.Duration {
	if c.WindowSize <= 0 {
		return time.Minute
	}
	return c.WindowSize
}

// RateLimit applies a sliding-window limit shared by all routes it wraps.
// Rejections answer 429 with Retry-After and a problem body.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.enabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	window := cfg.window()
	retryAfter := strconv.Itoa(int(math.Ceil(window.Seconds())))

	return httprate.Limit(cfg.RequestLimit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			route := routePattern(r)
			metrics.IncRateLimited(route)
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Debug().
				Str(log.FieldEvent, "http.rate_limited").
				Str("route", route).
				Msg("request rejected by rate limiter")

			w.Header().Set("Retry-After", retryAfter)
			problem.Write(w, r, http.StatusTooManyRequests, "system/rate_limited", "Too Many Requests",
				"RATE_LIMIT_EXCEEDED", "Too many requests, retry later.", nil)
		}),
	)
}
