// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP ingress middleware of the API server.
package middleware

import (
	"net/http"

	xglog "github.com/ManuGH/json2xmltv/internal/log"
	"github.com/go-chi/chi/v5"
)

// StackConfig selects the optional layers of the ingress stack.
type StackConfig struct {
	EnableSecurityHeaders bool
	CSP                   string
	EnableMetrics         bool
	TracingService        string // empty disables tracing
	EnableLogging         bool
}

// Stack returns the ingress middleware, outermost first. Recoverer and
// RequestID are always present; the access log comes last so it sees the
// request id, the span and the final status.
func Stack(cfg StackConfig) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{Recoverer, RequestID}
	if cfg.EnableSecurityHeaders {
		mws = append(mws, SecurityHeaders(cfg.CSP))
	}
	if cfg.EnableMetrics {
		mws = append(mws, Metrics())
	}
	if cfg.TracingService != "" {
		mws = append(mws, OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		mws = append(mws, xglog.Middleware())
	}
	return mws
}

// NewRouter returns a chi router with Stack(cfg) installed. Rate limiting is
// attached per route group by the caller.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Stack(cfg)...)
	return r
}
