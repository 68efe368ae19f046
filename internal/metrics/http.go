// SPDX-License-Identifier: MIT

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "json2xmltv_http_requests_total",
		Help: "HTTP requests served by route pattern and status code",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "json2xmltv_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "json2xmltv_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})
)

// ObserveHTTPRequest records one served request. route must be the router
// pattern, never the raw path.
func ObserveHTTPRequest(method, route string, status int, seconds float64) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// IncInFlight marks a request as started.
func IncInFlight() { httpInFlight.Inc() }

// DecInFlight marks a request as finished.
func DecInFlight() { httpInFlight.Dec() }

var httpRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "json2xmltv_http_rate_limited_total",
	Help: "Requests rejected by the per-client rate limiter",
}, []string{"route"})

// IncRateLimited counts a rejected request. route follows ObserveHTTPRequest.
func IncRateLimited(route string) {
	if route == "" {
		route = "unmatched"
	}
	httpRateLimited.WithLabelValues(route).Inc()
}
