// SPDX-License-Identifier: MIT

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "json2xmltv_upstream_fetch_duration_seconds",
		Help:    "Latency of upstream feed fetches by outcome",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})

	upstreamFetchBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "json2xmltv_upstream_fetch_bytes_total",
		Help: "Total bytes read from upstream feeds",
	})

	allowlistRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "json2xmltv_allowlist_rejections_total",
		Help: "Translate requests refused because the source host is not allowlisted",
	})

	allowlistEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "json2xmltv_allowlist_entries",
		Help: "Number of domains in the active allowlist",
	})
)

// ObserveUpstreamFetch records one upstream fetch and the bytes it returned.
func ObserveUpstreamFetch(outcome string, seconds float64, bytes int) {
	upstreamFetchDuration.WithLabelValues(normalizeFetchOutcomeLabel(outcome)).Observe(seconds)
	if bytes > 0 {
		upstreamFetchBytes.Add(float64(bytes))
	}
}

// IncAllowlistRejection counts a refused source URL.
func IncAllowlistRejection() { allowlistRejections.Inc() }

// SetAllowlistEntries publishes the size of the active allowlist.
func SetAllowlistEntries(n int) { allowlistEntries.Set(float64(n)) }

func normalizeFetchOutcomeLabel(outcome string) string {
	switch o := strings.ToLower(strings.TrimSpace(outcome)); o {
	case "success", "timeout", "unavailable", "status", "bad_response", "too_large", "circuit_open", "rate_limited":
		return o
	default:
		return "unknown"
	}
}
