// SPDX-License-Identifier: MIT

package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Labels whose values are unbounded: one series per request, URL or channel.
var unboundedLabels = map[string]bool{
	"request_id": true,
	"url":        true,
	"source_url": true,
	"path":       true,
	"channel":    true,
	"channel_id": true,
}

func TestMetrics_NoUnboundedLabels(t *testing.T) {
	// Touch every vector so that each family has at least one series.
	SetCircuitBreakerState("upstream:example.com", "closed")
	RecordCircuitBreakerTrip("upstream:example.com", "threshold_exceeded")
	RecordConfigReload(nil)
	RecordConfigReload(errors.New("x"))
	RecordConversion("url", "ok", 0.1)
	RecordDocument(1, 1, 0, 10)
	AddRecordsSkipped("start_missing", 1)
	ObserveHTTPRequest("GET", "/translate", 200, 0.1)
	IncRateLimited("/convert")
	ObserveUpstreamFetch("success", 0.1, 10)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	seen := 0
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "json2xmltv_") {
			continue
		}
		seen++
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				assert.False(t, unboundedLabels[lp.GetName()],
					"%s carries unbounded label %q", mf.GetName(), lp.GetName())
			}
		}
	}
	assert.Greater(t, seen, 10)
}

func TestObserveHTTPRequest_EmptyRouteIsUnmatched(t *testing.T) {
	ObserveHTTPRequest("GET", "", 404, 0.01)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "json2xmltv_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "route" {
					assert.NotEmpty(t, lp.GetValue())
				}
			}
		}
	}
}
