// SPDX-License-Identifier: MIT
package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func getGaugeVecValue(t *testing.T, gaugeVec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	return getGaugeValue(t, gaugeVec.WithLabelValues(labels...))
}

func getCounterVecValue(t *testing.T, counterVec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	return getCounterValue(t, counterVec.WithLabelValues(labels...))
}

func getHistogramCount(t *testing.T, obs prometheus.Observer) uint64 {
	t.Helper()
	m, ok := obs.(prometheus.Metric)
	require.True(t, ok)
	metric := &dto.Metric{}
	require.NoError(t, m.Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestRecordConversion(t *testing.T) {
	before := getCounterVecValue(t, conversionsTotal, "url", OutcomeSuccess)
	beforeObs := getHistogramCount(t, conversionDuration.WithLabelValues("url"))

	RecordConversion("url", OutcomeSuccess, 0.25)

	assert.Equal(t, before+1, getCounterVecValue(t, conversionsTotal, "url", OutcomeSuccess))
	assert.Equal(t, beforeObs+1, getHistogramCount(t, conversionDuration.WithLabelValues("url")))
}

func TestRecordConversion_NormalizesLabels(t *testing.T) {
	before := getCounterVecValue(t, conversionsTotal, "unknown", "unknown")

	RecordConversion("ftp", "exploded", 0)

	assert.Equal(t, before+1, getCounterVecValue(t, conversionsTotal, "unknown", "unknown"))
}

func TestRecordDocument(t *testing.T) {
	channels := getCounterValue(t, channelsEmitted)
	programmes := getCounterValue(t, programmesEmitted)
	negative := getCounterValue(t, negativeDurations)

	RecordDocument(2, 5, 1, 4096)

	assert.Equal(t, channels+2, getCounterValue(t, channelsEmitted))
	assert.Equal(t, programmes+5, getCounterValue(t, programmesEmitted))
	assert.Equal(t, negative+1, getCounterValue(t, negativeDurations))
}

func TestAddRecordsSkipped(t *testing.T) {
	tests := []struct {
		reason string
		label  string
		n      int
		want   float64
	}{
		{reason: "start_missing", label: "start_missing", n: 2, want: 2},
		{reason: "STOP_UNRESOLVABLE", label: "stop_unresolvable", n: 1, want: 1},
		{reason: "bogus", label: "unknown", n: 3, want: 3},
		{reason: "start_unparsable", label: "start_unparsable", n: 0, want: 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.reason, func(t *testing.T) {
			before := getCounterVecValue(t, recordsSkipped, tt.label)
			AddRecordsSkipped(tt.reason, tt.n)
			assert.Equal(t, before+tt.want, getCounterVecValue(t, recordsSkipped, tt.label))
		})
	}
}

func TestObserveUpstreamFetch(t *testing.T) {
	beforeBytes := getCounterValue(t, upstreamFetchBytes)
	beforeObs := getHistogramCount(t, upstreamFetchDuration.WithLabelValues("timeout"))

	ObserveUpstreamFetch("timeout", 10, 0)
	ObserveUpstreamFetch("success", 0.1, 512)

	assert.Equal(t, beforeObs+1, getHistogramCount(t, upstreamFetchDuration.WithLabelValues("timeout")))
	assert.Equal(t, beforeBytes+512, getCounterValue(t, upstreamFetchBytes))
}

func TestAllowlistMetrics(t *testing.T) {
	before := testutil.ToFloat64(allowlistRejections)
	IncAllowlistRejection()
	assert.Equal(t, before+1, testutil.ToFloat64(allowlistRejections))

	SetAllowlistEntries(2)
	assert.Equal(t, 2.0, getGaugeValue(t, allowlistEntries))
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("upstream:example.com", "open")

	assert.Equal(t, 1.0, getGaugeVecValue(t, circuitBreakerState, "upstream:example.com", "open"))
	assert.Equal(t, 0.0, getGaugeVecValue(t, circuitBreakerState, "upstream:example.com", "closed"))
	assert.Equal(t, 0.0, getGaugeVecValue(t, circuitBreakerState, "upstream:example.com", "half-open"))

	before := getCounterVecValue(t, circuitBreakerTrips, "upstream:example.com", "threshold_exceeded")
	RecordCircuitBreakerTrip("upstream:example.com", "threshold_exceeded")
	assert.Equal(t, before+1, getCounterVecValue(t, circuitBreakerTrips, "upstream:example.com", "threshold_exceeded"))
}

func TestObserveHTTPRequest(t *testing.T) {
	before := getCounterVecValue(t, httpRequestsTotal, "GET", "unmatched", "404")
	ObserveHTTPRequest("GET", "", 404, 0.001)
	assert.Equal(t, before+1, getCounterVecValue(t, httpRequestsTotal, "GET", "unmatched", "404"))

	IncInFlight()
	inFlight := getGaugeValue(t, httpInFlight)
	DecInFlight()
	assert.Equal(t, inFlight-1, getGaugeValue(t, httpInFlight))
}

func TestRecordConfigReload(t *testing.T) {
	ok := getCounterVecValue(t, configReloads, "success")
	failed := getCounterVecValue(t, configReloads, "failure")

	RecordConfigReload(nil)
	RecordConfigReload(errors.New("boom"))

	assert.Equal(t, ok+1, getCounterVecValue(t, configReloads, "success"))
	assert.Equal(t, failed+1, getCounterVecValue(t, configReloads, "failure"))
	assert.Positive(t, getGaugeValue(t, configLastReload))

	before := getCounterValue(t, configValidationErrors)
	IncConfigValidationError()
	assert.Equal(t, before+1, getCounterValue(t, configValidationErrors))
}

func TestIncRateLimited(t *testing.T) {
	before := testutil.ToFloat64(httpRateLimited.WithLabelValues("unmatched"))
	IncRateLimited("")
	assert.Equal(t, before+1, testutil.ToFloat64(httpRateLimited.WithLabelValues("unmatched")))
}
