// SPDX-License-Identifier: MIT

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "json2xmltv_conversions_total",
		Help: "Total number of feed conversions by source and outcome",
	}, []string{"source", "outcome"}) // source=url|upload|file, outcome=success|rejected|fetch_error|conversion_error

	channelsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "json2xmltv_channels_emitted_total",
		Help: "Total number of channel elements written to XMLTV documents",
	})

	programmesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "json2xmltv_programmes_emitted_total",
		Help: "Total number of programme elements written to XMLTV documents",
	})

	recordsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "json2xmltv_records_skipped_total",
		Help: "Schedule records dropped during conversion by reason",
	}, []string{"reason"})

	negativeDurations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "json2xmltv_negative_duration_programmes_total",
		Help: "Programmes emitted with a stop time earlier than their start time",
	})

	conversionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "json2xmltv_conversion_duration_seconds",
		Help:    "End-to-end conversion latency by source",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	documentBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "json2xmltv_document_bytes",
		Help:    "Size of generated XMLTV documents",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})
)

// Conversion outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeRejected        = "rejected"
	OutcomeFetchError      = "fetch_error"
	OutcomeConversionError = "conversion_error"
)

// RecordConversion records one finished conversion attempt.
func RecordConversion(source, outcome string, seconds float64) {
	src := normalizeSourceLabel(source)
	conversionsTotal.WithLabelValues(src, normalizeOutcomeLabel(outcome)).Inc()
	conversionDuration.WithLabelValues(src).Observe(seconds)
}

// RecordDocument records the shape of a successfully generated document.
func RecordDocument(channels, programmes, negative, bytes int) {
	channelsEmitted.Add(float64(channels))
	programmesEmitted.Add(float64(programmes))
	negativeDurations.Add(float64(negative))
	documentBytes.Observe(float64(bytes))
}

// AddRecordsSkipped increments the skip counter for reason by n.
func AddRecordsSkipped(reason string, n int) {
	if n <= 0 {
		return
	}
	recordsSkipped.WithLabelValues(normalizeSkipReasonLabel(reason)).Add(float64(n))
}

func normalizeSourceLabel(source string) string {
	switch s := strings.ToLower(strings.TrimSpace(source)); s {
	case "url", "upload", "file":
		return s
	default:
		return "unknown"
	}
}

func normalizeOutcomeLabel(outcome string) string {
	switch o := strings.ToLower(strings.TrimSpace(outcome)); o {
	case OutcomeSuccess, OutcomeRejected, OutcomeFetchError, OutcomeConversionError:
		return o
	default:
		return "unknown"
	}
}

func normalizeSkipReasonLabel(reason string) string {
	switch r := strings.ToLower(strings.TrimSpace(reason)); r {
	case "start_missing", "start_unparsable", "stop_unresolvable":
		return r
	default:
		return "unknown"
	}
}
