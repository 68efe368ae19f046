// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var breakerStates = []string{"closed", "half-open", "open"}

var (
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "json2xmltv_circuit_breaker_state",
		Help: "1 for the current state of each upstream circuit breaker, 0 for the others.",
	}, []string{"breaker", "state"})

	circuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "json2xmltv_circuit_breaker_trips_total",
		Help: "Transitions of an upstream circuit breaker into the open state.",
	}, []string{"breaker", "reason"})
)

// SetCircuitBreakerState marks state as the current state of breaker.
func SetCircuitBreakerState(breaker, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		circuitBreakerState.WithLabelValues(breaker, s).Set(v)
	}
}

// RecordCircuitBreakerTrip counts breaker opening; reason is
// threshold_exceeded or probe_failed.
func RecordCircuitBreakerTrip(breaker, reason string) {
	circuitBreakerTrips.WithLabelValues(breaker, reason).Inc()
}
