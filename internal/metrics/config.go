// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "json2xmltv_config_reloads_total",
		Help: "Configuration reloads by result (success, failure)",
	}, []string{"result"})

	configLastReload = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "json2xmltv_config_last_reload_success_timestamp_seconds",
		Help: "Unix time of the last configuration reload that was applied",
	})

	configValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "json2xmltv_config_validation_errors_total",
		Help: "Configurations rejected by validation",
	})
)

// RecordConfigReload counts a reload attempt; err is the load result.
func RecordConfigReload(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	} else {
		configLastReload.SetToCurrentTime()
	}
	configReloads.WithLabelValues(result).Inc()
}

// IncConfigValidationError counts a rejected configuration.
func IncConfigValidationError() { configValidationErrors.Inc() }
