// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/ManuGH/json2xmltv/internal/api/middleware"
	"github.com/ManuGH/json2xmltv/internal/api/problem"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, "system/not_found", "Not Found", "NOT_FOUND", "", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed", "Method Not Allowed",
			"METHOD_NOT_ALLOWED", "", nil)
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.cfg.RateLimit))
		r.Get("/translate", s.handleTranslate)
		r.Post("/convert", s.handleConvert)
	})

	return r
}
