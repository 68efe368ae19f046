// SPDX-License-Identifier: MIT

// Package health serves the liveness and readiness probes of the converter.
//
// Liveness (/healthz) answers 200 while the process runs; component checks
// are only evaluated with ?verbose=true. Readiness (/readyz) evaluates every
// registered check and answers 503 as soon as one of them is unhealthy.
// Degraded components are reported but keep the service ready.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/json2xmltv/internal/log"
)

// Status is the state of one component or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses so the worst one wins when aggregating.
func (s Status) severity() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// DefaultCheckTimeout bounds a single component check.
const DefaultCheckTimeout = 2 * time.Second

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Checker is a named component check.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Report is the JSON body of both probes.
type Report struct {
	Status        Status                 `json:"status"`
	Ready         bool                   `json:"ready"`
	Version       string                 `json:"version,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	UptimeSeconds int64                  `json:"uptimeSeconds"`
	Checks        map[string]CheckResult `json:"checks,omitempty"`
}

// Manager owns the registered checks.
type Manager struct {
	version      string
	started      time.Time
	checkTimeout time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	checkers []Checker
}

// NewManager returns a manager reporting version.
func NewManager(version string) *Manager {
	return &Manager{
		version:      version,
		started:      time.Now(),
		checkTimeout: DefaultCheckTimeout,
		now:          time.Now,
	}
}

// RegisterChecker adds c. Safe to call while probes are being served.
func (m *Manager) RegisterChecker(c Checker) {
	m.mu.Lock()
	m.checkers = append(m.checkers, c)
	m.mu.Unlock()
}

// Health builds the liveness report. Components are only checked when verbose
// is set; the service stays ready either way.
func (m *Manager) Health(ctx context.Context, verbose bool) Report {
	rep := m.newReport()
	if verbose {
		m.evaluate(ctx, &rep)
	}
	rep.Ready = true
	return rep
}

// Ready builds the readiness report.
func (m *Manager) Ready(ctx context.Context) Report {
	rep := m.newReport()
	m.evaluate(ctx, &rep)
	return rep
}

func (m *Manager) newReport() Report {
	now := m.now()
	return Report{
		Status:        StatusHealthy,
		Ready:         true,
		Version:       m.version,
		Timestamp:     now.UTC(),
		UptimeSeconds: int64(now.Sub(m.started).Seconds()),
	}
}

// evaluate runs every check concurrently, each under its own deadline.
func (m *Manager) evaluate(ctx context.Context, rep *Report) {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()
	if len(checkers) == 0 {
		return
	}

	results := make([]CheckResult, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, m.checkTimeout)
			defer cancel()
			results[i] = c.Check(cctx)
		}()
	}
	wg.Wait()

	rep.Checks = make(map[string]CheckResult, len(checkers))
	for i, c := range checkers {
		res := results[i]
		rep.Checks[c.Name()] = res
		if res.Status.severity() > rep.Status.severity() {
			rep.Status = res.Status
		}
	}
	rep.Ready = rep.Status != StatusUnhealthy
}

// ServeHealth is the liveness handler. It always answers 200.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	rep := m.Health(r.Context(), r.URL.Query().Get("verbose") == "true")
	writeReport(w, r, http.StatusOK, rep, "health.checked")
}

// ServeReady is the readiness handler: 200 when ready, 503 otherwise.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	rep := m.Ready(r.Context())
	code := http.StatusOK
	if !rep.Ready {
		code = http.StatusServiceUnavailable
	}
	writeReport(w, r, code, rep, "readiness.checked")
}

func writeReport(w http.ResponseWriter, r *http.Request, code int, rep Report, event string) {
	logger := log.WithComponentFromContext(r.Context(), "health")

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "health.write_failed").Msg("failed to write probe response")
		return
	}

	logger.Debug().
		Str(log.FieldEvent, event).
		Str("status", string(rep.Status)).
		Bool("ready", rep.Ready).
		Msg("probe answered")
}
