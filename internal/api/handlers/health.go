package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/campus-events/server/internal/storage"
)

// Lifecycle tracks whether the server has begun shutting down. Probes report
// 503 once it has, so load balancers drain traffic first.
type Lifecycle struct {
	shuttingDown atomic.Bool
}

func (l *Lifecycle) MarkShuttingDown() {
	l.shuttingDown.Store(true)
}

func (l *Lifecycle) ShuttingDown() bool {
	return l != nil && l.shuttingDown.Load()
}

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	LatencyMs int64                  `json:"latency_ms"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// StoreChecker is the part of the store the health report inspects.
type StoreChecker interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (storage.Stats, error)
}

// HealthChecker serves the detailed /health report.
type HealthChecker struct {
	store     StoreChecker
	lifecycle *Lifecycle
	version   string
	gitCommit string
	timeout   time.Duration
}

func NewHealthChecker(store StoreChecker, lifecycle *Lifecycle, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		store:     store,
		lifecycle: lifecycle,
		version:   version,
		gitCommit: gitCommit,
		timeout:   2 * time.Second,
	}
}

func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.lifecycle.ShuttingDown() {
			respondHealth(w, http.StatusServiceUnavailable, "shutting_down")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		checks := map[string]CheckResult{
			"store": h.checkStore(ctx),
		}

		overallStatus := "healthy"
		statusCode := http.StatusOK
		for _, check := range checks {
			if check.Status == "fail" {
				overallStatus = "unhealthy"
				statusCode = http.StatusServiceUnavailable
				break
			}
		}

		response := HealthCheck{
			Status:    overallStatus,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// checkStore pings the store and reports its record counts.
func (h *HealthChecker) checkStore(ctx context.Context) CheckResult {
	start := time.Now()

	if h.store == nil {
		return CheckResult{Status: "fail", Message: "store not configured"}
	}

	if err := h.store.Ping(ctx); err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   "store ping failed: " + err.Error(),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}

	stats, err := h.store.Stats(ctx)
	if err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   "store stats failed: " + err.Error(),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   "store reachable",
		LatencyMs: time.Since(start).Milliseconds(),
		Details: map[string]interface{}{
			"events":        stats.Events,
			"registrations": stats.Registrations,
			"full_events":   stats.FullEvents,
			"seats_total":   stats.SeatsTotal,
			"seats_taken":   stats.SeatsTaken,
		},
	}
}

// Healthz is the liveness probe.
func Healthz(lifecycle *Lifecycle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lifecycle.ShuttingDown() {
			respondHealth(w, http.StatusServiceUnavailable, "shutting_down")
			return
		}
		respondHealth(w, http.StatusOK, "ok")
	})
}

// Readyz is the readiness probe.
func Readyz(lifecycle *Lifecycle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lifecycle.ShuttingDown() {
			respondHealth(w, http.StatusServiceUnavailable, "shutting_down")
			return
		}
		respondHealth(w, http.StatusOK, "ready")
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondHealth(w http.ResponseWriter, status int, value string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: value})
}
