package handler

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Pinger checks connectivity to a dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check requests
type HealthHandler struct {
	deps    map[string]Pinger
	version string
	started time.Time
}

// NewHealthHandler creates a health handler over named dependencies such as "database" and "redis"
func NewHealthHandler(version string, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		deps:    deps,
		version: version,
		started: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
	Uptime  string            `json:"uptime,omitempty"`
}

func (h *HealthHandler) check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.deps[name].Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			healthy = false
			continue
		}
		checks[name] = "healthy"
	}
	return checks, healthy
}

// GetLiveness handles GET /health/live
func (h *HealthHandler) GetLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "alive"}, http.StatusOK)
}

// GetReadiness handles GET /health/ready
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	if _, healthy := h.check(r.Context()); !healthy {
		respondJSON(w, map[string]string{"status": "not ready"}, http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// GetHealth handles GET /health with per-dependency detail
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	checks, healthy := h.check(r.Context())

	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Checks:  checks,
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, resp, status)
}
