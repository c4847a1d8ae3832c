package http

import (
	"net/http"
	"time"

	"trading-mcp/internal/handler/http/respond"
	"trading-mcp/internal/pipeline"
	"trading-mcp/internal/resilience/circuitbreaker"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "degraded"
	Timestamp string                 `json:"timestamp"` // ISO 8601 format
	Checks    map[string]CheckStatus `json:"checks,omitempty"`
	Version   string                 `json:"version"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// LiveHandler returns a liveness handler. It reports healthy as long as the
// process can serve requests; upstream state is intentionally ignored.
func LiveHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().Format(time.RFC3339),
			Version:   version,
		})
	}
}

// PipelinesHealthHandler returns a readiness handler that reports per-pipeline
// cache and circuit breaker state. An open breaker means the upstream behind
// that pipeline is unreachable, so the endpoint answers 503 until it recovers.
// Half-open counts as degraded but ready: probe traffic is already flowing.
func PipelinesHealthHandler(version string, pipelines []*pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overall := "healthy"
		code := http.StatusOK
		checks := make(map[string]CheckStatus, len(pipelines))

		for _, p := range pipelines {
			stats := p.Stats()
			check := CheckStatus{
				Status: "healthy",
				Details: map[string]any{
					"cache":           stats.Cache,
					"circuit_breaker": stats.Breaker,
				},
			}
			switch stats.Breaker.State {
			case circuitbreaker.StateOpen:
				check.Status = "unhealthy"
				check.Message = "circuit breaker open"
				overall = "degraded"
				code = http.StatusServiceUnavailable
			case circuitbreaker.StateHalfOpen:
				check.Status = "degraded"
				check.Message = "circuit breaker half-open"
				if overall == "healthy" {
					overall = "degraded"
				}
			}
			checks[p.Name()] = check
		}

		respond.JSON(w, code, HealthResponse{
			Status:    overall,
			Timestamp: time.Now().Format(time.RFC3339),
			Checks:    checks,
			Version:   version,
		})
	}
}
