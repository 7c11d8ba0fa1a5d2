package observability

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/keygate/keygate/pkg/httputil"
)

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DependencyStatus describes the health of a single dependency.
type DependencyStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthStatus is the aggregate health report.
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// HealthChecker probes the service's dependencies. Redis is optional; when
// it is down the service degrades (rate limiting fails open) rather than
// going unhealthy.
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client
}

// NewHealthChecker creates a health checker for the given dependencies.
// Either may be nil, in which case that probe is skipped.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient}
}

// Liveness reports whether the process itself is running. It never touches
// dependencies so a wedged database cannot get the pod restarted.
func (h *HealthChecker) Liveness(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
	}
}

// Readiness reports whether the service can serve traffic.
func (h *HealthChecker) Readiness(ctx context.Context) HealthStatus {
	return h.Check(ctx)
}

// Check probes all configured dependencies and aggregates their status.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		dep := h.checkDatabase(ctx)
		status.Dependencies["postgres"] = dep
		if dep.Status != StatusHealthy {
			status.Status = StatusUnhealthy
		}
	}

	if h.redis != nil {
		dep := h.checkRedis(ctx)
		status.Dependencies["redis"] = dep
		if dep.Status != StatusHealthy && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return DependencyStatus{Status: StatusUnhealthy, Error: err.Error()}
	}

	var one int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return DependencyStatus{Status: StatusUnhealthy, Error: err.Error()}
	}

	return DependencyStatus{
		Status:  StatusHealthy,
		Latency: time.Since(start).String(),
	}
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return DependencyStatus{Status: StatusUnhealthy, Error: err.Error()}
	}

	return DependencyStatus{
		Status:  StatusHealthy,
		Latency: time.Since(start).String(),
	}
}

// RegisterHealthRoutes mounts /health, /health/live and /health/ready on the
// given mux. Readiness and the full check return 503 when unhealthy so load
// balancers drain the instance.
func (h *HealthChecker) RegisterHealthRoutes(mux *http.ServeMux) {
	writeStatus := func(w http.ResponseWriter, status HealthStatus) {
		code := http.StatusOK
		if status.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, status)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, h.Check(r.Context()))
	})
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, h.Liveness(r.Context()))
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, h.Readiness(r.Context()))
	})
}
