package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// healthTimeout bounds each dependency probe.
const healthTimeout = 2 * time.Second

// Check probes one dependency.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Health reports whether the server and its dependencies are reachable.
type Health struct {
	checks []Check
}

// NewHealth creates the health handler.
func NewHealth(checks ...Check) *Health {
	return &Health{checks: checks}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ServeHTTP answers 200 with {"status":"ok"} when every check passes and
// 503 with the failing checks otherwise. Error details stay in the log.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	code := http.StatusOK

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := c.Ping(ctx)
		cancel()

		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(h.checks))
		}
		if err != nil {
			slog.Warn("health check failed", "check", c.Name, "error", err)
			resp.Checks[c.Name] = "unavailable"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
