package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/nerrad567/graydb/internal/dbal"
)

// healthCheckTimeout bounds each probe made by the health endpoint.
const healthCheckTimeout = 5 * time.Second

// Health states.
const (
	statusOK        = "ok"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Database      DatabaseHealth    `json:"database"`
	Components    map[string]string `json:"components,omitempty"`
}

// DatabaseHealth describes the shared connection.
type DatabaseHealth struct {
	Driver    string `json:"driver"`
	Connected bool   `json:"connected"`
	Errno     int    `json:"errno"`
	Error     string `json:"error,omitempty"`
}

// pinger is implemented by drivers that can probe the backend.
type pinger interface {
	HealthCheck(ctx context.Context) error
}

// handleHealth reports database and component health.
// The database decides the status code; a failing component only degrades.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:        statusOK,
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}

	err := s.db.Do(func(c *dbal.Conn) error {
		resp.Database.Driver = c.Name()
		resp.Database.Connected = c.Connected()
		resp.Database.Errno = c.Errno()
		return probe(ctx, c)
	})
	if err != nil {
		resp.Status = statusUnhealthy
		resp.Database.Error = err.Error()
	}

	if len(s.checks) > 0 {
		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Components = make(map[string]string, len(names))
		for _, name := range names {
			check := s.checks[name]
			if check == nil {
				continue
			}
			if err := check.HealthCheck(ctx); err != nil {
				resp.Components[name] = err.Error()
				if resp.Status == statusOK {
					resp.Status = statusDegraded
				}
				continue
			}
			resp.Components[name] = statusOK
		}
	}

	status := http.StatusOK
	if resp.Status == statusUnhealthy {
		s.logger.Warn("health check failed", "driver", resp.Database.Driver, "error", resp.Database.Error)
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// probe asks the driver to reach its backend when it can, falling back to
// the connection flag.
func probe(ctx context.Context, c *dbal.Conn) error {
	if p, ok := c.Driver().(pinger); ok {
		return p.HealthCheck(ctx)
	}
	if !c.Connected() {
		return fmt.Errorf("database health check failed: %w", dbal.ErrNotConnected)
	}
	return nil
}

// handleAttributes returns the connection's attribute store. Enumerated
// values are rendered by name.
func (s *Server) handleAttributes(w http.ResponseWriter, _ *http.Request) {
	var snap map[string]any
	//nolint:errcheck // The callback cannot fail
	s.db.Do(func(c *dbal.Conn) error {
		snap = c.Attributes().Snapshot()
		return nil
	})

	for k, v := range snap {
		if str, ok := v.(fmt.Stringer); ok {
			snap[k] = str.String()
		}
	}
	writeJSON(w, http.StatusOK, snap)
}
