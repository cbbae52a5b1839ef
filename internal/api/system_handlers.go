package api

import (
	"context"
	"net/http"

	apidocs "lamconf/docs"
)

func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(apidocs.OpenAPISpec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadinessResponse represents the JSON response for the readiness check endpoint.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleReady reports whether the settings backend is reachable.
// It returns 503 when the check fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := ReadinessResponse{Status: "ok", Checks: map[string]string{"storage": "ok"}}

	type pinger interface {
		Ping(ctx context.Context) error
	}
	var err error
	if p, ok := s.backend.(pinger); ok {
		err = p.Ping(ctx)
	} else {
		_, err = s.backend.GetSettings(ctx)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "readiness check failed", "check", "storage", "error", err.Error())
		resp.Status = "unhealthy"
		resp.Checks["storage"] = "error"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
