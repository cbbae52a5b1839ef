// Package api serves the settings editor over HTTP: an HTML form flow for
// browsers and a JSON endpoint for automation.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"

	"lamconf/internal/audit"
	"lamconf/internal/auth"
	"lamconf/internal/i18n"
	"lamconf/internal/observability"
	"lamconf/internal/storage"
)

// maxFormBytes bounds request bodies of the settings endpoints.
const maxFormBytes = 1 << 20

type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
	Key    string `json:"key,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server wires the settings handlers to their collaborators.
type Server struct {
	mux         *http.ServeMux
	backend     storage.SettingsBackend
	catalog     *i18n.Catalog
	views       *Views
	logger      observability.Logger
	metrics     *observability.Metrics
	auditLogger audit.AuditLogger
	proxies     *TrustedProxyConfig
	hashCost    int
}

// NewServer creates a Server. A nil logger logs JSON to stdout, nil metrics
// disables metrics, and a nil audit logger keeps the trail in memory.
func NewServer(mux *http.ServeMux, backend storage.SettingsBackend, catalog *i18n.Catalog, logger observability.Logger, metrics *observability.Metrics, auditLogger audit.AuditLogger) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	if auditLogger == nil {
		auditLogger = audit.NewMemoryAuditLogger()
	}
	return &Server{
		mux:         mux,
		backend:     backend,
		catalog:     catalog,
		views:       MustViews(),
		logger:      logger.WithComponent("api"),
		metrics:     metrics,
		auditLogger: auditLogger,
		hashCost:    auth.DefaultCost,
	}
}

// SetHashCost overrides the bcrypt cost used when the admin password is rotated.
func (s *Server) SetHashCost(cost int) { s.hashCost = cost }

// SetTrustedProxies makes audit records use X-Forwarded-For from these proxies.
func (s *Server) SetTrustedProxies(p *TrustedProxyConfig) { s.proxies = p }

// RegisterRoutes registers every endpoint. loginLimit wraps the endpoints
// that check the admin password; pass nil to leave them unlimited.
func (s *Server) RegisterRoutes(loginLimit Middleware) {
	if loginLimit == nil {
		loginLimit = func(next http.Handler) http.Handler { return next }
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.HandleFunc("GET /openapi.yaml", s.handleOpenAPISpec)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /config/login", s.handleLogin)
	s.mux.Handle("POST /config/edit", loginLimit(http.HandlerFunc(s.handleEdit)))
	s.mux.Handle("POST /config/save", loginLimit(http.HandlerFunc(s.handleSave)))
	s.mux.Handle("POST /api/v1/settings", loginLimit(http.HandlerFunc(s.handleAPIUpdate)))
}

// LoginRejectHandler answers a rate-limited password attempt in the format
// of the endpoint that was hit.
func (s *Server) LoginRejectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tr := s.translator(r)
		s.logFailure(r.Context(), http.StatusTooManyRequests, "too many login attempts", "")
		if wantsJSON(r) {
			writeJSON(w, http.StatusTooManyRequests, apiError{Error: tr.Translate("request.too_many")})
			return
		}
		s.views.RenderLogin(w, http.StatusTooManyRequests, tr, tr.Translate("request.too_many"))
	})
}

func (s *Server) translator(r *http.Request) *i18n.Printer {
	return s.catalog.For(r.Header.Get("Accept-Language"))
}

// logFailure logs a failed request at warn (4xx) or error (5xx) level;
// 5xx failures are also reported to Sentry.
func (s *Server) logFailure(ctx context.Context, code int, msg, detail string) {
	fields := []any{
		"status", code,
		"error", msg,
	}
	if detail != "" {
		fields = append(fields, "detail", detail)
	}
	if code >= 500 {
		s.logger.ErrorContext(ctx, "request failed", fields...)
		sentry.CaptureMessage(fmt.Sprintf("HTTP %d: %s (detail: %s)", code, msg, detail))
	} else {
		s.logger.WarnContext(ctx, "request failed", fields...)
	}
}

func (s *Server) writeErr(ctx context.Context, w http.ResponseWriter, code int, e apiError) {
	s.logFailure(ctx, code, e.Error, e.Detail)
	writeJSON(w, code, e)
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }
