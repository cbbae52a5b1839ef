package api

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"lamconf/internal/observability"
)

const (
	requestIDHeader        = "X-Request-ID"
	maxRequestIDLength     = 64
	rateLimiterVisitorTTL  = 5 * time.Minute
	defaultRateLimitRPS    = 100.0
	defaultRateLimitBurst  = 200
	minimumCleanupInterval = 30 * time.Second
	loginLimiterTTL        = 10 * time.Minute
)

// Middleware represents an HTTP middleware that wraps a handler.
type Middleware func(http.Handler) http.Handler

// ApplyMiddlewares applies the provided middleware in order, where the first middleware
// in the list is the outermost handler.
func ApplyMiddlewares(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RateLimitConfig configures the token bucket rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	Proxies           *TrustedProxyConfig
}

// Enabled reports whether rate limiting should be enforced.
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerSecond > 0 && c.Burst > 0
}

// DefaultRateLimitConfig returns 100 requests per second with a burst of 200.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: defaultRateLimitRPS,
		Burst:             defaultRateLimitBurst,
	}
}

// RequestIDMiddleware ensures every request carries a stable request ID.
func RequestIDMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := sanitizeRequestID(r.Header.Get(requestIDHeader))
			if requestID == "" {
				requestID = uuid.New().String()
			}
			r = r.WithContext(WithRequestID(r.Context(), requestID))
			w.Header().Set(requestIDHeader, requestID)
			next.ServeHTTP(w, r)
		})
	}
}

// sanitizeRequestID accepts a client supplied ID only when it is short and
// made of [A-Za-z0-9._-]; anything else is replaced by a fresh UUID.
func sanitizeRequestID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxRequestIDLength || strings.IndexFunc(id, invalidRequestIDRune) >= 0 {
		return ""
	}
	return id
}

func invalidRequestIDRune(r rune) bool {
	isAlnum := 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9'
	return !isAlnum && !strings.ContainsRune("-_.", r)
}

// LoggingMiddleware records structured request logs, starts a Sentry
// transaction per request and recovers panics as 500 responses.
func LoggingMiddleware(logger observability.Logger) Middleware {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			hub := sentry.GetHubFromContext(ctx)
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
				ctx = sentry.SetHubOnContext(ctx, hub)
				r = r.WithContext(ctx)
			}

			transaction := sentry.StartTransaction(
				ctx,
				fmt.Sprintf("%s %s", r.Method, r.URL.Path),
				sentry.WithOpName("http.server"),
				sentry.ContinueFromRequest(r),
				sentry.WithTransactionSource(sentry.SourceURL),
			)
			defer transaction.Finish()
			r = r.WithContext(transaction.Context())
			ctx = r.Context()
			hub.Scope().SetRequest(r)

			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				transaction.Status = sentry.SpanStatusInternalError
				hub.RecoverWithContext(ctx, rec)
				logger.ErrorContext(ctx, "panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
				)
				if !recorder.wroteHeader {
					writeJSON(recorder, http.StatusInternalServerError, apiError{Error: "internal server error"})
				}
			}()

			next.ServeHTTP(recorder, r)

			transaction.Status = sentry.HTTPtoSpanStatus(recorder.status)
			logCompleted(ctx, logger, recorder.status,
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// logCompleted logs at error for 5xx, warn for 4xx and info otherwise.
func logCompleted(ctx context.Context, logger observability.Logger, status int, attrs ...any) {
	log := logger.InfoContext
	if status >= http.StatusInternalServerError {
		log = logger.ErrorContext
	} else if status >= http.StatusBadRequest {
		log = logger.WarnContext
	}
	log(ctx, "request completed", attrs...)
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitorLimiters hands out one token bucket per client and forgets clients
// that have been idle for longer than ttl.
type visitorLimiters struct {
	mu          sync.Mutex
	visitors    map[string]*clientLimiter
	lastCleanup time.Time
	limit       rate.Limit
	burst       int
	ttl         time.Duration
}

func newVisitorLimiters(limit rate.Limit, burst int, ttl time.Duration) *visitorLimiters {
	return &visitorLimiters{
		visitors: make(map[string]*clientLimiter),
		limit:    limit,
		burst:    burst,
		ttl:      ttl,
	}
}

func (v *visitorLimiters) get(key string, now time.Time) *rate.Limiter {
	v.mu.Lock()
	defer v.mu.Unlock()

	c, ok := v.visitors[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.visitors[key] = c
	}
	c.lastSeen = now

	if v.lastCleanup.IsZero() || now.Sub(v.lastCleanup) > minimumCleanupInterval {
		for k, cl := range v.visitors {
			if now.Sub(cl.lastSeen) > v.ttl {
				delete(v.visitors, k)
			}
		}
		v.lastCleanup = now
	}
	return c.limiter
}

// RateLimitMiddleware enforces per-client rate limiting using a token bucket.
// It adds X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset
// headers to every response and answers 429 with Retry-After when the
// bucket is empty.
func RateLimitMiddleware(cfg RateLimitConfig, logger observability.Logger) Middleware {
	if !cfg.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	limiters := newVisitorLimiters(rate.Limit(cfg.RequestsPerSecond), cfg.Burst, rateLimiterVisitorTTL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			limiter := limiters.get(clientKeyWithProxies(r, cfg.Proxies), now)
			cfg.setHeaders(w.Header(), limiter, now)

			if !limiter.AllowN(now, 1) {
				logger.WarnContext(r.Context(), "rate limit exceeded",
					"method", r.Method,
					"path", r.URL.Path,
				)
				retryAfter := max(int(math.Ceil(1/cfg.RequestsPerSecond)), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, http.StatusTooManyRequests, apiError{Error: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (c RateLimitConfig) setHeaders(h http.Header, limiter *rate.Limiter, now time.Time) {
	refill := time.Duration(float64(time.Second) / c.RequestsPerSecond)
	h.Set("X-RateLimit-Limit", strconv.FormatFloat(c.RequestsPerSecond, 'f', -1, 64))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(int(math.Floor(limiter.TokensAt(now))), 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(refill).Unix(), 10))
}

// TrustedProxyConfig holds trusted proxy CIDR list for X-Forwarded-For handling.
type TrustedProxyConfig struct {
	CIDRs []netip.Prefix
}

// ParseTrustedProxies parses a comma-separated list of CIDRs.
// Blank entries are ignored, so an empty string trusts nothing.
func ParseTrustedProxies(raw string) (*TrustedProxyConfig, error) {
	cfg := &TrustedProxyConfig{}
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(field)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy CIDR %q: %w", field, err)
		}
		cfg.CIDRs = append(cfg.CIDRs, prefix.Masked())
	}
	return cfg, nil
}

// IsTrusted reports whether remoteAddr (host:port) lies in a trusted CIDR.
func (tc *TrustedProxyConfig) IsTrusted(remoteAddr string) bool {
	if tc == nil {
		return false
	}
	ap, err := netip.ParseAddrPort(remoteAddr)
	if err != nil {
		return false
	}
	addr := ap.Addr().Unmap()
	return slices.ContainsFunc(tc.CIDRs, func(p netip.Prefix) bool { return p.Contains(addr) })
}

// clientKeyWithProxies extracts the client IP, only trusting X-Forwarded-For from trusted proxies.
func clientKeyWithProxies(r *http.Request, proxies *TrustedProxyConfig) string {
	if proxies.IsTrusted(r.RemoteAddr) {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LoginRateLimitConfig configures per-IP limiting of password attempts.
type LoginRateLimitConfig struct {
	AttemptsPerMinute int
	ProxyConfig       *TrustedProxyConfig
	// Reject writes the response for a refused attempt. Defaults to a JSON 429.
	Reject http.Handler
}

// LoginRateLimitMiddleware allows AttemptsPerMinute failed password checks
// per client IP, refilled evenly over the minute. Only responses with status
// 401 use up a token; once the bucket is empty every request is refused until
// it refills. A non-positive limit disables it.
func LoginRateLimitMiddleware(cfg LoginRateLimitConfig) Middleware {
	if cfg.AttemptsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	reject := cfg.Reject
	if reject == nil {
		reject = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, apiError{Error: "too many login attempts", Detail: "try again later"})
		})
	}
	limiters := newVisitorLimiters(rate.Limit(float64(cfg.AttemptsPerMinute)/60.0), cfg.AttemptsPerMinute, loginLimiterTTL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := limiters.get(clientKeyWithProxies(r, cfg.ProxyConfig), time.Now())
			if limiter.Tokens() < 1 {
				w.Header().Set("Retry-After", "60")
				reject.ServeHTTP(w, r)
				return
			}
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			if recorder.status == http.StatusUnauthorized {
				limiter.Allow()
			}
		})
	}
}
