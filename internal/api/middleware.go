package api

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hoteldesk/internal/config"
	"hoteldesk/internal/domain"
	"hoteldesk/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ctxKey int

const requestIDKey ctxKey = iota

const requestIDHeader = "X-Request-ID"

// requestID propagates the caller's X-Request-ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the request id stored by the middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// observe logs each request and counts it by route pattern.
func observe(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			metrics.IncHTTP(route, strconv.Itoa(recorder.status))

			ev := logger.Info()
			if recorder.status >= http.StatusInternalServerError {
				ev = logger.Error()
			}
			ev.Str("request_id", RequestIDFrom(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", recorder.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

// HTTPAuth guards HTTP routes with the API keyring and per-client token buckets.
type HTTPAuth struct {
	keys *keyring
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{keys: newKeyring(cfg)}
}

// Require wraps next with authentication and the permission perm. An empty perm only authenticates.
func (a *HTTPAuth) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(a.keys.keyHeader)
			if a.keys.enabled {
				if err := a.keys.authorize(apiKey, r.Header.Get(a.keys.extraHeader), perm); err != nil {
					code := http.StatusUnauthorized
					if errors.Is(err, errPermissionDenied) {
						code = http.StatusForbidden
					}
					writeError(w, code, err.Error())
					return
				}
			}

			key := strings.TrimSpace(apiKey)
			if key == "" {
				key = clientIP(r)
			}
			if !a.keys.allow(key) {
				metrics.IncRateLimited("client")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return clientKeyUnknown
}

const (
	tierAPI       = "api"
	tierStrict    = "strict"
	tierDashboard = "dashboard"
)

// tieredLimiter applies fixed-window limits per client IP through a shared store.
type tieredLimiter struct {
	cfg    config.RateLimitsConfig
	store  domain.RateLimitStore
	logger *zerolog.Logger
}

func (t *tieredLimiter) window(tier string) config.RateWindow {
	switch tier {
	case tierStrict:
		return t.cfg.Strict
	case tierDashboard:
		return t.cfg.Dashboard
	default:
		return t.cfg.API
	}
}

func (t *tieredLimiter) Limit(tier string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if t == nil || !t.cfg.Enabled || t.store == nil {
			return next
		}
		w := t.window(tier)
		if w.Max <= 0 || w.Window <= 0 {
			return next
		}

		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			key := tier + ":" + clientIP(r)
			allowed, retryAfter, err := t.store.CheckRateLimit(r.Context(), key, w.Max, w.Window)
			if err != nil {
				// the store is unavailable; let the request through
				t.logger.Warn().Err(err).Str("tier", tier).Msg("rate limit check failed")
				next.ServeHTTP(rw, r)
				return
			}
			if !allowed {
				metrics.IncRateLimited(tier)
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				rw.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(rw, http.StatusTooManyRequests, w.Message)
				return
			}
			next.ServeHTTP(rw, r)
		})
	}
}
