package handlers

import (
	"net/http"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS RECORDING
// ══════════════════════════════════════════════════════════════════════════════

// StatusRecorder wraps http.ResponseWriter to capture the status code.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

// NewStatusRecorder wraps w with a default status of 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

// WriteHeader records the code before delegating.
func (r *StatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestObserver records one served request.
type RequestObserver interface {
	ObserveRequest(route string, status int, d time.Duration)
}

// MetricsMiddleware reports every request to obs, labelled by the ServeMux
// pattern that matched. It must wrap the mux directly so the pattern set on
// the request is visible after dispatch.
func MetricsMiddleware(obs RequestObserver) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if obs == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := NewStatusRecorder(w)
			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			obs.ObserveRequest(route, rec.Status, time.Since(start))
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST SIZE LIMIT
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware caps request bodies at maxBytes.
func RequestSizeLimitMiddleware(maxBytes int64) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAINING
// ══════════════════════════════════════════════════════════════════════════════

// MiddlewareFunc is a standard HTTP middleware.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain composes middlewares; the first one becomes the outermost.
func Chain(middlewares ...MiddlewareFunc) MiddlewareFunc {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
