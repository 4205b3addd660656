package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mailfold/mailfold/internal/metrics"
)

// RequestLogger returns a request logging middleware using zerolog.
func RequestLogger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Metrics records Prometheus request metrics.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := normalizePath(r.URL.Path)

		metrics.HTTPRequestsTotal.WithLabelValues(
			r.Method, path, strconv.Itoa(ww.Status()),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			r.Method, path,
		).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses identifier segments to keep metric
// cardinality bounded.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/api/v1/scopes/") {
		rest := strings.TrimPrefix(path, "/api/v1/scopes/")
		if idx := strings.Index(rest, "/"); idx >= 0 {
			switch {
			case strings.Contains(rest[idx:], "/labels/"):
				return "/api/v1/scopes/:scope/threads/:id/labels/:label"
			case strings.HasPrefix(rest[idx:], "/threads/"):
				return "/api/v1/scopes/:scope/threads/:id"
			case strings.HasPrefix(rest[idx:], "/messages/"):
				return "/api/v1/scopes/:scope/messages/:id"
			}
		}
		return "/api/v1/scopes/:scope/threads"
	}
	return path
}
