package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"thumbcache/internal/metrics"

	"github.com/gorilla/mux"
)

// StaticRoute names the file server route and labels requests that matched
// no route at all.
const StaticRoute = "static"

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are path prefixes that should not be recorded
	SkipPaths []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
	}
}

// Metrics returns a middleware that records Prometheus request metrics. It
// must run inside a mux.Router (via Router.Use) so the route template is
// available as the path label.
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newResponseWriter(w)
			start := time.Now()
			next.ServeHTTP(wrapped, r)

			path := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// routeLabel returns the matched route template. Static files share a single
// label so arbitrary paths cannot inflate cardinality.
func routeLabel(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil || route.GetName() == StaticRoute {
		return StaticRoute
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return StaticRoute
	}
	return tpl
}
