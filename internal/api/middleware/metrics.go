package middleware

import (
	"net/http"
	"strconv"

	"github.com/balu-dk/e3dc-gateway/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Metrics counts handled requests by route pattern, method and status.
// Requests rejected before routing, such as failed authentication, are
// matched against routes so they are counted under the route they targeted.
func Metrics(m *metrics.AppMetrics, routes chi.Routes) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.HTTPRequests.WithLabelValues(routePattern(r, routes), r.Method, strconv.Itoa(status)).Inc()
		})
	}
}

func routePattern(r *http.Request, routes chi.Routes) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if routes != nil {
		rctx := chi.NewRouteContext()
		if routes.Match(rctx, r.Method, r.URL.Path) {
			return rctx.RoutePattern()
		}
	}
	return "unmatched"
}
