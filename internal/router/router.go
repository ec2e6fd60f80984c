// Package router wires the public endpoint table and the operational
// endpoints onto a chi router with the shared middleware stack.
package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mozilla/classify-client/internal/handler"
	"github.com/mozilla/classify-client/internal/limiter"
	"github.com/mozilla/classify-client/internal/logger"
	"github.com/mozilla/classify-client/internal/metrics"
	custommiddleware "github.com/mozilla/classify-client/internal/middleware"
	"github.com/mozilla/classify-client/internal/trust"
)

// SetupRouter creates and configures the chi router with all middleware and
// routes.
//
// chi's RealIP middleware is deliberately not used: it rewrites RemoteAddr
// from forwarding headers unconditionally, which is exactly the spoofing
// vector the trust resolver exists to close. Handlers always see the
// transport peer and resolve the client themselves.
func SetupRouter(h *handler.Handler, rateLimiter limiter.Limiter, ts *trust.TrustSet, m *metrics.Metrics, log *logger.Logger) chi.Router {
	if log == nil {
		log = logger.NewDefault()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(custommiddleware.LoggingMiddleware(log))
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(custommiddleware.MetricsMiddleware(m))
	}

	// The public surface is rate limited per resolved client.
	r.Group(func(r chi.Router) {
		r.Use(custommiddleware.RateLimitMiddleware(rateLimiter, ts, m))

		for _, route := range Table() {
			switch route.Behavior {
			case BehaviorClassify:
				r.Get(route.Path, h.Classify)
			case BehaviorCountry:
				r.Get(route.Path, h.Country)
			case BehaviorForbidden:
				r.HandleFunc(route.Path, h.Forbidden)
			case BehaviorNotFound:
				r.HandleFunc(route.Path, h.NotFound)
			}
		}
	})

	// Operational endpoints bypass rate limiting: a busy service must still
	// answer its load balancer.
	r.Get("/__lbheartbeat__", h.LBHeartbeat)
	r.Get("/__heartbeat__", h.Heartbeat)
	r.Get("/__version__", h.Version)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
