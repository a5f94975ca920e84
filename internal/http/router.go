package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artemvolkov/auction-house/internal/observability"
	"github.com/artemvolkov/auction-house/internal/ratelimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, jwtSecret string, rl *ratelimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(TracingMiddleware)
	r.Use(IdentityMiddleware(jwtSecret))
	if rl != nil {
		r.Use(RateLimitMiddleware(rl))
	}

	r.Post("/v1/items", h.CreateItem)
	r.Get("/v1/items/{id}", h.GetItem)
	r.Get("/v1/items/{id}/bids", h.ListBids)
	r.Post("/v1/items/{id}/bids", h.PlaceBid)
	r.Get("/v1/orders/{id}", h.GetOrder)
	r.With(IdempotencyMiddleware).Post("/v1/orders/{id}/checkout", h.Checkout)
	r.Post("/v1/sweep", h.Sweep)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
