package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the router's non-handler dependencies.
type RouterConfig struct {
	Tokens             map[string]int64
	RateLimitPerMinute int
	DB                 Pinger
	Redis              Pinger
	Log                *slog.Logger
}

// NewRouter builds and returns the Chi router with all routes configured.
// Health and metrics are unauthenticated; every resource route requires a
// bearer token and is rate limited per user.
func NewRouter(handlers *Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	r.Get("/api/v1/health", HealthHandlerFunc(cfg.DB, cfg.Redis, cfg.Log))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(cfg.Tokens))
		r.Use(httprate.Limit(
			cfg.RateLimitPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(userKey),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeMessage(w, http.StatusTooManyRequests, "Too Many Attempts.")
			}),
		))

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", handlers.ListLocations)
			r.Post("/", handlers.CreateLocation)
			r.Get("/{id}", handlers.GetLocation)
			r.Put("/{id}", handlers.UpdateLocation)
			r.Patch("/{id}", handlers.UpdateLocation)
			r.Delete("/{id}", handlers.DeleteLocation)
		})

		r.Route("/outages", func(r chi.Router) {
			r.Get("/", handlers.ListOutages)
			r.Post("/", handlers.CreateOutage)
			r.Get("/{id}", handlers.GetOutage)
			r.Put("/{id}", handlers.UpdateOutage)
			r.Patch("/{id}", handlers.UpdateOutage)
			r.Delete("/{id}", handlers.DeleteOutage)
			r.Post("/{id}/end", handlers.EndOutage)
		})
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
