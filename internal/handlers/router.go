package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ukydev/fleet-replay/internal/middleware"
)

// RouterOptions configures NewRouter. A nil Auth leaves command endpoints open.
type RouterOptions struct {
	Auth            *middleware.AuthMiddleware
	RateLimiter     *middleware.RateLimitMiddleware
	RateLimit       int
	RateLimitWindow time.Duration
}

// NewRouter mounts the simulation API.
func NewRouter(h *SimulationHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)
	if opts.RateLimiter != nil {
		r.Use(opts.RateLimiter.RateLimit(opts.RateLimit, opts.RateLimitWindow))
	}

	r.Get("/health", h.Health)
	r.Get("/ws/simulation/{vin}", h.Stream)

	r.Route("/api/simulation", func(r chi.Router) {
		r.Get("/statistics", h.Statistics)
		r.Get("/vehicles/validate-vin/{vin}", h.ValidateVIN)
		r.Get("/vehicles/{vin}/trips", h.Trips)
		r.Get("/vehicles/{vin}/current-position", h.CurrentPosition)
		r.Get("/vehicles/{vin}/path", h.CurrentPath)
		r.Get("/vehicles/{vin}/snapshot", h.Snapshot)
		r.Get("/vehicles/{vin}/recommendations", h.Recommendations)

		r.Group(func(r chi.Router) {
			if opts.Auth != nil {
				r.Use(opts.Auth.Authenticate)
				r.Use(opts.Auth.RequirePermission("control_simulation"))
			}
			r.Post("/start", h.Start)
			r.Post("/stop", h.Stop)
			r.Post("/reset", h.Reset)
			r.Post("/vehicles/{vin}/speed", h.SetSpeed)
		})
	})
	return r
}
