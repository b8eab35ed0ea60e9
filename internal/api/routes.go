package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes. Cron endpoints accept both POST and
// GET because hosted schedulers differ in which method they emit.
func SetupRoutes(h *Handlers, cronSecret string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://app.unosend.com", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Organization-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Cron trigger endpoints (bearer-token guarded)
		r.Route("/cron", func(r chi.Router) {
			r.Use(cronAuth(cronSecret))
			r.Post("/scheduled-emails", h.handleScheduledEmails)
			r.Get("/scheduled-emails", h.handleScheduledEmails)
			r.Post("/broadcasts", h.handleBroadcasts)
			r.Get("/broadcasts", h.handleBroadcasts)
		})

		// Broadcast management (organization identity from upstream auth proxy)
		r.Post("/broadcasts/{id}/cancel", h.handleCancelBroadcast)
	})

	return r
}
