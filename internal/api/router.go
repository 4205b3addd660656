package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mailfold/mailfold/internal/auth"
	"github.com/mailfold/mailfold/internal/config"
)

// NewRouter creates and configures the HTTP router. The webhook and
// the read API authenticate with separate bearer tokens so provider
// credentials never grant mailbox access.
func NewRouter(cfg *config.Config, h *Handler, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)

	// Inbound webhook, authenticated with the provider-facing token.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireToken(cfg.WebhookToken))
		r.Post("/hooks/inbound", h.Inbound)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket authenticates via query parameter inside the handler.
		r.Get("/ws", h.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireToken(cfg.APIToken))

			r.Get("/scopes/{scope}/threads", h.ListThreads)
			r.Get("/scopes/{scope}/threads/{threadID}", h.GetThread)
			r.Post("/scopes/{scope}/threads/{threadID}/read", h.SetThreadRead)
			r.Post("/scopes/{scope}/threads/{threadID}/archive", h.SetThreadArchived)
			r.Put("/scopes/{scope}/threads/{threadID}/labels/{label}", h.AddThreadLabel)
			r.Delete("/scopes/{scope}/threads/{threadID}/labels/{label}", h.RemoveThreadLabel)
			r.Post("/scopes/{scope}/messages/{messageID}/read", h.SetMessageRead)
		})
	})

	return r
}
