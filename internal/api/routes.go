package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/enervolt/enervolt-backend/internal/auth"
	"github.com/enervolt/enervolt-backend/internal/crud"
	"github.com/enervolt/enervolt-backend/internal/entities"
)

// Routes builds the router: public site endpoints, the websocket stream,
// and the admin back-office where every content table is a generic CRUD
// resource produced by the crud factory.
func (h *Handler) Routes(m *Middleware, metricsHandler http.Handler) *chi.Mux {
	cfg := h.config

	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(m.Compress)
	r.Use(m.Timeout(15 * time.Second))
	r.Use(middleware.Heartbeat("/ping"))

	r.Use(m.CORS(cfg.Security.CORSAllowedOrigins))
	r.Use(m.RateLimit(cfg.Security.RateLimitRPM))

	// Health and metrics
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", metricsHandler)

	notify := crud.WithNotifier(h.notifier())

	r.Route("/v1", func(r chi.Router) {
		// Public content, read-only
		r.Get("/content", h.GetSiteContent)
		for _, table := range []string{"services", "products", "posts", "testimonials"} {
			rs := crud.NewResource(table, h.client, h.logger)
			r.Mount("/"+table, rs.ReadOnlyRoutes())
		}
		r.Get("/search", h.Search)

		// Public intake
		r.Post("/contact", h.SubmitContact)
		r.Post("/quotes/request", h.RequestQuote)

		// Live updates
		r.Get("/ws", h.hub.ServeWS(cfg.Security.CORSAllowedOrigins))

		// Admin back-office: full CRUD per content table
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin(cfg.Auth.JWTSecret, h.logger))
			for _, schema := range entities.All() {
				rs := crud.NewResource(schema.Table, h.client, h.logger, notify)
				r.Mount("/"+schema.Table, rs.Routes())
			}
		})
	})

	return r
}
