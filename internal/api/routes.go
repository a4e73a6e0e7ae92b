package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouteOptions configures the router's cross-cutting middleware.
type RouteOptions struct {
	// APIToken, when set, is required as a bearer token on admin routes.
	APIToken    string
	CORSOrigins []string
}

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, opts RouteOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check (no auth required)
	r.Get("/health", h.health.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		// Public: provider callbacks and visitor-facing capture.
		r.Post("/email/webhook", h.HandleWebhook)
		r.Post("/email/webhook-test", h.HandleWebhookTest)
		r.Post("/leads", h.HandleCaptureLead)
		r.Post("/pageView", h.HandlePageView)
		r.Post("/lead-magnet/{id}/page-view", h.HandleLeadMagnetPageView)

		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(opts.APIToken))

			r.Post("/email/send", h.HandleSend)
			r.Get("/email/metrics/{messageId}", h.HandleCampaignMetrics)

			r.Get("/campaigns", h.HandleListCampaigns)
			r.Get("/campaigns/{id}", h.HandleGetCampaign)

			r.Get("/leads/{id}", h.HandleGetLead)
			r.Get("/leads/{id}/engagement", h.HandleLeadEngagement)
			r.Get("/lead-magnets/{id}/metrics", h.HandleLeadMagnetMetrics)

			r.Get("/suppressions/count", h.HandleSuppressionCount)
			r.Post("/suppressions", h.HandleAddSuppression)
			r.Get("/suppressions/{email}", h.HandleCheckSuppression)
			r.Delete("/suppressions/{email}", h.HandleRemoveSuppression)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})

	return r
}
