package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Isaac25-lgtm/navcore-platform/internal/transport/httpapi/handler"
	"github.com/Isaac25-lgtm/navcore-platform/internal/transport/httpapi/middleware"
	"github.com/Isaac25-lgtm/navcore-platform/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger         *logger.Logger
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	PeriodHandler  *handler.PeriodHandler
	EntryHandler   *handler.EntryHandler
	HealthHandler  *handler.HealthHandler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	// Health check endpoints (no scope required)
	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.GetHealth)
		r.Get("/health/live", cfg.HealthHandler.GetLiveness)
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
	}

	// API routes, scoped to the tenant, club and actor in the request headers
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Scope)

		if cfg.PeriodHandler != nil {
			r.Route("/periods", func(r chi.Router) {
				r.Get("/", cfg.PeriodHandler.ListPeriods)
				r.Post("/", cfg.PeriodHandler.OpenPeriod)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", cfg.PeriodHandler.GetPeriod)
					r.Get("/preview", cfg.PeriodHandler.Preview)
					r.Get("/reconciliation", cfg.PeriodHandler.Reconcile)
					r.Get("/checklist", cfg.PeriodHandler.Checklist)
					r.Post("/submit", cfg.PeriodHandler.SubmitForReview)
					r.Post("/return", cfg.PeriodHandler.ReturnToDraft)
					r.Post("/close", cfg.PeriodHandler.Close)
					r.Get("/snapshot", cfg.PeriodHandler.Snapshot)

					if cfg.EntryHandler != nil {
						r.Get("/entries", cfg.EntryHandler.ListEntries)
						r.Post("/entries", cfg.EntryHandler.PostEntry)
						r.Post("/entries/import", cfg.EntryHandler.ImportEntries)
					}
				})
			})
		}

		if cfg.EntryHandler != nil {
			r.Put("/entries/{id}", cfg.EntryHandler.UpdateEntry)
			r.Delete("/entries/{id}", cfg.EntryHandler.DeleteEntry)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"NOT_FOUND","error":"route not found"}`))
	})

	return r
}
