package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"bountyledger/internal/http/handlers"
	"bountyledger/internal/infra"
	"bountyledger/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(logger),
		chimw.Recoverer,
		middleware.CORS(cfg.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	auth := middleware.AuthJWT(cfg.JWTSecret)
	limit := middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)

	r.Route("/v1/reports/{reportID}", func(r chi.Router) {
		r.Get("/", app.ReportGet)
		r.Get("/contributions", app.ReportContributions)
		r.With(limit, auth).Post("/contributions", app.ContributionsCreate)
		r.With(limit, auth).Post("/recompute", app.ReportRecompute)
	})

	r.Route("/v1/contributions/{contributionID}", func(r chi.Router) {
		r.Get("/", app.ContributionGet)
		r.Get("/lineage", app.ContributionLineage)
		r.With(limit, auth).Post("/transfers", app.TransfersCreate)
	})

	return r
}
