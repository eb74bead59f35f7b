package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/vigia-app/vigia/internal/api/handlers"
	"github.com/vigia-app/vigia/internal/api/middleware"
	"github.com/vigia-app/vigia/internal/config"
	"github.com/vigia-app/vigia/internal/feed"
	"github.com/vigia-app/vigia/internal/ledger"
	"github.com/vigia-app/vigia/internal/report"
	"github.com/vigia-app/vigia/internal/vigiadb"
	"github.com/vigia-app/vigia/internal/wallet"
)

// Dependencies holds all service references needed by the API layer.
type Dependencies struct {
	Config   *config.Config
	DB       *vigiadb.DB
	Host     wallet.Host
	Sessions *wallet.Manager
	Gateway  *ledger.Gateway
	Pipeline *report.Pipeline
	Feed     *feed.ReadModel
}

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps *Dependencies) chi.Router {
	r := chi.NewRouter()

	// Global middleware (applied to ALL routes).
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.CORS)

	slog.Info("router initialized",
		"middleware", []string{"realIP", "recoverer", "requestLogging", "cors"},
	)

	r.Get("/api/health", handlers.HealthHandler(deps.Config, deps.Sessions))

	r.Route("/api", func(r chi.Router) {
		// Wallet session lifecycle.
		r.Get("/wallet/providers", handlers.ListProvidersHandler(deps.Host))
		r.Post("/wallet/connect", handlers.ConnectHandler(deps.Host, deps.Sessions))
		r.Post("/wallet/disconnect", handlers.DisconnectHandler(deps.Sessions))
		r.Get("/wallet/session", handlers.SessionHandler(deps.Sessions))

		// Report reads — session-free.
		r.Get("/reports", handlers.ListReportsHandler(deps.Feed))
		r.Get("/reports/count", handlers.CountReportsHandler(deps.Gateway))
		r.Get("/reports/{id}", handlers.GetReportHandler(deps.Gateway))

		// Report writes — require a connected session.
		r.Post("/reports", handlers.SubmitReportHandler(deps.Pipeline))
		r.Post("/reports/{id}/confirm", handlers.ConfirmReportHandler(deps.Pipeline))

		// Local submission audit trail.
		r.Get("/submissions", handlers.ListSubmissionsHandler(deps.DB))
	})

	return r
}
