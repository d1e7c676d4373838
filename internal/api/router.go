// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mandir-fund/internal/api/handler"
	apimw "mandir-fund/internal/api/middleware"
)

// RouterConfig carries the settings the router needs from AppConfig.
type RouterConfig struct {
	AdminToken         string
	CORSOrigins        []string
	RateLimitPerMinute int
}

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Intake    *handler.IntakeHandler
	Donations *handler.DonationHandler
	Admin     *handler.AdminHandler
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(h Handlers, cfg RouterConfig, logger *zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apimw.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(apimw.CORS(cfg.CORSOrigins))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// The live stream is long-lived and must not be cut by the request timeout.
		r.Get("/live/stream", h.Donations.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(handler.DefaultTimeout))

			r.Route("/intakes", func(r chi.Router) {
				// Starting and submitting create server state, so they are rate limited per client.
				limited := r.With(apimw.RateLimit(cfg.RateLimitPerMinute, time.Minute))
				limited.Post("/", h.Intake.Start)
				limited.Post("/{intakeID}/details", h.Intake.SubmitDetails)

				r.Get("/{intakeID}", h.Intake.Get)
				r.Put("/{intakeID}/amount", h.Intake.SetAmount)
				r.Post("/{intakeID}/back", h.Intake.Back)
			})

			r.Route("/donations", func(r chi.Router) {
				r.Get("/recent", h.Donations.Recent)
				r.Get("/stats", h.Donations.Stats)
				r.Get("/top", h.Donations.TopDonors)
			})
			r.Get("/live/gratitude", h.Donations.Gratitude)

			r.Route("/admin", func(r chi.Router) {
				r.Use(apimw.AdminAuth(cfg.AdminToken))
				r.Get("/payments", h.Admin.ListPayments)
				r.Post("/payments/{reference}/confirm", h.Admin.ConfirmPayment)
				r.Post("/payments/{reference}/cancel", h.Admin.CancelPayment)
				r.Post("/donations", h.Admin.RecordDonation)
			})
		})
	})

	return r
}
