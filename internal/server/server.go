// Package server wires the HTTP surface of the bind service.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/betaione/telegram-bind/internal/health"
	"github.com/betaione/telegram-bind/internal/middleware"
	"github.com/betaione/telegram-bind/internal/ratelimit"
	"github.com/betaione/telegram-bind/pkg/config"
	"github.com/betaione/telegram-bind/pkg/logger"
)

// Deps collects everything the router needs.
type Deps struct {
	Bind    *BindHandler
	QR      *QRHandler
	Checker *health.Checker
	Limiter ratelimit.Limiter
}

// NewRouter assembles the chi router with the full middleware chain.
func NewRouter(cfg config.Config, log *slog.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(logger.Middleware)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Metrics)

	r.Route("/api", func(api chi.Router) {
		api.With(middleware.RateLimit(deps.Limiter, cfg.RateLimit.Issue, "bind_token", log)).
			Post("/telegram/bind-token", deps.Bind.Issue)

		api.With(middleware.RateLimit(deps.Limiter, cfg.RateLimit.Confirm, "bind_confirm", log)).
			Post("/bind/confirm", deps.Bind.Confirm)

		if deps.QR != nil {
			api.Get("/telegram/qr", deps.QR.Get)
		}
	})

	r.Get("/healthz", healthHandler(deps.Checker))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// New builds the http.Server for the assembled router.
func New(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

func healthHandler(checker *health.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
			return
		}

		results := checker.Check(r.Context())

		status := http.StatusOK
		if !health.Healthy(results) {
			status = http.StatusServiceUnavailable
		}

		writeJSON(w, status, results)
	}
}
