// Package httptransport wires the HTTP surface: shared middleware, the auth
// and activity handlers, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"registra/internal/activity"
	"registra/internal/auth"
	"registra/internal/platform/middleware"
)

// NewRouter assembles the full route tree. Handlers register their own
// sub-routers; the chain here applies to everything.
func NewRouter(
	logger *slog.Logger,
	authHandler *auth.Handler,
	activityHandler *activity.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.RequestLogger(logger))

	authHandler.Register(r)
	activityHandler.Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
