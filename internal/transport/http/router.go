// Package httptransport assembles the public HTTP surface. Feature handlers
// register their own routes; this package only wires middleware and the
// operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cdcvoucher/internal/platform/middleware"
)

// FeatureHandler is implemented by every feature's HTTP handler.
type FeatureHandler interface {
	Register(r chi.Router)
}

// NewRouter wires all public endpoints.
func NewRouter(logger *slog.Logger, features ...FeatureHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))

	for _, feature := range features {
		feature.Register(r)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
