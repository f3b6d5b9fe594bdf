package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custos/internal/platform/health"
	"custos/internal/platform/middleware"
)

// NewRouter wires the public API, probes, and metrics behind the shared
// middleware stack.
func NewRouter(h *Handler, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/consent", h.handleGetConsent)
		r.Patch("/consent", h.handleUpdateConsent)
		r.Delete("/consent", h.handleResetConsent)
		r.Post("/consent/accept-all", h.handleAcceptAll)
		r.Post("/consent/reject-all", h.handleRejectAll)
		r.Get("/consent/receipt", h.handleReceipt)

		r.Get("/audit/export", h.handleAuditExport)
		r.Get("/audit/verify", h.handleAuditVerify)
	})

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
