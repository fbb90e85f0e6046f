package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/api/httputil"
	apimw "github.com/todoplatform/eventbackbone/internal/api/middleware"
)

// NewRouter wires the chi router for the Notification Service: the
// scheduler callback plus the ambient health/metrics routes.
func NewRouter(h *Handler, reg prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	hh := httputil.NewHealthHandler()
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Post("/job/{name}", h.JobCallback)
	r.Put("/job/{name}", h.JobCallback)

	return r
}
