package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apimw "github.com/todoplatform/eventbackbone/internal/api/middleware"
	"github.com/todoplatform/eventbackbone/internal/api/httputil"
)

// NewRouter wires the chi router for the WebSocket Gateway's HTTP surface:
// the upgrade endpoint plus the ambient health/metrics routes every service
// exposes.
func NewRouter(h *Handler, reg prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	hh := httputil.NewHealthHandler()
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/ws", h.Connect)

	return r
}
