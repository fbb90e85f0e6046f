// Package recurring exposes the Recurring-Task Service's ambient HTTP
// surface. The service has no public API of its own: it only consumes
// task-events and calls the Command Service's internal endpoints, so
// health and metrics are all there is to serve.
package recurring

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

func NewRouter(reg prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	hh := httputil.NewHealthHandler()
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}
