package command

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/api/httputil"
	apimw "github.com/todoplatform/eventbackbone/internal/api/middleware"
	"github.com/todoplatform/eventbackbone/internal/auth"
)

// NewRouter wires the chi router for the Command Service: bearer-scoped
// task and recurrence-rule CRUD, the sidecar-only internal endpoints the
// Recurring Service calls, plus the ambient health/metrics routes.
func NewRouter(h *Handler, verifier *auth.Verifier, reg prometheus.Gatherer, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	hh := httputil.NewHealthHandler()
	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	limiter := apimw.NewPerUserLimiter(10, 20)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Use(limiter.Limit)

		r.Route("/api/tasks", func(r chi.Router) {
			r.Post("/", h.CreateTask)
			r.Get("/", h.ListTasks)
			r.Put("/{id}", h.UpdateTask)
			r.Patch("/{id}/complete", h.CompleteTask)
			r.Delete("/{id}", h.DeleteTask)
		})

		r.Route("/api/recurrence-rules", func(r chi.Router) {
			r.Post("/{taskID}", h.AttachRule)
			r.Get("/{id}", h.GetRule)
			r.Patch("/{id}", h.PatchRule)
			r.Delete("/{id}", h.DeleteRule)
		})
	})

	// Service-invocation-only: no bearer token, trusted sidecar network.
	// The owner id travels in the request body since there is no
	// authenticated subject on this path.
	r.Route("/internal", func(r chi.Router) {
		r.Get("/recurrence-rules/{id}", h.InternalGetRule)
		r.Patch("/recurrence-rules/{id}", h.InternalPatchRule)
		r.Post("/tasks", h.InternalCreateTask)
	})

	return r
}
