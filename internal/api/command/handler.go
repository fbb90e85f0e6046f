// Package command exposes the Command Service's HTTP surface: owner-scoped
// task and recurrence-rule CRUD, plus the sidecar-only endpoints the
// Recurring Service invokes.
package command

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/api/httputil"
	"github.com/todoplatform/eventbackbone/internal/auth"
	"github.com/todoplatform/eventbackbone/internal/domain"
	"github.com/todoplatform/eventbackbone/internal/service"
)

type Handler struct {
	svc    *service.CommandService
	logger *zap.Logger
}

func NewHandler(svc *service.CommandService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	t, err := h.svc.CreateTask(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		httputil.MapError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, t)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	f := domain.ListFilter{}
	switch r.URL.Query().Get("status") {
	case "", "all":
	case "pending":
		f.Status = domain.StatusPending
	case "completed":
		f.Status = domain.StatusCompleted
	default:
		httputil.RespondError(w, http.StatusBadRequest, "status must be all, pending, or completed")
		return
	}

	tasks, counts, err := h.svc.ListTasks(r.Context(), auth.UserID(r.Context()), f)
	if err != nil {
		httputil.MapError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "counts": counts})
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	t, err := h.svc.UpdateTask(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.MapError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, t)
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Completed bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	t, err := h.svc.CompleteTask(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), body.Completed)
	if err != nil {
		httputil.MapError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTask(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.MapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AttachRule(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRecurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rule, err := h.svc.AttachRecurrence(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "taskID"), req)
	if err != nil {
		httputil.MapError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, rule)
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.svc.GetRuleForOwner(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.MapError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rule)
}

type rulePatchRequest struct {
	OccurrencesGenerated *int    `json:"occurrences_generated,omitempty"`
	BaseDueDate          *string `json:"base_due_date,omitempty"`
	IsActive             *bool   `json:"is_active,omitempty"`
}

func (h *Handler) PatchRule(w http.ResponseWriter, r *http.Request) {
	var req rulePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	rule, err := h.svc.PatchRuleForOwner(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), req.OccurrencesGenerated, req.BaseDueDate, req.IsActive)
	if err != nil {
		httputil.MapError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rule)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRuleForOwner(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.MapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- service-invocation endpoints (Recurring Service caller) ----

func (h *Handler) InternalGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.svc.GetRule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.MapError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, rule)
}

func (h *Handler) InternalPatchRule(w http.ResponseWriter, r *http.Request) {
	var req rulePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.svc.PatchRule(r.Context(), chi.URLParam(r, "id"), req.OccurrencesGenerated, req.BaseDueDate, req.IsActive); err != nil {
		httputil.MapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type internalCreateTaskRequest struct {
	OwnerID        string          `json:"owner_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	DueDate        *string         `json:"due_date,omitempty"`
	Priority       domain.Priority `json:"priority"`
	RecurrenceRule string          `json:"recurrence_rule_id"`
}

func (h *Handler) InternalCreateTask(w http.ResponseWriter, r *http.Request) {
	var req internalCreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	t, err := h.svc.CreateFromRecurrence(r.Context(), req.OwnerID, req.Title, req.Description, req.DueDate, req.Priority, req.RecurrenceRule)
	if err != nil {
		httputil.MapError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, t)
}
