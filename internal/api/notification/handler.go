// Package notification exposes the Notification Service's sole HTTP
// surface: the scheduler's job-fired callback.
package notification

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/api/httputil"
	"github.com/todoplatform/eventbackbone/internal/scheduler"
	"github.com/todoplatform/eventbackbone/internal/service"
)

type Handler struct {
	svc    *service.NotificationService
	logger *zap.Logger
}

func NewHandler(svc *service.NotificationService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type jobCallbackBody struct {
	Data scheduler.JobPayload `json:"data"`
}

// JobCallback handles POST/PUT /job/reminder-{name}. The path's job name
// is informational only; the payload under "data" is authoritative.
func (h *Handler) JobCallback(w http.ResponseWriter, r *http.Request) {
	var body jobCallbackBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := h.svc.HandleSchedulerCallback(r.Context(), body.Data); err != nil {
		h.logger.Error("job callback failed", zap.String("reminder_id", body.Data.ReminderID), zap.Error(err))
		httputil.RespondError(w, http.StatusInternalServerError, "callback processing failed")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
