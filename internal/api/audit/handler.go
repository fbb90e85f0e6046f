// Package audit exposes the Audit Service's query surface.
package audit

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/api/httputil"
	"github.com/todoplatform/eventbackbone/internal/domain"
	"github.com/todoplatform/eventbackbone/internal/service"
)

type Handler struct {
	svc    *service.AuditService
	logger *zap.Logger
}

func NewHandler(svc *service.AuditService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Query handles GET /audit?event_type=&user_id=&from=&to=&page=&page_size=.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.AuditFilter{Page: 1, PageSize: 50}

	if v := q.Get("event_type"); v != "" {
		f.EventType = &v
	}
	if v := q.Get("user_id"); v != "" {
		f.ActorID = &v
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		f.To = &t
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.RespondError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		f.Page = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			httputil.RespondError(w, http.StatusBadRequest, "page_size must be a positive integer")
			return
		}
		f.PageSize = n
	}

	entries, total, err := h.svc.Query(r.Context(), f)
	if err != nil {
		httputil.MapError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"entries":   entries,
		"total":     total,
		"page":      f.Page,
		"page_size": f.PageSize,
	})
}
