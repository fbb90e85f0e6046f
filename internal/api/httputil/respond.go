package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/todoplatform/eventbackbone/internal/domain"
)

func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func RespondError(w http.ResponseWriter, status int, msg string) {
	RespondJSON(w, status, map[string]string{"error": msg})
}

// MapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
// Owner-mismatch and missing-entity both surface as ErrNotFound, so callers
// can never distinguish "not yours" from "doesn't exist".
func MapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidDescription),
		errors.Is(err, domain.ErrInvalidDueDate),
		errors.Is(err, domain.ErrInvalidDueTime),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidFrequency),
		errors.Is(err, domain.ErrInvalidEndAfter),
		errors.Is(err, domain.ErrInvalidStatus):
		RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrAlreadyDeleted),
		errors.Is(err, domain.ErrRuleInactive):
		RespondError(w, http.StatusConflict, err.Error())
	default:
		RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Classify translates a domain error into a bus-consumer verdict: true
// means the handler should ask the bus to retry delivery, false means the
// message should be acked (dropped) because it can never succeed.
func Classify(err error) (retry bool) {
	return errors.Is(err, domain.ErrUpstreamTransient)
}
