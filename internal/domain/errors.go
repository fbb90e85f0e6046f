package domain

import "errors"

// Sentinel errors used throughout the application.
// HTTP-facing services translate these to status codes via httputil.MapError;
// bus-facing services translate them to ack/retry verdicts via httputil.Classify.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTitle       = errors.New("title must be 1-500 characters")
	ErrInvalidDescription = errors.New("description must be at most 5000 characters")
	ErrInvalidDueDate     = errors.New("due date must be a valid YYYY-MM-DD date")
	ErrInvalidDueTime     = errors.New("due time must be HH:MM between 00:00 and 23:59")
	ErrInvalidPriority    = errors.New("priority must be low, medium, or high")
	ErrInvalidFrequency   = errors.New("frequency must be daily, weekly, or monthly")
	ErrInvalidEndAfter    = errors.New("end_after_count must be at least 1")
	ErrInvalidStatus      = errors.New("status must be pending, completed, or deleted")
	ErrAlreadyDeleted     = errors.New("task is already deleted")
	ErrRuleInactive       = errors.New("recurrence rule is no longer active")
	ErrDuplicateEvent     = errors.New("event already processed")
	ErrUpstreamTransient  = errors.New("upstream call failed transiently")
	ErrUpstreamPermanent  = errors.New("upstream call rejected the request")
)
