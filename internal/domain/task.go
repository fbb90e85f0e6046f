package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Status tracks the lifecycle of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusDeleted   Status = "deleted"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusDeleted:
		return true
	}
	return false
}

// Priority mirrors the three-tier scheme used across the platform.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is the core domain entity owned exclusively by the Command Service.
type Task struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Status           Status     `json:"status"`
	DueDate          *string    `json:"due_date,omitempty"`  // YYYY-MM-DD
	DueTime          *string    `json:"due_time,omitempty"`  // HH:MM
	ReminderTime     *time.Time `json:"reminder_time,omitempty"`
	RecurrenceRuleID *string    `json:"recurrence_rule_id,omitempty"`
	Priority         Priority   `json:"priority"`
	Tags             *string    `json:"tags,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CreateTaskRequest is the inbound payload for task creation.
type CreateTaskRequest struct {
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	DueDate      *string                  `json:"due_date,omitempty"`
	DueTime      *string                  `json:"due_time,omitempty"`
	ReminderTime *time.Time               `json:"reminder_time,omitempty"`
	Priority     Priority                 `json:"priority"`
	Tags         *string                  `json:"tags,omitempty"`
	Recurrence   *CreateRecurrenceRequest `json:"recurrence,omitempty"`
}

func (r *CreateTaskRequest) Validate() error {
	title := strings.TrimSpace(r.Title)
	if title == "" || utf8.RuneCountInString(title) > 500 {
		return ErrInvalidTitle
	}
	if utf8.RuneCountInString(strings.TrimSpace(r.Description)) > 5000 {
		return ErrInvalidDescription
	}
	if r.DueDate != nil {
		if _, err := time.Parse("2006-01-02", *r.DueDate); err != nil {
			return ErrInvalidDueDate
		}
	}
	if r.DueTime != nil {
		t, err := time.Parse("15:04", *r.DueTime)
		if err != nil || t.Hour() > 23 || t.Minute() > 59 {
			return ErrInvalidDueTime
		}
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if !r.Priority.IsValid() {
		return ErrInvalidPriority
	}
	if r.Recurrence != nil {
		if err := r.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UpdateTaskRequest carries only the fields the caller wishes to change;
// nil pointers mean "leave unchanged". The handler builds a changed-fields
// map from whichever fields are non-nil for the task.updated.v1 payload.
type UpdateTaskRequest struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	DueDate      *string    `json:"due_date,omitempty"`
	DueTime      *string    `json:"due_time,omitempty"`
	ReminderTime *time.Time `json:"reminder_time,omitempty"`
	Priority     *Priority  `json:"priority,omitempty"`
	Tags         *string    `json:"tags,omitempty"`
}

func (r *UpdateTaskRequest) Validate() error {
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		if title == "" || utf8.RuneCountInString(title) > 500 {
			return ErrInvalidTitle
		}
	}
	if r.Description != nil && utf8.RuneCountInString(strings.TrimSpace(*r.Description)) > 5000 {
		return ErrInvalidDescription
	}
	if r.DueDate != nil {
		if _, err := time.Parse("2006-01-02", *r.DueDate); err != nil {
			return ErrInvalidDueDate
		}
	}
	if r.DueTime != nil {
		t, err := time.Parse("15:04", *r.DueTime)
		if err != nil || t.Hour() > 23 || t.Minute() > 59 {
			return ErrInvalidDueTime
		}
	}
	if r.Priority != nil && !r.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}

// ListFilter holds query parameters for paginated task listing.
type ListFilter struct {
	Status Status // "" means "all"
}

// TaskCounts summarizes the owner's tasks by status, returned alongside a list.
type TaskCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}
