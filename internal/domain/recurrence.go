package domain

import "time"

// Frequency is the recurrence cadence.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// RecurrenceRule governs how a task regenerates itself on completion.
// It is owned by exactly one task (TaskID) but referenced by every
// successor task generated from it.
type RecurrenceRule struct {
	ID               string    `json:"id"`
	TaskID           string    `json:"task_id"`
	Frequency        Frequency `json:"frequency"`
	EndAfterCount    *int      `json:"end_after_count,omitempty"`
	EndByDate        *string   `json:"end_by_date,omitempty"` // YYYY-MM-DD
	OccurrencesCount int       `json:"occurrences_generated"`
	BaseDueDate      *string   `json:"base_due_date,omitempty"` // YYYY-MM-DD
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateRecurrenceRequest is the inbound payload attached to a task create/update.
type CreateRecurrenceRequest struct {
	Frequency     Frequency `json:"frequency"`
	EndAfterCount *int      `json:"end_after_count,omitempty"`
	EndByDate     *string   `json:"end_by_date,omitempty"`
}

func (r *CreateRecurrenceRequest) Validate() error {
	if !r.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if r.EndAfterCount != nil && *r.EndAfterCount < 1 {
		return ErrInvalidEndAfter
	}
	if r.EndByDate != nil {
		if _, err := time.Parse("2006-01-02", *r.EndByDate); err != nil {
			return ErrInvalidDueDate
		}
	}
	return nil
}

// NextDueDate computes the next occurrence's due date from the current one,
// following calendar-aware arithmetic for the monthly case: when the target
// month has fewer days than the source day-of-month, it falls back to the
// last day of the target month (e.g. Jan 31 + monthly -> Feb 28).
func NextDueDate(current time.Time, freq Frequency) time.Time {
	switch freq {
	case FrequencyDaily:
		return current.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return current.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return addCalendarMonth(current)
	default:
		return current
	}
}

func addCalendarMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	targetMonth := month + 1
	targetYear := year
	if targetMonth > 12 {
		targetMonth = 1
		targetYear++
	}
	lastDay := lastDayOfMonth(targetYear, targetMonth)
	if day > lastDay {
		day = lastDay
	}
	return time.Date(targetYear, targetMonth, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfThis := firstOfNext.AddDate(0, 0, -1)
	return lastOfThis.Day()
}

// HasTerminated reports whether the rule should be deactivated given the
// number of occurrences generated so far and the current time.
func (r *RecurrenceRule) HasTerminated(now time.Time) bool {
	if r.EndAfterCount != nil && r.OccurrencesCount >= *r.EndAfterCount {
		return true
	}
	if r.EndByDate != nil {
		endBy, err := time.Parse("2006-01-02", *r.EndByDate)
		if err == nil && !now.Before(endBy) {
			return true
		}
	}
	return false
}
