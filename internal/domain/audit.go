package domain

import (
	"encoding/json"
	"time"
)

// AuditEntry is an immutable record of one observed event envelope.
// Rows are INSERT-only; the storage layer never updates or deletes them.
type AuditEntry struct {
	ID         string          `json:"id"`
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Source     string          `json:"source"`
	ActorID    *string         `json:"actor_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	EventTime  time.Time       `json:"event_time"`
	ReceivedAt time.Time       `json:"received_at"`
}

// AuditFilter holds query parameters for paginated audit listing.
type AuditFilter struct {
	EventType *string
	ActorID   *string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
