// Package events defines the CloudEvents v1.0 envelope shared by every
// service and the topic mapping used to route it across the bus.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types. Every consumer treats an unrecognized type as a no-op ack,
// not an error, so new types can be added without breaking old consumers.
const (
	TypeTaskCreated        = "com.todo.task.created.v1"
	TypeTaskUpdated        = "com.todo.task.updated.v1"
	TypeTaskCompleted      = "com.todo.task.completed.v1"
	TypeTaskDeleted        = "com.todo.task.deleted.v1"
	TypeReminderScheduled  = "com.todo.reminder.scheduled.v1"
	TypeReminderTriggered  = "com.todo.reminder.triggered.v1"
	TypeReminderDelivered  = "com.todo.reminder.delivered.v1"
	TypeReminderFailed     = "com.todo.reminder.failed.v1"
	TypeRecurringGenerated = "com.todo.recurring.generated.v1"
)

// Topics.
const (
	TopicTask      = "task-events"
	TopicReminder  = "reminder-events"
	TopicRecurring = "recurring-events"
)

// TopicFor maps an event type to the topic it is published on.
// Unknown prefixes fall back to TopicTask, matching the three-topic
// scheme; every type constant above is covered explicitly.
func TopicFor(eventType string) string {
	switch eventType {
	case TypeTaskCreated, TypeTaskUpdated, TypeTaskCompleted, TypeTaskDeleted:
		return TopicTask
	case TypeReminderScheduled, TypeReminderTriggered, TypeReminderDelivered, TypeReminderFailed:
		return TopicReminder
	case TypeRecurringGenerated:
		return TopicRecurring
	default:
		return TopicTask
	}
}

// Envelope is the CloudEvents v1.0 JSON binding used on every topic.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	ID              string          `json:"id"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

// New builds a fully-populated envelope around an arbitrary JSON-serializable
// payload. The caller supplies the source service name; id and time are
// always generated here so no two services can disagree on their shape.
func New(eventType, source string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          source,
		ID:              uuid.NewString(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            raw,
	}, nil
}

// TaskCreatedData is the payload for com.todo.task.created.v1.
type TaskCreatedData struct {
	TaskID           string  `json:"task_id"`
	OwnerID          string  `json:"owner_id"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	DueDate          *string `json:"due_date,omitempty"`
	ReminderTime     *string `json:"reminder_time,omitempty"`
	RecurrenceRuleID *string `json:"recurrence_rule_id,omitempty"`
	Priority         string  `json:"priority"`
	Tags             *string `json:"tags,omitempty"`
}

// TaskUpdatedData is the payload for com.todo.task.updated.v1.
type TaskUpdatedData struct {
	TaskID  string         `json:"task_id"`
	OwnerID string         `json:"owner_id"`
	Changed map[string]any `json:"changed"`
}

// TaskCompletedData is the payload for com.todo.task.completed.v1.
type TaskCompletedData struct {
	TaskID            string  `json:"task_id"`
	OwnerID           string  `json:"owner_id"`
	HadRecurrenceRule bool    `json:"had_recurrence_rule"`
	RecurrenceRuleID  *string `json:"recurrence_rule_id,omitempty"`
	DueDate           *string `json:"due_date,omitempty"`
	Title             string  `json:"title"`
	Description       string  `json:"description,omitempty"`
}

// TaskDeletedData is the payload for com.todo.task.deleted.v1.
type TaskDeletedData struct {
	TaskID      string   `json:"task_id"`
	OwnerID     string   `json:"owner_id"`
	ReminderIDs []string `json:"reminder_ids,omitempty"`
}

// ReminderScheduledData is the payload for com.todo.reminder.scheduled.v1.
type ReminderScheduledData struct {
	ReminderID  string    `json:"reminder_id"`
	TaskID      string    `json:"task_id"`
	OwnerID     string    `json:"owner_id"`
	TriggerTime time.Time `json:"trigger_time"`
}

// ReminderTriggeredData is the payload for com.todo.reminder.triggered.v1.
type ReminderTriggeredData struct {
	ReminderID string `json:"reminder_id"`
	TaskID     string `json:"task_id"`
	OwnerID    string `json:"owner_id"`
}

// ReminderDeliveredData is the payload for com.todo.reminder.delivered.v1.
type ReminderDeliveredData struct {
	ReminderID   string `json:"reminder_id"`
	TaskID       string `json:"task_id"`
	OwnerID      string `json:"owner_id"`
	DeliveredVia string `json:"delivered_via"`
}

// ReminderFailedData is the payload for com.todo.reminder.failed.v1.
type ReminderFailedData struct {
	ReminderID string `json:"reminder_id"`
	TaskID     string `json:"task_id"`
	OwnerID    string `json:"owner_id"`
	Reason     string `json:"reason"`
}

// RecurringGeneratedData is the payload for com.todo.recurring.generated.v1.
type RecurringGeneratedData struct {
	RuleID       string `json:"rule_id"`
	SourceTaskID string `json:"source_task_id"`
	NewTaskID    string `json:"new_task_id"`
	OwnerID      string `json:"owner_id"`
	NewDueDate   string `json:"new_due_date"`
}
