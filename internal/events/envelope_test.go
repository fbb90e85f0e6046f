package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/todoplatform/eventbackbone/internal/events"
)

func TestTopicFor(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{events.TypeTaskCreated, events.TopicTask},
		{events.TypeTaskUpdated, events.TopicTask},
		{events.TypeTaskCompleted, events.TopicTask},
		{events.TypeTaskDeleted, events.TopicTask},
		{events.TypeReminderScheduled, events.TopicReminder},
		{events.TypeReminderTriggered, events.TopicReminder},
		{events.TypeReminderDelivered, events.TopicReminder},
		{events.TypeReminderFailed, events.TopicReminder},
		{events.TypeRecurringGenerated, events.TopicRecurring},
	}

	for _, tt := range tests {
		if got := events.TopicFor(tt.eventType); got != tt.want {
			t.Errorf("TopicFor(%s) = %s, want %s", tt.eventType, got, tt.want)
		}
	}
}

func TestNew_PopulatesEnvelope(t *testing.T) {
	env, err := events.New(events.TypeTaskCreated, "command-service", events.TaskCreatedData{
		TaskID: "task-1", OwnerID: "owner-1", Title: "Buy milk",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.SpecVersion != "1.0" {
		t.Fatalf("expected specversion 1.0, got %s", env.SpecVersion)
	}
	if env.DataContentType != "application/json" {
		t.Fatalf("expected datacontenttype application/json, got %s", env.DataContentType)
	}
	if env.ID == "" {
		t.Fatal("expected a generated envelope id")
	}
	if env.Source != "command-service" {
		t.Fatalf("expected source command-service, got %s", env.Source)
	}
	if env.Time.IsZero() || env.Time.Location() != time.UTC {
		t.Fatalf("expected a UTC timestamp, got %v", env.Time)
	}

	var data events.TaskCreatedData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.TaskID != "task-1" || data.OwnerID != "owner-1" {
		t.Fatalf("payload round trip mismatch: %+v", data)
	}
}

func TestNew_UniqueIDs(t *testing.T) {
	a, _ := events.New(events.TypeTaskCreated, "command-service", events.TaskCreatedData{TaskID: "t"})
	b, _ := events.New(events.TypeTaskCreated, "command-service", events.TaskCreatedData{TaskID: "t"})
	if a.ID == b.ID {
		t.Fatal("expected distinct envelope ids for distinct events")
	}
}

func TestEnvelope_JSONWireFormat(t *testing.T) {
	env, _ := events.New(events.TypeReminderTriggered, "notification-service", events.ReminderTriggeredData{
		ReminderID: "rem-1", TaskID: "task-1", OwnerID: "owner-1",
	})

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"specversion", "type", "source", "id", "time", "datacontenttype", "data"} {
		if _, ok := wire[field]; !ok {
			t.Errorf("missing CloudEvents field %q on the wire", field)
		}
	}
}
