package service_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/domain"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/scheduler"
	"github.com/todoplatform/eventbackbone/internal/service"
)

func newNotificationService() (*service.NotificationService, *events.MockBus, *scheduler.MockClient, *kvstore.MockStore) {
	bus := events.NewMockBus()
	sched := scheduler.NewMockClient()
	kv := kvstore.NewMockStore()
	svc := service.NewNotificationService(bus, sched, kv, nil, zap.NewNop())
	return svc, bus, sched, kv
}

func TestNotificationService_HandleSchedulerCallback_PublishesTriggeredAndDelivered(t *testing.T) {
	svc, bus, _, _ := newNotificationService()
	ctx := context.Background()

	err := svc.HandleSchedulerCallback(ctx, scheduler.JobPayload{ReminderID: "rem-1", TaskID: "task-1", OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawTriggered, sawDelivered bool
	for _, env := range bus.Published {
		switch env.Type {
		case events.TypeReminderTriggered:
			sawTriggered = true
		case events.TypeReminderDelivered:
			sawDelivered = true
		}
	}
	if !sawTriggered || !sawDelivered {
		t.Fatalf("expected triggered and delivered events, got %d published", len(bus.Published))
	}
}

func TestNotificationService_HandleSchedulerCallback_PublishFailureReportsFailed(t *testing.T) {
	svc, bus, _, _ := newNotificationService()
	bus.PublishErr = context.DeadlineExceeded

	err := svc.HandleSchedulerCallback(context.Background(), scheduler.JobPayload{ReminderID: "rem-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNotificationService_HandleTaskEvent_CancelsReminderJobs(t *testing.T) {
	svc, _, sched, _ := newNotificationService()
	ctx := context.Background()

	sched.Scheduled[domain.JobNameForReminder("rem-1")] = scheduler.JobPayload{ReminderID: "rem-1"}
	sched.Scheduled[domain.JobNameForReminder("rem-2")] = scheduler.JobPayload{ReminderID: "rem-2"}

	env, _ := events.New(events.TypeTaskDeleted, "command-service", events.TaskDeletedData{
		TaskID:      "task-1",
		OwnerID:     "owner-1",
		ReminderIDs: []string{"rem-1", "rem-2"},
	})

	if err := svc.HandleTaskEvent(ctx, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sched.Scheduled) != 0 {
		t.Fatalf("expected both jobs cancelled, got %d remaining", len(sched.Scheduled))
	}
	if !sched.Cancelled[domain.JobNameForReminder("rem-1")] || !sched.Cancelled[domain.JobNameForReminder("rem-2")] {
		t.Fatal("expected both reminder jobs to be marked cancelled")
	}
}

func TestNotificationService_HandleTaskEvent_IgnoresOtherTypes(t *testing.T) {
	svc, _, sched, _ := newNotificationService()
	env, _ := events.New(events.TypeTaskCreated, "command-service", events.TaskCreatedData{TaskID: "task-1"})

	if err := svc.HandleTaskEvent(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sched.Cancelled) != 0 {
		t.Fatal("expected no cancellation for a non-deletion event")
	}
}

func TestNotificationService_HandleTaskEvent_IdempotentOnRedelivery(t *testing.T) {
	svc, _, sched, _ := newNotificationService()
	ctx := context.Background()

	sched.Scheduled[domain.JobNameForReminder("rem-1")] = scheduler.JobPayload{ReminderID: "rem-1"}
	env, _ := events.New(events.TypeTaskDeleted, "command-service", events.TaskDeletedData{
		TaskID: "task-1", OwnerID: "owner-1", ReminderIDs: []string{"rem-1"},
	})

	if err := svc.HandleTaskEvent(ctx, env); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	sched.Scheduled[domain.JobNameForReminder("rem-1")] = scheduler.JobPayload{ReminderID: "rem-1"}

	if err := svc.HandleTaskEvent(ctx, env); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(sched.Scheduled) != 1 {
		t.Fatal("expected redelivery to be a no-op, leaving the re-added job untouched")
	}
}

func TestNotificationService_HandleReminderEvent_LogsScheduled(t *testing.T) {
	svc, _, _, _ := newNotificationService()
	env, _ := events.New(events.TypeReminderScheduled, "command-service", events.ReminderScheduledData{
		ReminderID: "rem-1", TaskID: "task-1", OwnerID: "owner-1",
	})
	if err := svc.HandleReminderEvent(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
