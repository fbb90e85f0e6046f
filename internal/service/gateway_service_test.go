package service_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/gateway"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/service"
)

func newGatewayService() (*service.GatewayService, *kvstore.MockStore) {
	store := kvstore.NewMockStore()
	hub := gateway.NewHub(store, nil, zap.NewNop())
	svc := service.NewGatewayService(hub, store, zap.NewNop())
	return svc, store
}

func TestGatewayService_HandleReminderTriggered_QueuesWhenOffline(t *testing.T) {
	svc, store := newGatewayService()
	ctx := context.Background()

	env, _ := events.New(events.TypeReminderTriggered, "notification-service", events.ReminderTriggeredData{
		ReminderID: "rem-1", TaskID: "task-1", OwnerID: "owner-1",
	})

	if err := svc.HandleReminderTriggered(ctx, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	queued, err := kvstore.DrainReminderQueue(ctx, store, "owner-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("expected 1 queued reminder, got %d", len(queued))
	}
}

func TestGatewayService_HandleTaskEvent_NoOpWhenOffline(t *testing.T) {
	svc, _ := newGatewayService()
	env, _ := events.New(events.TypeTaskUpdated, "command-service", events.TaskUpdatedData{
		TaskID: "task-1", OwnerID: "owner-1", Changed: map[string]any{"title": "new"},
	})

	if err := svc.HandleTaskEvent(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGatewayService_ReplayQueued_DrainsQueue(t *testing.T) {
	svc, store := newGatewayService()
	ctx := context.Background()

	if err := kvstore.QueueReminder(ctx, store, "owner-1", `{"reminder_id":"rem-1"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.ReplayQueued(ctx, "owner-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	remaining, _ := kvstore.DrainReminderQueue(ctx, store, "owner-1")
	if len(remaining) != 0 {
		t.Fatalf("expected queue to be emptied, got %d remaining", len(remaining))
	}
}
