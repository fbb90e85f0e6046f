package service_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/domain"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/repository"
	"github.com/todoplatform/eventbackbone/internal/service"
)

func newAuditService() (*service.AuditService, *repository.MockAuditRepository, *kvstore.MockStore) {
	repo := repository.NewMockAuditRepository()
	kv := kvstore.NewMockStore()
	svc := service.NewAuditService(repo, kv, nil, zap.NewNop())
	return svc, repo, kv
}

func TestAuditService_Record(t *testing.T) {
	svc, repo, _ := newAuditService()
	ctx := context.Background()

	env, _ := events.New(events.TypeTaskCreated, "command-service", events.TaskCreatedData{
		TaskID: "task-1", OwnerID: "owner-1", Title: "Buy milk",
	})

	if err := svc.Record(ctx, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, total, err := repo.List(ctx, domain.AuditFilter{PageSize: 10, Page: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected 1 entry, got total=%d len=%d", total, len(entries))
	}
	if entries[0].EventID != env.ID {
		t.Fatalf("expected event id %s, got %s", env.ID, entries[0].EventID)
	}
	if entries[0].ActorID == nil || *entries[0].ActorID != "owner-1" {
		t.Fatal("expected actor id to be extracted from owner_id")
	}
}

func TestAuditService_Record_IdempotentOnRedelivery(t *testing.T) {
	svc, repo, _ := newAuditService()
	ctx := context.Background()

	env, _ := events.New(events.TypeTaskCreated, "command-service", events.TaskCreatedData{TaskID: "task-1", OwnerID: "owner-1"})

	if err := svc.Record(ctx, env); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.Record(ctx, env); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	_, total, _ := repo.List(ctx, domain.AuditFilter{PageSize: 10, Page: 1})
	if total != 1 {
		t.Fatalf("expected exactly 1 entry across both deliveries, got %d", total)
	}
}

func TestAuditService_Query_FiltersByEventType(t *testing.T) {
	svc, _, _ := newAuditService()
	ctx := context.Background()

	created, _ := events.New(events.TypeTaskCreated, "command-service", events.TaskCreatedData{TaskID: "task-1", OwnerID: "owner-1"})
	completed, _ := events.New(events.TypeTaskCompleted, "command-service", events.TaskCompletedData{TaskID: "task-1", OwnerID: "owner-1"})

	_ = svc.Record(ctx, created)
	_ = svc.Record(ctx, completed)

	wantType := events.TypeTaskCompleted
	entries, total, err := svc.Query(ctx, domain.AuditFilter{EventType: &wantType, PageSize: 10, Page: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected 1 matching entry, got total=%d len=%d", total, len(entries))
	}
	if entries[0].EventType != events.TypeTaskCompleted {
		t.Fatalf("expected event type %s, got %s", events.TypeTaskCompleted, entries[0].EventType)
	}
}
