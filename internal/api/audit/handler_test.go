package audit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/api/audit"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/repository"
	"github.com/todoplatform/eventbackbone/internal/service"
)

func newServer(t *testing.T) (*httptest.Server, *service.AuditService) {
	t.Helper()
	repo := repository.NewMockAuditRepository()
	svc := service.NewAuditService(repo, kvstore.NewMockStore(), nil, zap.NewNop())
	h := audit.NewHandler(svc, zap.NewNop())
	server := httptest.NewServer(audit.NewRouter(h, prometheus.NewRegistry(), zap.NewNop()))
	t.Cleanup(server.Close)
	return server, svc
}

func TestQuery_ReturnsRecordedEntries(t *testing.T) {
	server, svc := newServer(t)
	ctx := context.Background()

	env, _ := events.New(events.TypeTaskCreated, "command-service", events.TaskCreatedData{TaskID: "task-1", OwnerID: "owner-1"})
	if err := svc.Record(ctx, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := http.Get(server.URL + "/audit?user_id=owner-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Entries  []json.RawMessage `json:"entries"`
		Total    int               `json:"total"`
		Page     int               `json:"page"`
		PageSize int               `json:"page_size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Total != 1 || len(body.Entries) != 1 {
		t.Fatalf("expected 1 entry, got total=%d len=%d", body.Total, len(body.Entries))
	}
	if body.Page != 1 || body.PageSize != 50 {
		t.Fatalf("expected default page=1 page_size=50, got %d/%d", body.Page, body.PageSize)
	}
}

func TestQuery_RejectsBadParameters(t *testing.T) {
	server, _ := newServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"malformed from", "?from=yesterday"},
		{"malformed to", "?to=2026-13-99"},
		{"zero page", "?page=0"},
		{"negative page size", "?page_size=-1"},
		{"non-numeric page", "?page=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + "/audit" + tt.query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestQuery_FiltersByEventType(t *testing.T) {
	server, svc := newServer(t)
	ctx := context.Background()

	created, _ := events.New(events.TypeTaskCreated, "command-service", events.TaskCreatedData{TaskID: "task-1", OwnerID: "owner-1"})
	deleted, _ := events.New(events.TypeTaskDeleted, "command-service", events.TaskDeletedData{TaskID: "task-1", OwnerID: "owner-1"})
	_ = svc.Record(ctx, created)
	_ = svc.Record(ctx, deleted)

	resp, err := http.Get(server.URL + "/audit?event_type=" + events.TypeTaskDeleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Total != 1 {
		t.Fatalf("expected 1 matching entry, got %d", body.Total)
	}
}
