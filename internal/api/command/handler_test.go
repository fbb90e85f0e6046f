package command_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/api/command"
	"github.com/todoplatform/eventbackbone/internal/auth"
	"github.com/todoplatform/eventbackbone/internal/domain"
	"github.com/todoplatform/eventbackbone/internal/repository"
	"github.com/todoplatform/eventbackbone/internal/scheduler"
	"github.com/todoplatform/eventbackbone/internal/service"
)

const testSecret = "test-signing-secret"

type fixture struct {
	server *httptest.Server
	svc    *service.CommandService
	outbox *repository.MockOutboxRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tasks := repository.NewMockTaskRepository()
	rules := repository.NewMockRuleRepository()
	reminders := repository.NewMockReminderRepository()
	outbox := repository.NewMockOutboxRepository()
	tx := repository.NewMockTransactor()
	sched := scheduler.NewMockClient()
	svc := service.NewCommandService(tasks, rules, reminders, outbox, tx, sched, nil, zap.NewNop())

	h := command.NewHandler(svc, zap.NewNop())
	router := command.NewRouter(h, auth.NewVerifier(testSecret), prometheus.NewRegistry(), zap.NewNop())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &fixture{server: server, svc: svc, outbox: outbox}
}

func tokenFor(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *fixture) do(t *testing.T, method, path, subject string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, subject))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func TestCreateTask_Created(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/tasks", "owner-1", domain.CreateTaskRequest{Title: "Buy milk"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var task domain.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if task.OwnerID != "owner-1" {
		t.Fatalf("expected owner from token subject, got %s", task.OwnerID)
	}
	if task.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", task.Status)
	}
}

func TestCreateTask_ValidationError(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/tasks", "owner-1", domain.CreateTaskRequest{Title: "  "})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateTask_Unauthorized(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/tasks", "", domain.CreateTaskRequest{Title: "Buy milk"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCompleteTask_ForeignOwnerIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.svc.CreateTask(ctx, "owner-1", domain.CreateTaskRequest{Title: "Water plants"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outboxBefore, _ := f.outbox.FindUndispatched(ctx, 100)

	resp := f.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/complete", "owner-2", map[string]bool{"completed": true})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected uniform 404 for a foreign task, got %d", resp.StatusCode)
	}

	got, err := f.svc.GetTask(ctx, "owner-1", task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("expected the task to remain pending, got %s", got.Status)
	}
	outboxAfter, _ := f.outbox.FindUndispatched(ctx, 100)
	if len(outboxAfter) != len(outboxBefore) {
		t.Fatalf("expected no envelope for the rejected mutation, outbox grew from %d to %d", len(outboxBefore), len(outboxAfter))
	}
}

func TestCompleteTask_TogglesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, _ := f.svc.CreateTask(ctx, "owner-1", domain.CreateTaskRequest{Title: "Water plants"})

	resp := f.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/complete", "owner-1", map[string]bool{"completed": true})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	got, _ := f.svc.GetTask(ctx, "owner-1", task.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}

	resp = f.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/complete", "owner-1", map[string]bool{"completed": false})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	got, _ = f.svc.GetTask(ctx, "owner-1", task.ID)
	if got.Status != domain.StatusPending {
		t.Fatalf("expected pending after un-complete, got %s", got.Status)
	}
}

func TestDeleteTask_NoContentThenNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, _ := f.svc.CreateTask(ctx, "owner-1", domain.CreateTaskRequest{Title: "Old task"})

	resp := f.do(t, http.MethodDelete, "/api/tasks/"+task.ID, "owner-1", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	resp = f.do(t, http.MethodDelete, "/api/tasks/missing-id", "owner-1", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a missing task, got %d", resp.StatusCode)
	}
}

func TestListTasks_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/tasks?status=archived", "owner-1", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown status filter, got %d", resp.StatusCode)
	}
}

func TestInternalCreateTask_SharesValidation(t *testing.T) {
	f := newFixture(t)

	// The internal path carries the owner in the body and no bearer token,
	// but rejects the same malformed input as the public one.
	resp := f.do(t, http.MethodPost, "/internal/tasks", "", map[string]string{
		"owner_id": "owner-1",
		"title":    "",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty title on the internal path, got %d", resp.StatusCode)
	}
}
