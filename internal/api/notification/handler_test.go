package notification_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/api/notification"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/scheduler"
	"github.com/todoplatform/eventbackbone/internal/service"
)

func newServer(t *testing.T) (*httptest.Server, *events.MockBus) {
	t.Helper()
	bus := events.NewMockBus()
	svc := service.NewNotificationService(bus, scheduler.NewMockClient(), kvstore.NewMockStore(), nil, zap.NewNop())
	h := notification.NewHandler(svc, zap.NewNop())
	server := httptest.NewServer(notification.NewRouter(h, prometheus.NewRegistry(), zap.NewNop()))
	t.Cleanup(server.Close)
	return server, bus
}

func TestJobCallback_PublishesTriggeredAndDelivered(t *testing.T) {
	server, bus := newServer(t)

	body := `{"data":{"reminder_id":"rem-1","task_id":"task-1","owner_id":"owner-1"}}`
	resp, err := http.Post(server.URL+"/job/reminder-rem-1", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
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
		t.Fatalf("expected triggered and delivered envelopes, got %d published", len(bus.Published))
	}
}

func TestJobCallback_AcceptsPut(t *testing.T) {
	server, _ := newServer(t)

	req, _ := http.NewRequest(http.MethodPut, server.URL+"/job/reminder-rem-1",
		strings.NewReader(`{"data":{"reminder_id":"rem-1","task_id":"task-1","owner_id":"owner-1"}}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for PUT delivery, got %d", resp.StatusCode)
	}
}

func TestJobCallback_RejectsMalformedBody(t *testing.T) {
	server, bus := newServer(t)

	resp, err := http.Post(server.URL+"/job/reminder-rem-1", "application/json", strings.NewReader("not-json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if len(bus.Published) != 0 {
		t.Fatalf("expected no envelopes for a malformed callback, got %d", len(bus.Published))
	}
}
