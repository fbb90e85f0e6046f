package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	gwapi "github.com/todoplatform/eventbackbone/internal/api/gateway"
	"github.com/todoplatform/eventbackbone/internal/auth"
	"github.com/todoplatform/eventbackbone/internal/events"
	gw "github.com/todoplatform/eventbackbone/internal/gateway"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/service"
)

const testSecret = "test-signing-secret"

type wsFixture struct {
	server *httptest.Server
	store  *kvstore.MockStore
	svc    *service.GatewayService
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	store := kvstore.NewMockStore()
	hub := gw.NewHub(store, nil, zap.NewNop())
	svc := service.NewGatewayService(hub, store, zap.NewNop())
	h := gwapi.NewHandler(hub, svc, auth.NewVerifier(testSecret), zap.NewNop())
	server := httptest.NewServer(gwapi.NewRouter(h, prometheus.NewRegistry(), zap.NewNop()))
	t.Cleanup(server.Close)
	return &wsFixture{server: server, store: store, svc: svc}
}

func (f *wsFixture) wsURL(query string) string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws" + query
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

func expectClose(t *testing.T, conn *websocket.Conn, wantCode int) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected a close frame, got %v", err)
	}
	if closeErr.Code != wantCode {
		t.Fatalf("expected close code %d, got %d", wantCode, closeErr.Code)
	}
}

func TestConnect_MissingUserIDClosesWith4001(t *testing.T) {
	f := newWSFixture(t)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL(""), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	expectClose(t, conn, 4001)
}

func TestConnect_SubjectMismatchClosesWith4001(t *testing.T) {
	f := newWSFixture(t)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL("?user_id=owner-2&token="+tokenFor(t, "owner-1")), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	expectClose(t, conn, 4001)
}

func TestConnect_ReplaysQueuedRemindersFirst(t *testing.T) {
	f := newWSFixture(t)
	ctx := context.Background()

	queued := `{"reminder_id":"rem-1","task_id":"task-1","owner_id":"owner-1"}`
	if err := kvstore.QueueReminder(ctx, f.store, "owner-1", queued); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL("?user_id=owner-1&token="+tokenFor(t, "owner-1")), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}

	var frame struct {
		Type   string          `json:"type"`
		Source string          `json:"source"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame.Type != "reminder" || frame.Source != "replay" {
		t.Fatalf("expected a replayed reminder as the first frame, got %+v", frame)
	}

	remaining, _ := kvstore.DrainReminderQueue(ctx, f.store, "owner-1")
	if len(remaining) != 0 {
		t.Fatalf("expected the offline queue to be emptied, %d remaining", len(remaining))
	}
}

func TestConnect_LiveReminderPushedToSocket(t *testing.T) {
	f := newWSFixture(t)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL("?user_id=owner-1&token="+tokenFor(t, "owner-1")), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the connection before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for !kvstore.IsPresent(context.Background(), f.store, "owner-1") {
		if time.Now().After(deadline) {
			t.Fatal("presence was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	env, _ := events.New(events.TypeReminderTriggered, "notification-service", events.ReminderTriggeredData{
		ReminderID: "rem-1", TaskID: "task-1", OwnerID: "owner-1",
	})
	if err := f.svc.HandleReminderTriggered(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}

	var frame struct {
		Type   string `json:"type"`
		Source string `json:"source"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame.Type != "reminder" || frame.Source != "live" {
		t.Fatalf("expected a live reminder frame, got %+v", frame)
	}
}

func TestConnect_TaskEventCarriesShortType(t *testing.T) {
	f := newWSFixture(t)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL("?user_id=owner-1&token="+tokenFor(t, "owner-1")), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for !kvstore.IsPresent(context.Background(), f.store, "owner-1") {
		if time.Now().After(deadline) {
			t.Fatal("presence was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	env, _ := events.New(events.TypeTaskCompleted, "command-service", events.TaskCompletedData{
		TaskID: "task-1", OwnerID: "owner-1", Title: "Water plants",
	})
	if err := f.svc.HandleTaskEvent(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}

	var frame struct {
		Type      string `json:"type"`
		EventType string `json:"event_type"`
		TaskID    string `json:"task_id"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame.Type != "task" || frame.EventType != "completed" || frame.TaskID != "task-1" {
		t.Fatalf("unexpected task frame: %+v", frame)
	}
}

func TestConnect_DisconnectClearsPresence(t *testing.T) {
	f := newWSFixture(t)

	conn, _, err := websocket.DefaultDialer.Dial(f.wsURL("?user_id=owner-1&token="+tokenFor(t, "owner-1")), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !kvstore.IsPresent(context.Background(), f.store, "owner-1") {
		if time.Now().After(deadline) {
			t.Fatal("presence was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for kvstore.IsPresent(context.Background(), f.store, "owner-1") {
		if time.Now().After(deadline) {
			t.Fatal("presence was never cleared after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
