package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/gateway"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
)

// outboundFrame is the wire shape pushed down every WebSocket connection.
type outboundFrame struct {
	Type      string          `json:"type"`
	EventType string          `json:"event_type,omitempty"`
	TaskID    string          `json:"task_id,omitempty"`
	Source    string          `json:"source,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// GatewayService consumes task and reminder events broadcast to every
// gateway instance and either pushes them live or queues them for replay.
type GatewayService struct {
	hub    *gateway.Hub
	store  kvstore.Store
	logger *zap.Logger
}

func NewGatewayService(hub *gateway.Hub, store kvstore.Store, logger *zap.Logger) *GatewayService {
	return &GatewayService{hub: hub, store: store, logger: logger}
}

// HandleTaskEvent pushes a task envelope to its owner's live connection, if
// any. Task updates are not queued for offline replay: the database is the
// source of truth and the client re-fetches on reconnect.
func (s *GatewayService) HandleTaskEvent(ctx context.Context, env events.Envelope) error {
	ownerID, err := ownerIDOf(env.Data)
	if err != nil || ownerID == "" {
		return nil
	}
	if !s.hub.IsLocal(ownerID) {
		return nil
	}

	eventType := strings.TrimPrefix(env.Type, "com.todo.task.")
	eventType = strings.TrimSuffix(eventType, ".v1")

	frame := outboundFrame{Type: "task", EventType: eventType, TaskID: taskIDOf(env.Data), Data: env.Data}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	s.hub.Push(gateway.Frame{Payload: payload, Priority: gateway.PriorityNormal}, ownerID)
	return nil
}

// HandleReminderTriggered pushes a live "reminder" frame if the owner is
// connected to this instance, otherwise queues it in the shared store for
// replay on reconnect.
func (s *GatewayService) HandleReminderTriggered(ctx context.Context, env events.Envelope) error {
	if env.Type != events.TypeReminderTriggered {
		return nil
	}
	ownerID, err := ownerIDOf(env.Data)
	if err != nil || ownerID == "" {
		return nil
	}

	if s.hub.IsLocal(ownerID) {
		frame := outboundFrame{Type: "reminder", Source: "live", Data: env.Data}
		payload, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if s.hub.Push(gateway.Frame{Payload: payload, Priority: gateway.PriorityHigh}, ownerID) {
			return nil
		}
	}

	// Not connected here (or the local send queue was full): queue for replay.
	return kvstore.QueueReminder(ctx, s.store, ownerID, string(env.Data))
}

// ReplayQueued drains and delivers every queued reminder for userID,
// in enqueue order, emptying the queue. Called right after a connection is
// registered.
func (s *GatewayService) ReplayQueued(ctx context.Context, userID string) error {
	entries, err := kvstore.DrainReminderQueue(ctx, s.store, userID)
	if err != nil {
		return err
	}
	for _, raw := range entries {
		frame := outboundFrame{Type: "reminder", Source: "replay", Data: json.RawMessage(raw)}
		payload, err := json.Marshal(frame)
		if err != nil {
			s.logger.Warn("failed to marshal replay frame", zap.Error(err))
			continue
		}
		s.hub.Push(gateway.Frame{Payload: payload, Priority: gateway.PriorityHigh}, userID)
	}
	return nil
}

func ownerIDOf(data json.RawMessage) (string, error) {
	var probe struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", err
	}
	return probe.OwnerID, nil
}

func taskIDOf(data json.RawMessage) string {
	var probe struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.TaskID
}
