package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/domain"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/metrics"
	"github.com/todoplatform/eventbackbone/internal/scheduler"
)

const notificationServiceName = "notification-service"
const notificationServiceSource = "notification-service"

// NotificationService has no local database: its state lives entirely in
// the scheduler (pending job timers) and the shared KV store (idempotency
// keys). It reacts to scheduler callbacks and to task/reminder events.
type NotificationService struct {
	bus       events.Bus
	scheduler scheduler.Client
	kv        kvstore.Store
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewNotificationService wires the service. m may be nil, in which case
// counters are simply not recorded.
func NewNotificationService(bus events.Bus, sched scheduler.Client, kv kvstore.Store, m *metrics.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{bus: bus, scheduler: sched, kv: kv, metrics: m, logger: logger}
}

// HandleSchedulerCallback is invoked when the scheduler fires a reminder
// job at its trigger time. It publishes reminder.triggered.v1, then
// attempts delivery toward the gateway and publishes the outcome.
func (s *NotificationService) HandleSchedulerCallback(ctx context.Context, payload scheduler.JobPayload) error {
	triggeredEnv, err := events.New(events.TypeReminderTriggered, notificationServiceSource, events.ReminderTriggeredData{
		ReminderID: payload.ReminderID,
		TaskID:     payload.TaskID,
		OwnerID:    payload.OwnerID,
	})
	if err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, triggeredEnv); err != nil {
		s.logger.Error("publish reminder.triggered failed", zap.String("reminder_id", payload.ReminderID), zap.Error(err))
		return s.publishFailed(ctx, payload, "publish reminder.triggered failed")
	}

	return s.deliver(ctx, payload)
}

// deliver publishes the reminder onward for the gateway to pick up and
// reports the outcome as reminder.delivered.v1 or reminder.failed.v1. A
// publish failure here is treated as a delivery failure, since the bus is
// the only channel toward the gateway.
func (s *NotificationService) deliver(ctx context.Context, payload scheduler.JobPayload) error {
	deliveredEnv, err := events.New(events.TypeReminderDelivered, notificationServiceSource, events.ReminderDeliveredData{
		ReminderID:   payload.ReminderID,
		TaskID:       payload.TaskID,
		OwnerID:      payload.OwnerID,
		DeliveredVia: "bus",
	})
	if err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, deliveredEnv); err != nil {
		return s.publishFailed(ctx, payload, "publish reminder.delivered failed")
	}
	return nil
}

func (s *NotificationService) publishFailed(ctx context.Context, payload scheduler.JobPayload, reason string) error {
	failedEnv, buildErr := events.New(events.TypeReminderFailed, notificationServiceSource, events.ReminderFailedData{
		ReminderID: payload.ReminderID,
		TaskID:     payload.TaskID,
		OwnerID:    payload.OwnerID,
		Reason:     reason,
	})
	if buildErr != nil {
		return buildErr
	}
	if err := s.bus.Publish(ctx, failedEnv); err != nil {
		s.logger.Error("publish reminder.failed failed", zap.String("reminder_id", payload.ReminderID), zap.Error(err))
	}
	return nil
}

// HandleTaskEvent processes one envelope from task-events: on
// task.deleted.v1 it cancels the scheduler job for every reminder id the
// task owned.
func (s *NotificationService) HandleTaskEvent(ctx context.Context, env events.Envelope) error {
	if env.Type != events.TypeTaskDeleted {
		return nil
	}

	var data events.TaskDeletedData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		s.logger.Error("malformed task.deleted payload", zap.Error(err))
		return nil
	}

	if kvstore.IsDuplicate(ctx, s.kv, notificationServiceName, env.ID) {
		if s.metrics != nil {
			s.metrics.IdempotentDrops.WithLabelValues(notificationServiceName).Inc()
		}
		return nil
	}

	for _, reminderID := range data.ReminderIDs {
		jobName := domain.JobNameForReminder(reminderID)
		if err := s.scheduler.CancelJob(ctx, jobName); err != nil {
			return err
		}
	}

	if err := kvstore.MarkProcessed(ctx, s.kv, notificationServiceName, env.ID); err != nil {
		s.logger.Warn("mark processed failed", zap.String("event_id", env.ID), zap.Error(err))
	}
	return nil
}

// HandleReminderEvent processes one envelope from reminder-events. Only
// reminder.scheduled.v1 is observed here, purely for visibility: the
// scheduling itself is the Command Service's job.
func (s *NotificationService) HandleReminderEvent(ctx context.Context, env events.Envelope) error {
	if env.Type != events.TypeReminderScheduled {
		return nil
	}
	var data events.ReminderScheduledData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil
	}
	s.logger.Info("reminder scheduled",
		zap.String("reminder_id", data.ReminderID),
		zap.String("task_id", data.TaskID),
		zap.Time("trigger_time", data.TriggerTime))
	return nil
}
