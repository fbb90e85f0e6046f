package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/domain"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/invoke"
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/metrics"
)

const recurringServiceName = "recurring-service"
const recurringServiceSource = "recurring-service"

// RecurringService reacts to task.completed.v1: if the task carried an
// active recurrence rule, it computes the next occurrence, asks the
// Command Service to create it, advances the rule, and announces
// recurring.generated.v1. It holds no database of its own.
type RecurringService struct {
	bus     events.Bus
	invoke  invoke.Client
	kv      kvstore.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRecurringService wires the service. m may be nil, in which case domain
// counters are simply not recorded.
func NewRecurringService(bus events.Bus, invokeClient invoke.Client, kv kvstore.Store, m *metrics.Metrics, logger *zap.Logger) *RecurringService {
	return &RecurringService{bus: bus, invoke: invokeClient, kv: kv, metrics: m, logger: logger}
}

// HandleTaskEvent processes one envelope from task-events. A nil error
// means the caller should ack; an error wrapping domain.ErrUpstreamTransient
// means the caller should ask the bus to redeliver.
func (s *RecurringService) HandleTaskEvent(ctx context.Context, env events.Envelope) error {
	if env.Type != events.TypeTaskCompleted {
		return nil
	}

	var data events.TaskCompletedData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		s.logger.Error("malformed task.completed payload", zap.Error(err))
		return nil // unparseable payload can never succeed on retry
	}
	if !data.HadRecurrenceRule || data.RecurrenceRuleID == nil {
		return nil
	}

	if kvstore.IsDuplicate(ctx, s.kv, recurringServiceName, env.ID) {
		if s.metrics != nil {
			s.metrics.IdempotentDrops.WithLabelValues(recurringServiceName).Inc()
		}
		return nil
	}

	rule, err := s.invoke.GetRule(ctx, *data.RecurrenceRuleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if !rule.IsActive {
		return s.markProcessed(ctx, env.ID)
	}

	now := time.Now().UTC()
	if rule.HasTerminated(now) {
		isActive := false
		if err := s.invoke.PatchRule(ctx, rule.ID, invoke.PatchRuleRequest{IsActive: &isActive}); err != nil {
			return err
		}
		return s.markProcessed(ctx, env.ID)
	}

	currentDue := now
	if data.DueDate != nil {
		if parsed, err := time.Parse("2006-01-02", *data.DueDate); err == nil {
			currentDue = parsed
		}
	}
	nextDue := domain.NextDueDate(currentDue, rule.Frequency)
	nextDueDate := nextDue.Format("2006-01-02")

	newTask, err := s.invoke.CreateTask(ctx, invoke.CreateTaskRequest{
		OwnerID:          data.OwnerID,
		Title:            data.Title,
		Description:      data.Description,
		DueDate:          &nextDueDate,
		Priority:         domain.PriorityMedium,
		RecurrenceRuleID: data.RecurrenceRuleID,
	})
	if err != nil {
		return err
	}

	occurrences := rule.OccurrencesCount + 1
	if err := s.invoke.PatchRule(ctx, rule.ID, invoke.PatchRuleRequest{
		OccurrencesCount: &occurrences,
		BaseDueDate:      &nextDueDate,
	}); err != nil {
		return err
	}

	env2, err := events.New(events.TypeRecurringGenerated, recurringServiceSource, events.RecurringGeneratedData{
		RuleID:       rule.ID,
		SourceTaskID: data.TaskID,
		NewTaskID:    newTask.ID,
		OwnerID:      data.OwnerID,
		NewDueDate:   nextDueDate,
	})
	if err != nil {
		return fmt.Errorf("build recurring.generated envelope: %w", err)
	}
	if err := s.bus.Publish(ctx, env2); err != nil {
		s.logger.Error("publish recurring.generated failed", zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecurringGenerated.Inc()
	}

	return s.markProcessed(ctx, env.ID)
}

func (s *RecurringService) markProcessed(ctx context.Context, eventID string) error {
	if err := kvstore.MarkProcessed(ctx, s.kv, recurringServiceName, eventID); err != nil {
		s.logger.Warn("mark processed failed", zap.String("event_id", eventID), zap.Error(err))
	}
	return nil
}
