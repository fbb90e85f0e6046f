package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/todoplatform/eventbackbone/internal/domain"
	"github.com/todoplatform/eventbackbone/internal/events"
	"github.com/todoplatform/eventbackbone/internal/metrics"
	"github.com/todoplatform/eventbackbone/internal/repository"
	"github.com/todoplatform/eventbackbone/internal/scheduler"
)

const commandServiceSource = "command-service"

// CommandService owns task, recurrence rule, and reminder state. Every
// mutation writes its domain row and an outbox row in the same transaction
// — see Transactor — and schedules or cancels reminder jobs as needed.
// HTTP handlers depend on this service, never on the repositories directly.
type CommandService struct {
	tasks     repository.TaskRepository
	rules     repository.RuleRepository
	reminders repository.ReminderRepository
	outbox    repository.OutboxRepository
	tx        repository.Transactor
	scheduler scheduler.Client
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewCommandService wires the service. m may be nil, in which case domain
// counters are simply not recorded.
func NewCommandService(
	tasks repository.TaskRepository,
	rules repository.RuleRepository,
	reminders repository.ReminderRepository,
	outbox repository.OutboxRepository,
	tx repository.Transactor,
	sched scheduler.Client,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CommandService {
	return &CommandService{
		tasks:     tasks,
		rules:     rules,
		reminders: reminders,
		outbox:    outbox,
		tx:        tx,
		scheduler: sched,
		metrics:   m,
		logger:    logger,
	}
}

// CreateTask validates, persists a task (and its recurrence rule and
// reminder, if requested), and emits task.created.v1 (plus
// reminder.scheduled.v1 when a reminder was attached).
func (s *CommandService) CreateTask(ctx context.Context, ownerID string, req domain.CreateTaskRequest) (*domain.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &domain.Task{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       domain.StatusPending,
		DueDate:      req.DueDate,
		DueTime:      req.DueTime,
		ReminderTime: req.ReminderTime,
		Priority:     req.Priority,
		Tags:         req.Tags,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var rule *domain.RecurrenceRule
	if req.Recurrence != nil {
		rule = &domain.RecurrenceRule{
			ID:            uuid.New().String(),
			TaskID:        t.ID,
			Frequency:     req.Recurrence.Frequency,
			EndAfterCount: req.Recurrence.EndAfterCount,
			EndByDate:     req.Recurrence.EndByDate,
			BaseDueDate:   req.DueDate,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		t.RecurrenceRuleID = &rule.ID
	}

	var reminder *domain.Reminder
	if t.ReminderTime != nil {
		reminder = &domain.Reminder{
			ID:          uuid.New().String(),
			TaskID:      t.ID,
			OwnerID:     ownerID,
			TriggerTime: *t.ReminderTime,
			Status:      domain.ReminderPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		reminder.JobName = domain.JobNameForReminder(reminder.ID)
	}

	var reminderTime *string
	if t.ReminderTime != nil {
		v := t.ReminderTime.UTC().Format(time.RFC3339)
		reminderTime = &v
	}

	createdEnv, err := s.buildEnvelope(events.TypeTaskCreated, events.TaskCreatedData{
		TaskID:           t.ID,
		OwnerID:          ownerID,
		Title:            t.Title,
		Description:      t.Description,
		DueDate:          t.DueDate,
		ReminderTime:     reminderTime,
		RecurrenceRuleID: t.RecurrenceRuleID,
		Priority:         string(t.Priority),
		Tags:             t.Tags,
	})
	if err != nil {
		return nil, err
	}

	var scheduledEnv *events.Envelope
	if reminder != nil {
		env, err := s.buildEnvelope(events.TypeReminderScheduled, events.ReminderScheduledData{
			ReminderID:  reminder.ID,
			TaskID:      t.ID,
			OwnerID:     ownerID,
			TriggerTime: reminder.TriggerTime,
		})
		if err != nil {
			return nil, err
		}
		scheduledEnv = &env
	}

	err = s.tx.WithTx(ctx, func(tx repository.Tx) error {
		if err := s.tasks.CreateTx(ctx, tx, t); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if rule != nil {
			if err := s.rules.CreateTx(ctx, tx, rule); err != nil {
				return fmt.Errorf("create rule: %w", err)
			}
		}
		if err := s.outbox.Insert(ctx, tx, outboxRowFor(createdEnv)); err != nil {
			return fmt.Errorf("outbox task.created: %w", err)
		}
		if reminder != nil {
			if err := s.reminders.CreateTx(ctx, tx, reminder); err != nil {
				return fmt.Errorf("create reminder: %w", err)
			}
			if err := s.outbox.Insert(ctx, tx, outboxRowFor(*scheduledEnv)); err != nil {
				return fmt.Errorf("outbox reminder.scheduled: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TasksCreated.Inc()
	}

	if reminder != nil {
		if err := s.scheduler.ScheduleJob(ctx, reminder.JobName, reminder.TriggerTime, scheduler.JobPayload{
			ReminderID: reminder.ID,
			TaskID:     t.ID,
			OwnerID:    ownerID,
		}); err != nil {
			s.logger.Error("schedule reminder job failed", zap.String("reminder_id", reminder.ID), zap.Error(err))
		} else if s.metrics != nil {
			s.metrics.RemindersScheduled.Inc()
		}
	}

	return t, nil
}

// GetTask fetches a task, enforcing owner scoping as a uniform not-found.
func (s *CommandService) GetTask(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

// ListTasks returns an owner's tasks plus status counts.
func (s *CommandService) ListTasks(ctx context.Context, ownerID string, f domain.ListFilter) ([]*domain.Task, domain.TaskCounts, error) {
	return s.tasks.List(ctx, ownerID, f)
}

// UpdateTask applies a partial update and emits task.updated.v1 with a
// changed-fields map built from whichever request fields were non-nil.
func (s *CommandService) UpdateTask(ctx context.Context, ownerID, id string, req domain.UpdateTaskRequest) (*domain.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.StatusDeleted {
		return nil, domain.ErrAlreadyDeleted
	}

	changed := map[string]any{}
	if req.Title != nil {
		t.Title = *req.Title
		changed["title"] = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
		changed["description"] = *req.Description
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
		changed["due_date"] = *req.DueDate
	}
	if req.DueTime != nil {
		t.DueTime = req.DueTime
		changed["due_time"] = *req.DueTime
	}
	if req.ReminderTime != nil {
		t.ReminderTime = req.ReminderTime
		changed["reminder_time"] = req.ReminderTime.Format(time.RFC3339)
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
		changed["priority"] = string(*req.Priority)
	}
	if req.Tags != nil {
		t.Tags = req.Tags
		changed["tags"] = *req.Tags
	}
	t.UpdatedAt = time.Now().UTC()

	env, err := s.buildEnvelope(events.TypeTaskUpdated, events.TaskUpdatedData{
		TaskID:  t.ID,
		OwnerID: ownerID,
		Changed: changed,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx repository.Tx) error {
		if err := s.tasks.UpdateTx(ctx, tx, t); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, outboxRowFor(env))
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// CompleteTask toggles a task's completion status and emits
// task.completed.v1. Reverting to pending is treated as a plain update
// with no recurrence side effects: recurrence only fires forward.
func (s *CommandService) CompleteTask(ctx context.Context, ownerID, id string, completed bool) (*domain.Task, error) {
	t, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.StatusDeleted {
		return nil, domain.ErrAlreadyDeleted
	}

	if !completed {
		t.Status = domain.StatusPending
		t.UpdatedAt = time.Now().UTC()
		env, err := s.buildEnvelope(events.TypeTaskUpdated, events.TaskUpdatedData{
			TaskID:  t.ID,
			OwnerID: ownerID,
			Changed: map[string]any{"status": string(domain.StatusPending)},
		})
		if err != nil {
			return nil, err
		}
		err = s.tx.WithTx(ctx, func(tx repository.Tx) error {
			if err := s.tasks.UpdateTx(ctx, tx, t); err != nil {
				return err
			}
			return s.outbox.Insert(ctx, tx, outboxRowFor(env))
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	t.Status = domain.StatusCompleted
	t.UpdatedAt = time.Now().UTC()

	env, err := s.buildEnvelope(events.TypeTaskCompleted, events.TaskCompletedData{
		TaskID:            t.ID,
		OwnerID:           ownerID,
		HadRecurrenceRule: t.RecurrenceRuleID != nil,
		RecurrenceRuleID:  t.RecurrenceRuleID,
		DueDate:           t.DueDate,
		Title:             t.Title,
		Description:       t.Description,
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx repository.Tx) error {
		if err := s.tasks.UpdateTx(ctx, tx, t); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, outboxRowFor(env))
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTask soft-deletes a task and emits task.deleted.v1 carrying every
// reminder id the task owned, so the Notification Service needs no extra
// lookup to cancel the matching scheduler jobs.
func (s *CommandService) DeleteTask(ctx context.Context, ownerID, id string) error {
	t, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if t.Status == domain.StatusDeleted {
		return domain.ErrAlreadyDeleted
	}

	reminders, err := s.reminders.ListByTask(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}
	reminderIDs := make([]string, len(reminders))
	for i, r := range reminders {
		reminderIDs[i] = r.ID
	}

	env, err := s.buildEnvelope(events.TypeTaskDeleted, events.TaskDeletedData{
		TaskID:      t.ID,
		OwnerID:     ownerID,
		ReminderIDs: reminderIDs,
	})
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx repository.Tx) error {
		if err := s.tasks.DeleteTx(ctx, tx, t.ID); err != nil {
			return err
		}
		if err := s.reminders.FailAllByTaskTx(ctx, tx, t.ID); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, outboxRowFor(env))
	})
}

// ---- recurrence rule service-invocation endpoints ----

// GetRule is invoked by the Recurring Service over the sidecar network.
func (s *CommandService) GetRule(ctx context.Context, id string) (*domain.RecurrenceRule, error) {
	return s.rules.GetByID(ctx, id)
}

// ---- recurrence rule owner-facing endpoints ----

// GetRuleForOwner scopes a rule lookup to its owning task's owner, since a
// rule carries no owner id of its own.
func (s *CommandService) GetRuleForOwner(ctx context.Context, ownerID, ruleID string) (*domain.RecurrenceRule, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	t, err := s.tasks.GetByID(ctx, rule.TaskID)
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return rule, nil
}

// AttachRecurrence creates a recurrence rule for a task that does not
// already have one.
func (s *CommandService) AttachRecurrence(ctx context.Context, ownerID, taskID string, req domain.CreateRecurrenceRequest) (*domain.RecurrenceRule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if t.RecurrenceRuleID != nil {
		return nil, domain.ErrRuleInactive
	}

	now := time.Now().UTC()
	rule := &domain.RecurrenceRule{
		ID:            uuid.New().String(),
		TaskID:        t.ID,
		Frequency:     req.Frequency,
		EndAfterCount: req.EndAfterCount,
		EndByDate:     req.EndByDate,
		BaseDueDate:   t.DueDate,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	t.RecurrenceRuleID = &rule.ID
	t.UpdatedAt = now

	err = s.tx.WithTx(ctx, func(tx repository.Tx) error {
		if err := s.rules.CreateTx(ctx, tx, rule); err != nil {
			return err
		}
		return s.tasks.UpdateTx(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// PatchRuleForOwner applies an owner-scoped partial update to a recurrence
// rule, the public counterpart to PatchRule.
func (s *CommandService) PatchRuleForOwner(ctx context.Context, ownerID, ruleID string, occurrences *int, baseDueDate *string, isActive *bool) (*domain.RecurrenceRule, error) {
	if _, err := s.GetRuleForOwner(ctx, ownerID, ruleID); err != nil {
		return nil, err
	}
	if err := s.PatchRule(ctx, ruleID, occurrences, baseDueDate, isActive); err != nil {
		return nil, err
	}
	return s.rules.GetByID(ctx, ruleID)
}

// DeleteRuleForOwner deactivates a recurrence rule; the task it was
// attached to is left untouched and future completions no longer
// regenerate it.
func (s *CommandService) DeleteRuleForOwner(ctx context.Context, ownerID, ruleID string) error {
	if _, err := s.GetRuleForOwner(ctx, ownerID, ruleID); err != nil {
		return err
	}
	inactive := false
	return s.PatchRule(ctx, ruleID, nil, nil, &inactive)
}

// PatchRule applies the Recurring Service's advance-the-rule update.
// Rule patches carry no event of their own, so no outbox row is written.
func (s *CommandService) PatchRule(ctx context.Context, id string, occurrences *int, baseDueDate *string, isActive *bool) error {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if occurrences != nil {
		rule.OccurrencesCount = *occurrences
	}
	if baseDueDate != nil {
		rule.BaseDueDate = baseDueDate
	}
	if isActive != nil {
		rule.IsActive = *isActive
	}
	rule.UpdatedAt = time.Now().UTC()
	return s.rules.Update(ctx, rule)
}

// CreateFromRecurrence creates a successor task on behalf of the Recurring
// Service, referencing the same recurrence rule id as the source task.
func (s *CommandService) CreateFromRecurrence(ctx context.Context, ownerID, title, description string, dueDate *string, priority domain.Priority, ruleID string) (*domain.Task, error) {
	req := domain.CreateTaskRequest{Title: title, Description: description, DueDate: dueDate, Priority: priority}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	priority = req.Priority // Validate defaults an empty priority to medium

	now := time.Now().UTC()
	t := &domain.Task{
		ID:               uuid.New().String(),
		OwnerID:          ownerID,
		Title:            title,
		Description:      description,
		Status:           domain.StatusPending,
		DueDate:          dueDate,
		RecurrenceRuleID: &ruleID,
		Priority:         priority,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	env, err := s.buildEnvelope(events.TypeTaskCreated, events.TaskCreatedData{
		TaskID:           t.ID,
		OwnerID:          ownerID,
		Title:            t.Title,
		Description:      t.Description,
		DueDate:          t.DueDate,
		RecurrenceRuleID: t.RecurrenceRuleID,
		Priority:         string(t.Priority),
	})
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx repository.Tx) error {
		if err := s.tasks.CreateTx(ctx, tx, t); err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, outboxRowFor(env))
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.TasksCreated.Inc()
	}
	return t, nil
}

// ---- helpers ----

func (s *CommandService) buildEnvelope(eventType string, data any) (events.Envelope, error) {
	return events.New(eventType, commandServiceSource, data)
}

func outboxRowFor(env events.Envelope) repository.OutboxRow {
	payload, _ := json.Marshal(env)
	return repository.OutboxRow{
		ID:        env.ID,
		EventType: env.Type,
		Payload:   payload,
	}
}
