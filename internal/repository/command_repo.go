package repository

import (
	"context"

	"github.com/todoplatform/eventbackbone/internal/domain"
)

// TaskRepository is the Command Service's sole interface to task storage.
// The Tx-suffixed methods run inside a caller-supplied transaction so the
// domain write and its outbox row commit atomically; the plain methods are
// for read paths and internal-endpoint reads where no outbox row is written.
type TaskRepository interface {
	CreateTx(ctx context.Context, tx Tx, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, ownerID string, f domain.ListFilter) ([]*domain.Task, domain.TaskCounts, error)
	UpdateTx(ctx context.Context, tx Tx, t *domain.Task) error
	DeleteTx(ctx context.Context, tx Tx, id string) error
}

// RuleRepository manages recurrence rules. Update has no Tx variant: the
// Recurring Service's rule patches (occurrences_generated, base_due_date,
// is_active) carry no event of their own, so there is nothing to write
// atomically alongside them.
type RuleRepository interface {
	CreateTx(ctx context.Context, tx Tx, r *domain.RecurrenceRule) error
	GetByID(ctx context.Context, id string) (*domain.RecurrenceRule, error)
	Update(ctx context.Context, r *domain.RecurrenceRule) error
}

// ReminderRepository manages scheduled reminders.
type ReminderRepository interface {
	CreateTx(ctx context.Context, tx Tx, r *domain.Reminder) error
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
	ListByTask(ctx context.Context, taskID string) ([]*domain.Reminder, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReminderStatus) error
	FailAllByTaskTx(ctx context.Context, tx Tx, taskID string) error
}

// Transactor opens a transaction for the Command Service's repositories to
// share, so a mutation's domain row and its outbox row commit together.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// OutboxRow is one durable, not-yet-dispatched envelope written in the same
// transaction as the domain mutation that produced it.
type OutboxRow struct {
	ID         string
	EventType  string
	Payload    []byte
	Dispatched bool
}

// OutboxRepository is written to transactionally by command handlers and
// polled by the background dispatcher worker.
type OutboxRepository interface {
	Insert(ctx context.Context, tx Tx, row OutboxRow) error
	FindUndispatched(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkDispatched(ctx context.Context, id string) error
}

// Tx is the minimal transaction handle command handlers pass to
// OutboxRepository.Insert so the domain write and the outbox write commit
// atomically.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) error
}
