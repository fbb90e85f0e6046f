package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/todoplatform/eventbackbone/internal/domain"
)

type pgReminderRepository struct {
	pool *pgxpool.Pool
}

func NewPgReminderRepository(pool *pgxpool.Pool) ReminderRepository {
	return &pgReminderRepository{pool: pool}
}

func (r *pgReminderRepository) CreateTx(ctx context.Context, tx Tx, rem *domain.Reminder) error {
	return tx.Exec(ctx, `
		INSERT INTO reminders (id, task_id, owner_id, trigger_time, job_name, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rem.ID, rem.TaskID, rem.OwnerID, rem.TriggerTime, rem.JobName, rem.Status, rem.CreatedAt, rem.UpdatedAt,
	)
}

func (r *pgReminderRepository) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, task_id, owner_id, trigger_time, job_name, status, delivered_at, created_at, updated_at
		FROM reminders WHERE id = $1`, id)

	rem, err := scanReminder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rem, err
}

func (r *pgReminderRepository) ListByTask(ctx context.Context, taskID string) ([]*domain.Reminder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, owner_id, trigger_time, job_name, status, delivered_at, created_at, updated_at
		FROM reminders WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func (r *pgReminderRepository) UpdateStatus(ctx context.Context, id string, status domain.ReminderStatus) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE reminders SET status = $1,
			delivered_at = CASE WHEN $1 = 'delivered' THEN NOW() ELSE delivered_at END,
			updated_at = NOW()
		WHERE id = $2`, status, id)
	return err
}

// FailAllByTaskTx marks every still-pending reminder owned by taskID as
// failed, in the same transaction as the owning task's soft delete. Status
// is one-way from pending, so delivered/failed reminders are left as-is.
func (r *pgReminderRepository) FailAllByTaskTx(ctx context.Context, tx Tx, taskID string) error {
	return tx.Exec(ctx, `
		UPDATE reminders SET status = 'failed', updated_at = NOW()
		WHERE task_id = $1 AND status = 'pending'`, taskID)
}

func scanReminder(row pgx.Row) (*domain.Reminder, error) {
	var rem domain.Reminder
	err := row.Scan(
		&rem.ID, &rem.TaskID, &rem.OwnerID, &rem.TriggerTime, &rem.JobName,
		&rem.Status, &rem.DeliveredAt, &rem.CreatedAt, &rem.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rem, nil
}
