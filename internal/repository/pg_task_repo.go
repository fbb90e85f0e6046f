package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/todoplatform/eventbackbone/internal/domain"
)

type pgTaskRepository struct {
	pool *pgxpool.Pool
}

// NewPgTaskRepository returns a TaskRepository backed by PostgreSQL.
func NewPgTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &pgTaskRepository{pool: pool}
}

func (r *pgTaskRepository) CreateTx(ctx context.Context, tx Tx, t *domain.Task) error {
	return tx.Exec(ctx, `
		INSERT INTO tasks
			(id, owner_id, title, description, status, due_date, due_time,
			 reminder_time, recurrence_rule_id, priority, tags, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		t.ID, t.OwnerID, t.Title, t.Description, t.Status, t.DueDate, t.DueTime,
		t.ReminderTime, t.RecurrenceRuleID, t.Priority, t.Tags, t.CreatedAt, t.UpdatedAt,
	)
}

func (r *pgTaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, description, status, due_date, due_time,
		       reminder_time, recurrence_rule_id, priority, tags, created_at, updated_at
		FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *pgTaskRepository) List(ctx context.Context, ownerID string, f domain.ListFilter) ([]*domain.Task, domain.TaskCounts, error) {
	var counts domain.TaskCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status <> 'deleted'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'completed')
		FROM tasks WHERE owner_id = $1`, ownerID).
		Scan(&counts.Total, &counts.Pending, &counts.Completed)
	if err != nil {
		return nil, counts, fmt.Errorf("count tasks: %w", err)
	}

	query := `
		SELECT id, owner_id, title, description, status, due_date, due_time,
		       reminder_time, recurrence_rule_id, priority, tags, created_at, updated_at
		FROM tasks WHERE owner_id = $1`
	args := []any{ownerID}
	if f.Status != "" {
		query += " AND status = $2"
		args = append(args, f.Status)
	} else {
		query += " AND status <> 'deleted'"
	}
	query += " ORDER BY updated_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, counts, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, counts, err
		}
		tasks = append(tasks, t)
	}
	return tasks, counts, rows.Err()
}

func (r *pgTaskRepository) UpdateTx(ctx context.Context, tx Tx, t *domain.Task) error {
	return tx.Exec(ctx, `
		UPDATE tasks SET
			title = $1, description = $2, status = $3, due_date = $4, due_time = $5,
			reminder_time = $6, recurrence_rule_id = $7, priority = $8, tags = $9, updated_at = $10
		WHERE id = $11`,
		t.Title, t.Description, t.Status, t.DueDate, t.DueTime,
		t.ReminderTime, t.RecurrenceRuleID, t.Priority, t.Tags, t.UpdatedAt, t.ID,
	)
}

func (r *pgTaskRepository) DeleteTx(ctx context.Context, tx Tx, id string) error {
	return tx.Exec(ctx, `UPDATE tasks SET status = 'deleted', updated_at = NOW() WHERE id = $1`, id)
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Status, &t.DueDate, &t.DueTime,
		&t.ReminderTime, &t.RecurrenceRuleID, &t.Priority, &t.Tags, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
