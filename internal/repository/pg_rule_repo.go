package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/todoplatform/eventbackbone/internal/domain"
)

type pgRuleRepository struct {
	pool *pgxpool.Pool
}

func NewPgRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &pgRuleRepository{pool: pool}
}

func (r *pgRuleRepository) CreateTx(ctx context.Context, tx Tx, rule *domain.RecurrenceRule) error {
	return tx.Exec(ctx, `
		INSERT INTO recurrence_rules
			(id, task_id, frequency, end_after_count, end_by_date,
			 occurrences_generated, base_due_date, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rule.ID, rule.TaskID, rule.Frequency, rule.EndAfterCount, rule.EndByDate,
		rule.OccurrencesCount, rule.BaseDueDate, rule.IsActive, rule.CreatedAt, rule.UpdatedAt,
	)
}

func (r *pgRuleRepository) GetByID(ctx context.Context, id string) (*domain.RecurrenceRule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, task_id, frequency, end_after_count, end_by_date,
		       occurrences_generated, base_due_date, is_active, created_at, updated_at
		FROM recurrence_rules WHERE id = $1`, id)

	rule, err := scanRule(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rule, err
}

func (r *pgRuleRepository) Update(ctx context.Context, rule *domain.RecurrenceRule) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE recurrence_rules SET
			occurrences_generated = $1, base_due_date = $2, is_active = $3, updated_at = $4
		WHERE id = $5`,
		rule.OccurrencesCount, rule.BaseDueDate, rule.IsActive, rule.UpdatedAt, rule.ID,
	)
	return err
}

func scanRule(row pgx.Row) (*domain.RecurrenceRule, error) {
	var rule domain.RecurrenceRule
	err := row.Scan(
		&rule.ID, &rule.TaskID, &rule.Frequency, &rule.EndAfterCount, &rule.EndByDate,
		&rule.OccurrencesCount, &rule.BaseDueDate, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
