package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/todoplatform/eventbackbone/internal/domain"
)

type pgAuditRepository struct {
	pool *pgxpool.Pool
}

// NewPgAuditRepository returns an AuditRepository backed by PostgreSQL.
func NewPgAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &pgAuditRepository{pool: pool}
}

func (r *pgAuditRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_entries
			(id, event_id, event_type, source, actor_id, payload, event_time, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.EventID, e.EventType, e.Source, e.ActorID, e.Payload, e.EventTime, e.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *pgAuditRepository) List(ctx context.Context, f domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	where, args := buildAuditWhere(f)

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_entries" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	pageSize := f.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 200
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	args = append(args, pageSize, offset)
	limitPlaceholder := fmt.Sprintf("$%d", len(args)-1)
	offsetPlaceholder := fmt.Sprintf("$%d", len(args))

	query := fmt.Sprintf(`
		SELECT id, event_id, event_type, source, actor_id, payload, event_time, received_at
		FROM audit_entries%s
		ORDER BY event_time DESC
		LIMIT %s OFFSET %s`, where, limitPlaceholder, offsetPlaceholder)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func scanAuditEntry(row pgx.Row) (*domain.AuditEntry, error) {
	var e domain.AuditEntry
	err := row.Scan(&e.ID, &e.EventID, &e.EventType, &e.Source, &e.ActorID, &e.Payload, &e.EventTime, &e.ReceivedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// buildAuditWhere builds a parameterised WHERE clause from an AuditFilter.
func buildAuditWhere(f domain.AuditFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.EventType != nil {
		add("event_type = $%d", *f.EventType)
	}
	if f.ActorID != nil {
		add("actor_id = $%d", *f.ActorID)
	}
	if f.From != nil {
		add("event_time >= $%d", *f.From)
	}
	if f.To != nil {
		add("event_time <= $%d", *f.To)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
