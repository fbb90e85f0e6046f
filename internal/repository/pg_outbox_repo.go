package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pgOutboxRepository struct {
	pool *pgxpool.Pool
}

// NewPgOutboxRepository returns an OutboxRepository backed by PostgreSQL.
// The durable outbox (Insert always runs inside the caller's transaction)
// is what makes publish-after-commit safe across a crash between the
// domain write and the bus publish.
func NewPgOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &pgOutboxRepository{pool: pool}
}

func (r *pgOutboxRepository) Insert(ctx context.Context, tx Tx, row OutboxRow) error {
	return tx.Exec(ctx, `
		INSERT INTO event_outbox (id, event_type, payload, dispatched)
		VALUES ($1,$2,$3,false)`, row.ID, row.EventType, row.Payload)
}

func (r *pgOutboxRepository) FindUndispatched(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, payload, dispatched
		FROM event_outbox
		WHERE dispatched = false
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("find undispatched: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.EventType, &row.Payload, &row.Dispatched); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *pgOutboxRepository) MarkDispatched(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE event_outbox SET dispatched = true WHERE id = $1`, id)
	return err
}
