package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxTxAdapter narrows a *pgx.Tx to the Tx interface so the outbox write
// and the triggering domain write can share exactly one transaction without
// repository packages depending on each other's concrete types.
type pgxTxAdapter struct {
	tx pgx.Tx
}

func (a pgxTxAdapter) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := a.tx.Exec(ctx, sql, args...)
	return err
}

// pgTransactor is the production Transactor.
type pgTransactor struct {
	pool *pgxpool.Pool
}

func NewPgTransactor(pool *pgxpool.Pool) Transactor {
	return pgTransactor{pool: pool}
}

func (t pgTransactor) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return WithTx(ctx, t.pool, fn)
}

// WithTx runs fn inside a single transaction, committing on success and
// rolling back on any error (including a panic recovered by the caller).
// Used by the Command Service to write a domain row and its outbox row
// atomically: either both land, or neither does.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx Tx) error) error {
	pgxTx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer pgxTx.Rollback(ctx) //nolint:errcheck

	if err := fn(pgxTxAdapter{tx: pgxTx}); err != nil {
		return err
	}
	return pgxTx.Commit(ctx)
}
