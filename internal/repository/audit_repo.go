package repository

import (
	"context"

	"github.com/todoplatform/eventbackbone/internal/domain"
)

// AuditRepository is the Audit Service's sole interface to the audit log.
// Insert is the only mutation: audit entries are append-only. Deduplication
// of already-seen event ids is handled upstream via the shared KV store's
// idempotency keys, not here.
type AuditRepository interface {
	Insert(ctx context.Context, e *domain.AuditEntry) error
	List(ctx context.Context, f domain.AuditFilter) ([]*domain.AuditEntry, int, error)
}
