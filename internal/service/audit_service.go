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
	"github.com/todoplatform/eventbackbone/internal/kvstore"
	"github.com/todoplatform/eventbackbone/internal/metrics"
	"github.com/todoplatform/eventbackbone/internal/repository"
)

const auditServiceName = "audit-service"

// AuditService subscribes to every topic and idempotently records each
// envelope as an immutable row. It never updates or deletes a row it has
// written.
type AuditService struct {
	repo    repository.AuditRepository
	kv      kvstore.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAuditService wires the service. m may be nil, in which case counters
// are simply not recorded.
func NewAuditService(repo repository.AuditRepository, kv kvstore.Store, m *metrics.Metrics, logger *zap.Logger) *AuditService {
	return &AuditService{repo: repo, kv: kv, metrics: m, logger: logger}
}

// Record handles one envelope from any of the three topics.
func (s *AuditService) Record(ctx context.Context, env events.Envelope) error {
	if kvstore.IsDuplicate(ctx, s.kv, auditServiceName, env.ID) {
		if s.metrics != nil {
			s.metrics.IdempotentDrops.WithLabelValues(auditServiceName).Inc()
		}
		return nil
	}

	entry := &domain.AuditEntry{
		ID:         uuid.New().String(),
		EventID:    env.ID,
		EventType:  env.Type,
		Source:     env.Source,
		ActorID:    actorIDOf(env.Data),
		Payload:    env.Data,
		EventTime:  env.Time,
		ReceivedAt: time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	if err := kvstore.MarkProcessed(ctx, s.kv, auditServiceName, env.ID); err != nil {
		s.logger.Warn("mark processed failed", zap.String("event_id", env.ID), zap.Error(err))
	}
	return nil
}

// Query returns a page of audit entries matching filter.
func (s *AuditService) Query(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	return s.repo.List(ctx, filter)
}

func actorIDOf(data json.RawMessage) *string {
	var probe struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.OwnerID == "" {
		return nil
	}
	id := probe.OwnerID
	return &id
}
