package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/todoplatform/eventbackbone/internal/domain"
)

// MockAuditRepository is a hand-written, in-memory implementation of
// AuditRepository used in unit tests. No mock-generation library needed.
type MockAuditRepository struct {
	mu      sync.RWMutex
	entries []*domain.AuditEntry

	InsertErr error
	ListErr   error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Insert(_ context.Context, e *domain.AuditEntry) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *e
	m.entries = append(m.entries, &clone)
	return nil
}

func (m *MockAuditRepository) List(_ context.Context, f domain.AuditFilter) ([]*domain.AuditEntry, int, error) {
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.AuditEntry
	for _, e := range m.entries {
		if f.EventType != nil && e.EventType != *f.EventType {
			continue
		}
		if f.ActorID != nil && (e.ActorID == nil || *e.ActorID != *f.ActorID) {
			continue
		}
		if f.From != nil && e.EventTime.Before(*f.From) {
			continue
		}
		if f.To != nil && e.EventTime.After(*f.To) {
			continue
		}
		clone := *e
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].EventTime.After(matched[j].EventTime)
	})

	total := len(matched)
	pageSize := f.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 200
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset >= total {
		return nil, total, nil
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
