package repository

import (
	"context"
	"sync"

	"github.com/todoplatform/eventbackbone/internal/domain"
)

// mockTx is a no-op Tx used by the mock repositories and MockTransactor.
// Statements passed to Exec are recorded but never interpreted, since the
// mocks hold state directly in Go maps rather than SQL tables.
type mockTx struct {
	statements *[]string
}

func (t mockTx) Exec(_ context.Context, sql string, _ ...any) error {
	if t.statements != nil {
		*t.statements = append(*t.statements, sql)
	}
	return nil
}

// MockTransactor runs fn against a mockTx that simply records statements;
// it never rolls back, since the mock repositories apply mutations directly.
type MockTransactor struct {
	mu         sync.Mutex
	statements []string
	WithTxErr  error
}

func NewMockTransactor() *MockTransactor {
	return &MockTransactor{}
}

func (t *MockTransactor) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if t.WithTxErr != nil {
		return t.WithTxErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(mockTx{statements: &t.statements})
}

// MockTaskRepository is a hand-written, in-memory implementation of
// TaskRepository used in unit tests. No mock-generation library needed.
type MockTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task

	CreateErr error
	GetByIDErr error
	ListErr    error
	UpdateErr  error
	DeleteErr  error
}

func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{tasks: make(map[string]*domain.Task)}
}

func (m *MockTaskRepository) CreateTx(_ context.Context, _ Tx, t *domain.Task) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *t
	m.tasks[t.ID] = &clone
	return nil
}

func (m *MockTaskRepository) GetByID(_ context.Context, id string) (*domain.Task, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (m *MockTaskRepository) List(_ context.Context, ownerID string, f domain.ListFilter) ([]*domain.Task, domain.TaskCounts, error) {
	if m.ListErr != nil {
		return nil, domain.TaskCounts{}, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var counts domain.TaskCounts
	var out []*domain.Task
	for _, t := range m.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if t.Status != domain.StatusDeleted {
			counts.Total++
		}
		switch t.Status {
		case domain.StatusPending:
			counts.Pending++
		case domain.StatusCompleted:
			counts.Completed++
		}
		if f.Status != "" {
			if t.Status != f.Status {
				continue
			}
		} else if t.Status == domain.StatusDeleted {
			continue
		}
		clone := *t
		out = append(out, &clone)
	}
	return out, counts, nil
}

func (m *MockTaskRepository) UpdateTx(_ context.Context, _ Tx, t *domain.Task) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *t
	m.tasks[t.ID] = &clone
	return nil
}

func (m *MockTaskRepository) DeleteTx(_ context.Context, _ Tx, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = domain.StatusDeleted
	return nil
}

// MockRuleRepository is a hand-written, in-memory implementation of
// RuleRepository used in unit tests.
type MockRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]*domain.RecurrenceRule

	CreateErr  error
	GetByIDErr error
	UpdateErr  error
}

func NewMockRuleRepository() *MockRuleRepository {
	return &MockRuleRepository{rules: make(map[string]*domain.RecurrenceRule)}
}

func (m *MockRuleRepository) CreateTx(_ context.Context, _ Tx, r *domain.RecurrenceRule) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *r
	m.rules[r.ID] = &clone
	return nil
}

func (m *MockRuleRepository) GetByID(_ context.Context, id string) (*domain.RecurrenceRule, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *MockRuleRepository) Update(_ context.Context, r *domain.RecurrenceRule) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[r.ID]; !ok {
		return domain.ErrNotFound
	}
	clone := *r
	m.rules[r.ID] = &clone
	return nil
}

// MockReminderRepository is a hand-written, in-memory implementation of
// ReminderRepository used in unit tests.
type MockReminderRepository struct {
	mu        sync.RWMutex
	reminders map[string]*domain.Reminder

	CreateErr       error
	GetByIDErr      error
	ListByTaskErr   error
	UpdateStatusErr error
}

func NewMockReminderRepository() *MockReminderRepository {
	return &MockReminderRepository{reminders: make(map[string]*domain.Reminder)}
}

func (m *MockReminderRepository) CreateTx(_ context.Context, _ Tx, r *domain.Reminder) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *r
	m.reminders[r.ID] = &clone
	return nil
}

func (m *MockReminderRepository) GetByID(_ context.Context, id string) (*domain.Reminder, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reminders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *MockReminderRepository) ListByTask(_ context.Context, taskID string) ([]*domain.Reminder, error) {
	if m.ListByTaskErr != nil {
		return nil, m.ListByTaskErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Reminder
	for _, r := range m.reminders {
		if r.TaskID == taskID {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *MockReminderRepository) UpdateStatus(_ context.Context, id string, status domain.ReminderStatus) error {
	if m.UpdateStatusErr != nil {
		return m.UpdateStatusErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *MockReminderRepository) FailAllByTaskTx(_ context.Context, _ Tx, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reminders {
		if r.TaskID == taskID && r.Status == domain.ReminderPending {
			r.Status = domain.ReminderFailed
		}
	}
	return nil
}

// MockOutboxRepository is a hand-written, in-memory implementation of
// OutboxRepository used in unit tests.
type MockOutboxRepository struct {
	mu   sync.RWMutex
	rows map[string]OutboxRow

	InsertErr           error
	FindUndispatchedErr error
	MarkDispatchedErr   error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{rows: make(map[string]OutboxRow)}
}

func (m *MockOutboxRepository) Insert(_ context.Context, _ Tx, row OutboxRow) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.ID] = row
	return nil
}

func (m *MockOutboxRepository) FindUndispatched(_ context.Context, limit int) ([]OutboxRow, error) {
	if m.FindUndispatchedErr != nil {
		return nil, m.FindUndispatchedErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []OutboxRow
	for _, row := range m.rows {
		if row.Dispatched {
			continue
		}
		out = append(out, row)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkDispatched(_ context.Context, id string) error {
	if m.MarkDispatchedErr != nil {
		return m.MarkDispatchedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	row.Dispatched = true
	m.rows[id] = row
	return nil
}
