package invoke

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/todoplatform/eventbackbone/internal/domain"
)

// MockClient is a hand-written in-memory Client for tests.
type MockClient struct {
	mu sync.Mutex

	Rules map[string]*domain.RecurrenceRule
	Tasks []domain.Task

	GetRuleErr   error
	PatchRuleErr error
	CreateErr    error
}

func NewMockClient() *MockClient {
	return &MockClient{Rules: make(map[string]*domain.RecurrenceRule)}
}

func (m *MockClient) GetRule(ctx context.Context, ruleID string) (*domain.RecurrenceRule, error) {
	if m.GetRuleErr != nil {
		return nil, m.GetRuleErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.Rules[ruleID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copyRule := *rule
	return &copyRule, nil
}

func (m *MockClient) PatchRule(ctx context.Context, ruleID string, patch PatchRuleRequest) error {
	if m.PatchRuleErr != nil {
		return m.PatchRuleErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.Rules[ruleID]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.OccurrencesCount != nil {
		rule.OccurrencesCount = *patch.OccurrencesCount
	}
	if patch.BaseDueDate != nil {
		rule.BaseDueDate = patch.BaseDueDate
	}
	if patch.IsActive != nil {
		rule.IsActive = *patch.IsActive
	}
	return nil
}

func (m *MockClient) CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	task := domain.Task{
		ID:               uuid.NewString(),
		OwnerID:          req.OwnerID,
		Title:            req.Title,
		Description:      req.Description,
		Status:           domain.StatusPending,
		DueDate:          req.DueDate,
		Priority:         req.Priority,
		RecurrenceRuleID: req.RecurrenceRuleID,
	}
	m.Tasks = append(m.Tasks, task)
	return &task, nil
}
