// Package invoke wraps the service-to-service HTTP calls the
// Recurring-Task Service makes against the Command Service's internal,
// sidecar-network-only endpoints.
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/todoplatform/eventbackbone/internal/domain"
)

// PatchRuleRequest carries only the fields the Recurring Service updates.
type PatchRuleRequest struct {
	OccurrencesCount *int    `json:"occurrences_generated,omitempty"`
	BaseDueDate      *string `json:"base_due_date,omitempty"`
	IsActive         *bool   `json:"is_active,omitempty"`
}

// CreateTaskRequest is the payload for POST /internal/tasks. Unlike the
// public create endpoint, the owner id travels in the body: this path has
// no authenticated subject, only a trusted sidecar-network caller.
type CreateTaskRequest struct {
	OwnerID          string          `json:"owner_id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	DueDate          *string         `json:"due_date,omitempty"`
	Priority         domain.Priority `json:"priority"`
	RecurrenceRuleID *string         `json:"recurrence_rule_id,omitempty"`
}

// Client is what the Recurring Service depends on; CommandClient is the
// production HTTP implementation, and tests substitute MockClient.
type Client interface {
	GetRule(ctx context.Context, ruleID string) (*domain.RecurrenceRule, error)
	PatchRule(ctx context.Context, ruleID string, patch PatchRuleRequest) error
	CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error)
}

// CommandClient talks to the Command Service over the trusted sidecar
// network, following the same base-URL-plus-timeout *http.Client shape as
// every other outbound call in this codebase.
type CommandClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCommandClient(baseURL string, timeout time.Duration) *CommandClient {
	return &CommandClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *CommandClient) GetRule(ctx context.Context, ruleID string) (*domain.RecurrenceRule, error) {
	url := fmt.Sprintf("%s/internal/recurrence-rules/%s", c.baseURL, ruleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode >= 500:
		return nil, domain.ErrUpstreamTransient
	case resp.StatusCode != http.StatusOK:
		return nil, domain.ErrUpstreamPermanent
	}

	var rule domain.RecurrenceRule
	if err := json.NewDecoder(resp.Body).Decode(&rule); err != nil {
		return nil, fmt.Errorf("decode rule: %w", err)
	}
	return &rule, nil
}

func (c *CommandClient) PatchRule(ctx context.Context, ruleID string, patch PatchRuleRequest) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/internal/recurrence-rules/%s", c.baseURL, ruleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err)
	}
	defer resp.Body.Close()
	return classifyStatus(resp.StatusCode)
}

func (c *CommandClient) CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/internal/tasks", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamTransient, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var task domain.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return domain.ErrNotFound
	case status >= 500:
		return domain.ErrUpstreamTransient
	case status < 200 || status >= 300:
		return domain.ErrUpstreamPermanent
	}
	return nil
}
