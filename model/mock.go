package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/councilmesh/core"
)

// MockClient is a lightweight in-memory CompletionClient useful for tests
// and examples. Canned responses queue per role and are consumed in order;
// when a role's queue is empty the fallback function (or a generic default)
// produces the reply. Safe for concurrent use.
type MockClient struct {
	mu        sync.Mutex
	responses map[string][]string
	fallback  func(role string, messages []core.Message) string
	errs      map[string]error
	// ReportUsage makes the mock return estimated token usage like a real
	// provider would.
	ReportUsage bool
}

var _ core.CompletionClient = (*MockClient)(nil)

// NewMockClient constructs an empty mock client.
func NewMockClient() *MockClient {
	return &MockClient{
		responses: make(map[string][]string),
		errs:      make(map[string]error),
	}
}

// AddResponse queues a canned completion for a role.
func (m *MockClient) AddResponse(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[role] = append(m.responses[role], content)
}

// SetFallback registers the generator used when a role's queue is empty.
func (m *MockClient) SetFallback(fn func(role string, messages []core.Message) string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = fn
}

// FailRole makes every completion for the role return err.
func (m *MockClient) FailRole(role string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[role] = err
}

// Complete implements core.CompletionClient.
func (m *MockClient) Complete(ctx context.Context, role string, messages []core.Message, opts *core.CompletionOptions) (*core.CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if err, ok := m.errs[role]; ok {
		m.mu.Unlock()
		return nil, err
	}
	var content string
	if queue := m.responses[role]; len(queue) > 0 {
		content = queue[0]
		m.responses[role] = queue[1:]
	} else if m.fallback != nil {
		content = m.fallback(role, messages)
	} else {
		content = fmt.Sprintf("As %s, I have reviewed the discussion and state my position for the record.", role)
	}
	m.mu.Unlock()

	res := &core.CompletionResult{Content: content}
	if m.ReportUsage {
		res.Usage = &core.Usage{
			PromptTokens:     core.EstimateMessageTokens(messages),
			CompletionTokens: core.EstimateTokens(content),
			TotalTokens:      core.EstimateMessageTokens(messages) + core.EstimateTokens(content),
		}
	}
	return res, nil
}
