package core

import "context"

// Usage captures token accounting reported by a completion provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionOptions carries optional per-request generation parameters.
// Nil fields mean provider defaults.
type CompletionOptions struct {
	Temperature *float64
	MaxTokens   *int
}

// CompletionResult is the resolved output of one generation call. Usage is
// nil when the provider does not report token accounting; callers then fall
// back to the local character-length estimate.
type CompletionResult struct {
	Content string `json:"content"`
	Usage   *Usage `json:"usage,omitempty"`
}

// CompletionClient is the generation capability injected into the engine.
// Implementations resolve provider selection, credentials, retries and
// timeouts internally; a timeout surfaces as an ordinary error.
type CompletionClient interface {
	Complete(ctx context.Context, role string, messages []Message, opts *CompletionOptions) (*CompletionResult, error)
}

// PersonaStore resolves the system prompt configured for a role.
type PersonaStore interface {
	SystemPrompt(role string) (string, error)
}

// RecordStore persists and lists durable records by type. Records are
// append-only; there is no delete.
type RecordStore interface {
	Write(rec Record) error
	List(typ RecordType) ([]Record, error)
}

// Notifier delivers a stage's appended messages to live observers.
// Delivery is best-effort and fire-and-forget; implementations must never
// block stage progress and the engine ignores their failures.
type Notifier interface {
	Notify(meetingID string, messages []Message)
}

// NoOpNotifier discards all notifications.
type NoOpNotifier struct{}

// Notify implements Notifier.
func (NoOpNotifier) Notify(string, []Message) {}
