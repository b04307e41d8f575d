// Package anthropic adapts the Anthropic Messages API to the engine's
// completion capability.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/councilmesh/core"
)

// Options configures the Anthropic adapter (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Client wraps the Anthropic Messages API behind core.CompletionClient.
// Council messages are rendered into a two-party chat: the speaking role's
// own prior messages become assistant turns, everyone else's become
// speaker-prefixed user turns, and system-type messages become the system
// prompt.
type Client struct {
	client *anthropic.Client
	opts   Options
}

var _ core.CompletionClient = (*Client)(nil)

// NewClient creates a new Anthropic adapter using the official SDK client.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Client{client: &client, opts: opts}
}

// NewClientFromSDK creates an adapter from an existing SDK client.
func NewClientFromSDK(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Complete implements core.CompletionClient.
func (c *Client) Complete(ctx context.Context, role string, messages []core.Message, opts *core.CompletionOptions) (*core.CompletionResult, error) {
	temperature := c.opts.Temperature
	maxTokens := c.opts.MaxTokens
	if opts != nil {
		if opts.Temperature != nil {
			temperature = *opts.Temperature
		}
		if opts.MaxTokens != nil {
			maxTokens = int64(*opts.MaxTokens)
		}
	}

	params := anthropic.MessageNewParams{
		Model:       c.opts.Model,
		Messages:    buildMessages(role, messages),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if system := extractSystem(messages); len(system) > 0 {
		params.System = system
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return &core.CompletionResult{
		Content: text.String(),
		Usage: &core.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// buildMessages renders the council transcript as alternating chat turns,
// merging consecutive same-party messages since the Messages API expects
// strict user/assistant alternation.
func buildMessages(role string, messages []core.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	var pending []string
	pendingAssistant := false

	flush := func() {
		if len(pending) == 0 {
			return
		}
		text := strings.Join(pending, "\n\n")
		if pendingAssistant {
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		} else {
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
		pending = nil
	}

	for _, msg := range messages {
		if msg.Type == core.MessageSystem {
			continue
		}
		assistant := strings.EqualFold(msg.Role, role)
		if assistant != pendingAssistant {
			flush()
			pendingAssistant = assistant
		}
		if assistant {
			pending = append(pending, msg.Content)
		} else {
			pending = append(pending, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
		}
	}
	flush()

	// the API requires at least one user message
	if len(out) == 0 {
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock("Begin.")))
	}
	return out
}

func extractSystem(messages []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, msg := range messages {
		if msg.Type == core.MessageSystem && msg.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: msg.Content})
		}
	}
	return blocks
}
