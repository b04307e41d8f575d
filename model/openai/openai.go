// Package openai adapts the OpenAI Chat Completions API to the engine's
// completion capability.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/councilmesh/core"
)

// Options configure the OpenAI adapter. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Client wraps the OpenAI Chat Completions API behind core.CompletionClient.
type Client struct {
	client *openai.Client
	opts   Options
}

var _ core.CompletionClient = (*Client)(nil)

// NewClient creates a new OpenAI adapter using the official SDK client.
func NewClient(optFns ...func(o *Options)) *Client {
	client := openai.NewClient()
	return NewClientFromSDK(&client, optFns...)
}

// NewClientFromSDK creates an adapter from an existing SDK client.
func NewClientFromSDK(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Complete implements core.CompletionClient. The speaking role's own prior
// messages become assistant turns, everyone else's become speaker-prefixed
// user turns, system-type messages become system messages.
func (c *Client) Complete(ctx context.Context, role string, messages []core.Message, opts *core.CompletionOptions) (*core.CompletionResult, error) {
	temperature := c.opts.Temperature
	maxTokens := c.opts.MaxCompletionTokens
	if opts != nil {
		if opts.Temperature != nil {
			temperature = *opts.Temperature
		}
		if opts.MaxTokens != nil {
			maxTokens = int64(*opts.MaxTokens)
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(role, messages),
		Model:               c.opts.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api error: no choices returned")
	}

	return &core.CompletionResult{
		Content: resp.Choices[0].Message.Content,
		Usage: &core.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func buildMessages(role string, messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch {
		case msg.Type == core.MessageSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case strings.EqualFold(msg.Role, role):
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(fmt.Sprintf("%s: %s", msg.Role, msg.Content)))
		}
	}
	return out
}
