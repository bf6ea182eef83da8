package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/prodmap/prodmap/internal/config"
)

const anthropicMaxTokens = 4096

// Anthropic wraps the official Anthropic Go SDK. Chat only: the
// vendor has no embedding capability, so Embed always returns
// ErrNotSupported and the resolver routes embedding requests to a
// fallback vendor.
type Anthropic struct {
	client    anthropic.Client
	chatModel string
}

// NewAnthropic creates an Anthropic adapter.
func NewAnthropic(apiKey, chatModel string) *Anthropic {
	return &Anthropic{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		chatModel: chatModel,
	}
}

// Name returns the vendor identifier.
func (a *Anthropic) Name() string { return config.VendorAnthropic }

// Chat calls the messages endpoint. System messages are lifted into
// the dedicated system field as the API requires.
func (a *Anthropic) Chat(ctx context.Context, messages []Message, model string) (*ChatResult, error) {
	if model == "" {
		model = a.chatModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic chat: %v", ErrUnavailable, err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &ChatResult{
		Content:      content,
		TokensInput:  int(resp.Usage.InputTokens),
		TokensOutput: int(resp.Usage.OutputTokens),
		Model:        string(resp.Model),
	}, nil
}

// Embed is not supported by this vendor.
func (a *Anthropic) Embed(_ context.Context, _ string, _ string) (*EmbedResult, error) {
	return nil, fmt.Errorf("%w: anthropic has no embedding capability", ErrNotSupported)
}

// ListModels returns a static known list; the vendor has no models
// endpoint.
func (a *Anthropic) ListModels(_ context.Context) ([]string, error) {
	return []string{
		"claude-3-5-sonnet-20241022",
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
	}, nil
}
