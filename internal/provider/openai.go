package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/prodmap/prodmap/internal/config"
)

// OpenAI wraps the official OpenAI Go SDK.
type OpenAI struct {
	client     openai.Client
	chatModel  string
	embedModel string
}

// NewOpenAI creates an OpenAI adapter.
func NewOpenAI(apiKey, chatModel, embedModel string) *OpenAI {
	return &OpenAI{
		client:     openai.NewClient(option.WithAPIKey(apiKey)),
		chatModel:  chatModel,
		embedModel: embedModel,
	}
}

// Name returns the vendor identifier.
func (o *OpenAI) Name() string { return config.VendorOpenAI }

// Chat calls the chat completions endpoint.
func (o *OpenAI) Chat(ctx context.Context, messages []Message, model string) (*ChatResult, error) {
	if model == "" {
		model = o.chatModel
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai chat: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai chat: empty choices", ErrUnavailable)
	}

	return &ChatResult{
		Content:      resp.Choices[0].Message.Content,
		TokensInput:  int(resp.Usage.PromptTokens),
		TokensOutput: int(resp.Usage.CompletionTokens),
		Model:        resp.Model,
	}, nil
}

// Embed calls the embeddings endpoint.
func (o *OpenAI) Embed(ctx context.Context, text string, model string) (*EmbedResult, error) {
	if model == "" {
		model = o.embedModel
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", ErrUnavailable, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: openai embeddings: empty response", ErrUnavailable)
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}

	return &EmbedResult{
		Embedding: vec,
		Tokens:    int(resp.Usage.PromptTokens),
		Model:     resp.Model,
	}, nil
}

// ListModels calls the models endpoint.
func (o *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	page, err := o.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: openai list models: %v", ErrUnavailable, err)
	}

	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
