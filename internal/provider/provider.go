// Package provider defines the uniform AI vendor contract and its
// adapters.
//
// Every vendor implements the same Provider interface for chat
// completion, text embedding and model listing. Adapters are thin
// transport bindings with no local state; the contract is the
// load-bearing part. Vendor selection and credential resolution live
// in Resolver.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable indicates the vendor endpoint is unreachable or
	// returned a non-success status.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrNotSupported indicates the vendor lacks the requested
	// capability (e.g. embeddings on a chat-only vendor).
	ErrNotSupported = errors.New("capability not supported")

	// ErrConfiguration indicates required credentials or endpoints for
	// the resolved vendor are missing.
	ErrConfiguration = errors.New("provider configuration error")
)

// Role tags a chat message.
type Role string

// Chat message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    Role
	Content string
}

// ChatResult is the outcome of a chat completion call.
type ChatResult struct {
	Content      string
	TokensInput  int
	TokensOutput int
	Model        string
}

// EmbedResult is the outcome of an embedding call.
type EmbedResult struct {
	Embedding []float32
	Tokens    int
	Model     string
}

// Provider is the uniform vendor contract. All methods are pure
// network I/O; implementations hold no mutable state and are safe for
// concurrent use.
type Provider interface {
	// Name returns the vendor identifier (config.Vendor* constants).
	Name() string

	// Chat generates a completion for the ordered message list.
	// model overrides the default chat model when non-empty.
	Chat(ctx context.Context, messages []Message, model string) (*ChatResult, error)

	// Embed generates an embedding vector for text. Returns
	// ErrNotSupported for vendors without embedding capability.
	Embed(ctx context.Context, text string, model string) (*EmbedResult, error)

	// ListModels returns available model identifiers. Best-effort:
	// vendors without a models endpoint return a static known list.
	ListModels(ctx context.Context) ([]string, error)
}
