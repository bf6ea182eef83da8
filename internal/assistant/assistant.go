// Package assistant exposes the AI features: per-space analysis and
// chat, plus organization-wide recommendation and analysis.
//
// Analytical operations are best effort. A model that returns
// malformed JSON, or a vendor that is down, degrades to an empty
// result; it never fails the caller with a parse error.
package assistant

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/prodmap/prodmap/internal/conversation"
	"github.com/prodmap/prodmap/internal/embedding"
	"github.com/prodmap/prodmap/internal/feature"
	"github.com/prodmap/prodmap/internal/provider"
	"github.com/prodmap/prodmap/internal/space"
	"github.com/prodmap/prodmap/internal/usage"
)

// ChatResolver yields a chat-capable provider for an identity.
type ChatResolver interface {
	Get(userID, orgID, preferred string) (*provider.Resolved, error)
}

// ContextBuilder assembles retrieval context and embeds query text.
type ContextBuilder interface {
	ContextForSpace(ctx context.Context, userID, spaceID string) (string, error)
	GenerateEmbedding(ctx context.Context, userID, orgID, text string) ([]float32, string, error)
}

// SpaceReader provides the space lookups the services need.
type SpaceReader interface {
	Get(ctx context.Context, id string) (*space.Space, error)
	ListByIDs(ctx context.Context, ids []string) ([]space.Space, error)
}

// ItemReader lists a space's feature requests.
type ItemReader interface {
	ListBySpace(ctx context.Context, spaceID, tag string) ([]feature.Item, error)
}

// DescriptionSearcher ranks one tenant's space-description vectors.
type DescriptionSearcher interface {
	SearchDescriptions(ctx context.Context, vector []float32, orgID string, limit int) ([]embedding.Match, error)
}

// ConversationStore persists conversations and messages.
type ConversationStore interface {
	CreateScoped(ctx context.Context, orgID, userID, spaceID, title string) (*conversation.Conversation, error)
	CreateGlobal(ctx context.Context, orgID, userID, title string) (*conversation.Conversation, error)
	Get(ctx context.Context, id string) (*conversation.Conversation, error)
	Messages(ctx context.Context, conversationID string) ([]conversation.Message, error)
	Append(ctx context.Context, conversationID, role, content string) (*conversation.Message, error)
}

// UsageLogger records metered AI calls.
type UsageLogger interface {
	Log(ctx context.Context, rec usage.Record)
}

// Reply is one assistant chat turn.
type Reply struct {
	ConversationID string
	Content        string
	Model          string
}

// Thread is a conversation with its full history.
type Thread struct {
	Conversation conversation.Conversation
	Messages     []conversation.Message
}

// parseResponse decodes a model's JSON reply into T. Model output
// often arrives wrapped in a markdown code fence, so fences are
// stripped first. Any decode failure yields the zero value and false
// after logging enough to diagnose the prompt/model pairing; callers
// treat that as an empty result.
func parseResponse[T any](logger *slog.Logger, task, raw string) (T, bool) {
	var out T
	cleaned := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		logger.Warn("failed to parse model response",
			"task", task, "error", err, "response", truncate(raw, 200))
		var zero T
		return zero, false
	}
	return out, true
}

// stripCodeFence unwraps ```json ... ``` style fences, returning the
// input unchanged when no fence is present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// chatOnce resolves a provider, sends one prompt with a bounded
// deadline and records the usage. conversationID may be empty for
// one-shot analytical calls; a non-positive timeout disables the
// deadline.
func chatOnce(ctx context.Context, resolver ChatResolver, ledger UsageLogger, timeout time.Duration,
	userID, orgID, conversationID string, msgs []provider.Message) (*provider.ChatResult, error) {
	resolved, err := resolver.Get(userID, orgID, "")
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := resolved.Provider.Chat(ctx, msgs, "")
	if err != nil {
		return nil, err
	}

	ledger.Log(ctx, usage.Record{
		UserID:           userID,
		OrganizationID:   orgID,
		Vendor:           resolved.Vendor,
		Model:            res.Model,
		Capability:       usage.CapabilityChat,
		CredentialSource: string(resolved.Source),
		ConversationID:   conversationID,
		TokensInput:      res.TokensInput,
		TokensOutput:     res.TokensOutput,
	})
	return res, nil
}
