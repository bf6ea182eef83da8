package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prodmap/prodmap/internal/conversation"
	"github.com/prodmap/prodmap/internal/feature"
	"github.com/prodmap/prodmap/internal/provider"
)

// Scoped answers questions and runs analyses over one context space.
// Safe for concurrent use.
type Scoped struct {
	resolver      ChatResolver
	contextSource ContextBuilder
	items         ItemReader
	conversations ConversationStore
	ledger        UsageLogger
	chatTimeout   time.Duration
	logger        *slog.Logger
}

// NewScoped creates the space-scoped assistant. A non-positive
// chatTimeout disables the per-call deadline.
func NewScoped(resolver ChatResolver, contextSource ContextBuilder, items ItemReader,
	conversations ConversationStore, ledger UsageLogger, chatTimeout time.Duration, logger *slog.Logger) *Scoped {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scoped{
		resolver:      resolver,
		contextSource: contextSource,
		items:         items,
		conversations: conversations,
		ledger:        ledger,
		chatTimeout:   chatTimeout,
		logger:        logger,
	}
}

// DuplicateGroup is a set of feature requests the model considers the
// same ask.
type DuplicateGroup struct {
	FeatureIDs []string `json:"featureIds"`
	Reason     string   `json:"reason"`
	Similarity float64  `json:"similarity"`
}

// ThemeGroup clusters feature requests under one theme.
type ThemeGroup struct {
	Theme       string   `json:"theme"`
	Description string   `json:"description"`
	FeatureIDs  []string `json:"featureIds"`
}

// QuickWin is a low-effort, high-impact feature request.
type QuickWin struct {
	FeatureID string `json:"featureId"`
	Title     string `json:"title"`
	Effort    string `json:"effort"`
	Impact    string `json:"impact"`
	Rationale string `json:"rationale"`
}

// Suggestion is a feature the model proposes based on existing
// requests.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
}

const scopedSystemPrompt = "You are a product management assistant. Answer using the " +
	"provided context about the product's context space, its hierarchy and its feature requests. " +
	"When the context does not cover a question, say so rather than inventing details."

// Summary generates a short narrative summary of a space.
func (s *Scoped) Summary(ctx context.Context, userID, orgID, spaceID string) (string, error) {
	contextText, err := s.contextSource.ContextForSpace(ctx, userID, spaceID)
	if err != nil {
		return "", err
	}

	res, err := chatOnce(ctx, s.resolver, s.ledger, s.chatTimeout, userID, orgID, "", []provider.Message{
		{Role: provider.RoleSystem, Content: scopedSystemPrompt},
		{Role: provider.RoleUser, Content: "Summarize this context space in a few short paragraphs. " +
			"Cover its purpose, the state of its feature requests and anything that stands out.\n\n" + contextText},
	})
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// itemCatalog renders items as an id-keyed list for analytical
// prompts.
func itemCatalog(items []feature.Item) string {
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- id=%s title=%q", it.ID, it.Title)
		if it.Description != "" {
			fmt.Fprintf(&b, " description=%q", it.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// knownIDs filters refs down to ids that exist in items, preserving
// order.
func knownIDs(refs []string, items []feature.Item) []string {
	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[it.ID] = true
	}
	var out []string
	for _, id := range refs {
		if known[id] {
			out = append(out, id)
		}
	}
	return out
}

// analyze runs one JSON-shaped analytical prompt over a space's
// items. It returns the raw model output, the item list, and ok=false
// when the space has fewer than min items.
func (s *Scoped) analyze(ctx context.Context, userID, orgID, spaceID, instruction string, min int) (string, []feature.Item, error) {
	items, err := s.items.ListBySpace(ctx, spaceID, "")
	if err != nil {
		return "", nil, err
	}
	if len(items) < min {
		return "", items, nil
	}

	res, err := chatOnce(ctx, s.resolver, s.ledger, s.chatTimeout, userID, orgID, "", []provider.Message{
		{Role: provider.RoleSystem, Content: scopedSystemPrompt +
			" Respond with JSON only, no prose around it."},
		{Role: provider.RoleUser, Content: instruction + "\n\nFeature requests:\n" + itemCatalog(items)},
	})
	if err != nil {
		return "", nil, err
	}
	return res.Content, items, nil
}

// DetectDuplicates asks the model to group feature requests that
// describe the same ask. Fewer than two items, or an unparseable
// reply, yields an empty result. Ids the model invents are dropped;
// groups left with fewer than two real items are discarded.
func (s *Scoped) DetectDuplicates(ctx context.Context, userID, orgID, spaceID string) ([]DuplicateGroup, error) {
	raw, items, err := s.analyze(ctx, userID, orgID, spaceID,
		`Identify groups of duplicate or near-duplicate feature requests. Return a JSON array of `+
			`{"featureIds": [...], "reason": "...", "similarity": 0.0-1.0}. Return [] if there are none.`, 2)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	groups, ok := parseResponse[[]DuplicateGroup](s.logger, "detect_duplicates", raw)
	if !ok {
		return nil, nil
	}

	var out []DuplicateGroup
	for _, g := range groups {
		g.FeatureIDs = knownIDs(g.FeatureIDs, items)
		if len(g.FeatureIDs) >= 2 {
			out = append(out, g)
		}
	}
	return out, nil
}

// GroupByTheme clusters a space's feature requests into themes.
func (s *Scoped) GroupByTheme(ctx context.Context, userID, orgID, spaceID string) ([]ThemeGroup, error) {
	raw, items, err := s.analyze(ctx, userID, orgID, spaceID,
		`Group these feature requests into themes. Return a JSON array of `+
			`{"theme": "...", "description": "...", "featureIds": [...]}.`, 1)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	groups, ok := parseResponse[[]ThemeGroup](s.logger, "group_by_theme", raw)
	if !ok {
		return nil, nil
	}

	var out []ThemeGroup
	for _, g := range groups {
		g.FeatureIDs = knownIDs(g.FeatureIDs, items)
		if g.Theme != "" && len(g.FeatureIDs) > 0 {
			out = append(out, g)
		}
	}
	return out, nil
}

func quickWinQualifies(w QuickWin) bool {
	effort := strings.ToLower(w.Effort)
	impact := strings.ToLower(w.Impact)
	return (effort == "low" || effort == "medium") && (impact == "medium" || impact == "high")
}

// QuickWins asks the model for low-effort, high-impact requests and
// keeps only entries whose effort is low or medium and whose impact
// is medium or high, whatever the model claims.
func (s *Scoped) QuickWins(ctx context.Context, userID, orgID, spaceID string) ([]QuickWin, error) {
	raw, items, err := s.analyze(ctx, userID, orgID, spaceID,
		`Identify quick wins: feature requests with low or medium effort and medium or high impact. `+
			`Return a JSON array of {"featureId": "...", "title": "...", "effort": "low|medium", `+
			`"impact": "medium|high", "rationale": "..."}.`, 1)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}

	wins, ok := parseResponse[[]QuickWin](s.logger, "quick_wins", raw)
	if !ok {
		return nil, nil
	}

	var out []QuickWin
	for _, w := range wins {
		if len(knownIDs([]string{w.FeatureID}, items)) == 1 && quickWinQualifies(w) {
			out = append(out, w)
		}
	}
	return out, nil
}

// SuggestFeatures proposes new features based on the existing
// requests and the space context.
func (s *Scoped) SuggestFeatures(ctx context.Context, userID, orgID, spaceID string) ([]Suggestion, error) {
	contextText, err := s.contextSource.ContextForSpace(ctx, userID, spaceID)
	if err != nil {
		return nil, err
	}

	res, err := chatOnce(ctx, s.resolver, s.ledger, s.chatTimeout, userID, orgID, "", []provider.Message{
		{Role: provider.RoleSystem, Content: scopedSystemPrompt + " Respond with JSON only, no prose around it."},
		{Role: provider.RoleUser, Content: `Suggest up to 5 new features that would complement the existing ones. ` +
			`Return a JSON array of {"title": "...", "description": "...", "rationale": "..."}.` +
			"\n\n" + contextText},
	})
	if err != nil {
		return nil, err
	}

	suggestions, ok := parseResponse[[]Suggestion](s.logger, "suggest_features", res.Content)
	if !ok {
		return nil, nil
	}

	var out []Suggestion
	for _, sg := range suggestions {
		if sg.Title != "" {
			out = append(out, sg)
		}
	}
	return out, nil
}

// StartConversation opens a chat thread bound to one space.
func (s *Scoped) StartConversation(ctx context.Context, userID, orgID, spaceID, title string) (*conversation.Conversation, error) {
	return s.conversations.CreateScoped(ctx, orgID, userID, spaceID, title)
}

// SendMessage appends a user turn, replays the history with freshly
// assembled space context and appends the assistant's reply. Context
// is rebuilt every turn so edits made mid-conversation are visible.
func (s *Scoped) SendMessage(ctx context.Context, userID, conversationID, content string) (*Reply, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	contextText, err := s.contextSource.ContextForSpace(ctx, userID, conv.ContextSpaceID)
	if err != nil {
		return nil, err
	}

	history, err := s.conversations.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	msgs := make([]provider.Message, 0, len(history)+2)
	msgs = append(msgs, provider.Message{
		Role:    provider.RoleSystem,
		Content: scopedSystemPrompt + "\n\n" + contextText,
	})
	for _, m := range history {
		msgs = append(msgs, provider.Message{Role: provider.Role(m.Role), Content: m.Content})
	}
	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: content})

	res, err := chatOnce(ctx, s.resolver, s.ledger, s.chatTimeout, userID, conv.OrganizationID, conversationID, msgs)
	if err != nil {
		return nil, err
	}

	if _, err := s.conversations.Append(ctx, conversationID, conversation.RoleUser, content); err != nil {
		return nil, err
	}
	if _, err := s.conversations.Append(ctx, conversationID, conversation.RoleAssistant, res.Content); err != nil {
		return nil, err
	}

	return &Reply{ConversationID: conversationID, Content: res.Content, Model: res.Model}, nil
}

// GetConversation returns a conversation with its message history.
func (s *Scoped) GetConversation(ctx context.Context, conversationID string) (*Thread, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.conversations.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return &Thread{Conversation: *conv, Messages: msgs}, nil
}
