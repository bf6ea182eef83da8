package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prodmap/prodmap/internal/conversation"
	"github.com/prodmap/prodmap/internal/provider"
	"github.com/prodmap/prodmap/internal/space"
)

// Recommendation floor and auto-selection width for global chat.
const (
	recommendSimilarityMin = 0.5
	autoSelectTop          = 3
	miniContextItemCap     = 10
)

// fallbackRationale is used when the per-space rationale call fails;
// a degraded chat vendor must not drop an otherwise valid candidate.
const fallbackRationale = "Relevant based on content similarity"

// Recommendation pairs a candidate space with its score and a
// one-sentence rationale.
type Recommendation struct {
	Space      space.Space
	Similarity float64
	Rationale  string
}

// Global answers questions across an organization's spaces. Safe for
// concurrent use.
type Global struct {
	resolver      ChatResolver
	contextSource ContextBuilder
	spaces        SpaceReader
	items         ItemReader
	descriptions  DescriptionSearcher
	conversations ConversationStore
	ledger        UsageLogger
	chatTimeout   time.Duration
	logger        *slog.Logger
}

// NewGlobal creates the organization-wide assistant. A non-positive
// chatTimeout disables the per-call deadline.
func NewGlobal(resolver ChatResolver, contextSource ContextBuilder, spaces SpaceReader,
	items ItemReader, descriptions DescriptionSearcher, conversations ConversationStore,
	ledger UsageLogger, chatTimeout time.Duration, logger *slog.Logger) *Global {
	if logger == nil {
		logger = slog.Default()
	}
	return &Global{
		resolver:      resolver,
		contextSource: contextSource,
		spaces:        spaces,
		items:         items,
		descriptions:  descriptions,
		conversations: conversations,
		ledger:        ledger,
		chatTimeout:   chatTimeout,
		logger:        logger,
	}
}

const globalSystemPrompt = "You are a product management assistant with visibility across " +
	"an organization's product areas. Ground your answers in the provided space contexts."

// RecommendSpaces ranks the organization's spaces by relevance to a
// free-text query. Only candidates strictly above the similarity
// floor are returned, sorted by score descending, at most limit. Each
// carries a one-sentence rationale; if the rationale call fails the
// candidate keeps a static one instead of being dropped.
func (g *Global) RecommendSpaces(ctx context.Context, userID, orgID, query string, limit int) ([]Recommendation, error) {
	vec, _, err := g.contextSource.GenerateEmbedding(ctx, userID, orgID, query)
	if err != nil {
		return nil, err
	}

	// Headroom over limit: the floor filter runs after retrieval.
	matches, err := g.descriptions.SearchDescriptions(ctx, vec, orgID, limit*3)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		spaceID    string
		similarity float64
	}
	var candidates []candidate
	for _, m := range matches {
		if m.Similarity > recommendSimilarityMin {
			candidates = append(candidates, candidate{spaceID: m.ContextSpaceID, similarity: m.Similarity})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.spaceID
	}
	spaces, err := g.spaces.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]space.Space, len(spaces))
	for _, sp := range spaces {
		byID[sp.ID] = sp
	}

	var recs []Recommendation
	for _, c := range candidates {
		sp, ok := byID[c.spaceID]
		if !ok {
			continue
		}
		recs = append(recs, Recommendation{
			Space:      sp,
			Similarity: c.similarity,
			Rationale:  g.rationale(ctx, userID, orgID, query, &sp),
		})
	}
	return recs, nil
}

func (g *Global) rationale(ctx context.Context, userID, orgID, query string, sp *space.Space) string {
	res, err := chatOnce(ctx, g.resolver, g.ledger, g.chatTimeout, userID, orgID, "", []provider.Message{
		{Role: provider.RoleSystem, Content: "Answer with exactly one short sentence."},
		{Role: provider.RoleUser, Content: fmt.Sprintf(
			"In one sentence, why is the product area %q (%s) relevant to the question %q?",
			sp.Name, sp.Description, query)},
	})
	if err != nil {
		g.logger.Debug("rationale generation failed, using fallback",
			"space_id", sp.ID, "error", err)
		return fallbackRationale
	}
	return strings.TrimSpace(res.Content)
}

// miniContext renders the compact per-space block cross-space
// analysis uses: name, description and the first few item titles.
func (g *Global) miniContext(ctx context.Context, sp *space.Space) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", sp.Name)
	if sp.Description != "" {
		fmt.Fprintf(&b, "%s\n", sp.Description)
	}

	items, err := g.items.ListBySpace(ctx, sp.ID, "")
	if err != nil {
		g.logger.Debug("mini context items unavailable", "space_id", sp.ID, "error", err)
		return b.String()
	}
	if len(items) > miniContextItemCap {
		items = items[:miniContextItemCap]
	}
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it.Title)
	}
	return b.String()
}

// AnalyzeAcrossSpaces builds a mini context per space concurrently
// and asks for one strategic analysis across all of them. A space
// whose context build fails contributes nothing instead of aborting
// the rest.
func (g *Global) AnalyzeAcrossSpaces(ctx context.Context, userID, orgID string, spaceIDs []string, question string) (string, error) {
	spaces, err := g.spaces.ListByIDs(ctx, spaceIDs)
	if err != nil {
		return "", err
	}
	if len(spaces) == 0 {
		return "", fmt.Errorf("no spaces to analyze")
	}

	sections := make([]string, len(spaces))
	grp, grpCtx := errgroup.WithContext(ctx)
	for i := range spaces {
		grp.Go(func() error {
			sections[i] = g.miniContext(grpCtx, &spaces[i])
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return "", err
	}

	res, err := chatOnce(ctx, g.resolver, g.ledger, g.chatTimeout, userID, orgID, "", []provider.Message{
		{Role: provider.RoleSystem, Content: globalSystemPrompt},
		{Role: provider.RoleUser, Content: "Provide a single strategic analysis across these product areas, " +
			"answering: " + question + "\n\n" + strings.Join(sections, "\n")},
	})
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// StartConversation opens an organization-wide chat thread.
func (g *Global) StartConversation(ctx context.Context, userID, orgID, title string) (*conversation.Conversation, error) {
	return g.conversations.CreateGlobal(ctx, orgID, userID, title)
}

// SendMessage appends a user turn to a global conversation. Context
// spaces come from the explicit id list when given, otherwise from
// the top recommendations for the message text. With no qualifying
// spaces the model is told it has no retrieved context and answers
// from general knowledge. Per-space context builds fan out; one
// failed build degrades that space to no context.
func (g *Global) SendMessage(ctx context.Context, userID, conversationID, content string, spaceIDs []string) (*Reply, error) {
	conv, err := g.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if len(spaceIDs) == 0 {
		recs, err := g.RecommendSpaces(ctx, userID, conv.OrganizationID, content, autoSelectTop)
		if err != nil {
			g.logger.Warn("space recommendation failed, proceeding without context", "error", err)
		}
		for _, rec := range recs {
			spaceIDs = append(spaceIDs, rec.Space.ID)
		}
	}

	system := globalSystemPrompt
	if len(spaceIDs) == 0 {
		system = "You are a product management assistant. No organization context was retrieved " +
			"for this question; answer from general product knowledge and say so when asked about specifics."
	} else {
		contexts := make([]string, len(spaceIDs))
		grp, grpCtx := errgroup.WithContext(ctx)
		for i, id := range spaceIDs {
			grp.Go(func() error {
				text, err := g.contextSource.ContextForSpace(grpCtx, userID, id)
				if err != nil {
					g.logger.Debug("space context unavailable", "space_id", id, "error", err)
					return nil
				}
				contexts[i] = text
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return nil, err
		}

		var kept []string
		for _, c := range contexts {
			if c != "" {
				kept = append(kept, c)
			}
		}
		if len(kept) > 0 {
			system += "\n\n" + strings.Join(kept, "\n\n---\n\n")
		}
	}

	history, err := g.conversations.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	msgs := make([]provider.Message, 0, len(history)+2)
	msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: system})
	for _, m := range history {
		msgs = append(msgs, provider.Message{Role: provider.Role(m.Role), Content: m.Content})
	}
	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: content})

	res, err := chatOnce(ctx, g.resolver, g.ledger, g.chatTimeout, userID, conv.OrganizationID, conversationID, msgs)
	if err != nil {
		return nil, err
	}

	if _, err := g.conversations.Append(ctx, conversationID, conversation.RoleUser, content); err != nil {
		return nil, err
	}
	if _, err := g.conversations.Append(ctx, conversationID, conversation.RoleAssistant, res.Content); err != nil {
		return nil, err
	}

	return &Reply{ConversationID: conversationID, Content: res.Content, Model: res.Model}, nil
}
