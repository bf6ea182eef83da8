package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prodmap/prodmap/internal/conversation"
	"github.com/prodmap/prodmap/internal/embedding"
	"github.com/prodmap/prodmap/internal/feature"
	"github.com/prodmap/prodmap/internal/provider"
	"github.com/prodmap/prodmap/internal/space"
	"github.com/prodmap/prodmap/internal/usage"
)

// scriptedProvider replies with queued responses, one per Chat call.
// When the queue is exhausted it repeats the last entry.
type scriptedProvider struct {
	replies []string
	chatErr error
	calls   [][]provider.Message
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Chat(_ context.Context, msgs []provider.Message, _ string) (*provider.ChatResult, error) {
	p.calls = append(p.calls, msgs)
	if p.chatErr != nil {
		return nil, p.chatErr
	}
	reply := "ok"
	if len(p.replies) > 0 {
		reply = p.replies[0]
		if len(p.replies) > 1 {
			p.replies = p.replies[1:]
		}
	}
	return &provider.ChatResult{Content: reply, TokensInput: 10, TokensOutput: 5, Model: "scripted-1"}, nil
}

func (p *scriptedProvider) Embed(context.Context, string, string) (*provider.EmbedResult, error) {
	return nil, provider.ErrNotSupported
}

func (p *scriptedProvider) ListModels(context.Context) ([]string, error) {
	return []string{"scripted-1"}, nil
}

type stubResolver struct {
	p provider.Provider
}

func (r *stubResolver) Get(_, _, _ string) (*provider.Resolved, error) {
	return &provider.Resolved{Provider: r.p, Source: provider.SourceSystem, Vendor: "scripted"}, nil
}

type stubContext struct {
	contexts map[string]string
	ctxErr   error
	embedErr error
}

func (c *stubContext) ContextForSpace(_ context.Context, _, spaceID string) (string, error) {
	if c.ctxErr != nil {
		return "", c.ctxErr
	}
	text, ok := c.contexts[spaceID]
	if !ok {
		return "", space.ErrNotFound
	}
	return text, nil
}

func (c *stubContext) GenerateEmbedding(_ context.Context, _, _, _ string) ([]float32, string, error) {
	if c.embedErr != nil {
		return nil, "", c.embedErr
	}
	return []float32{0.5, 0.5}, "stub-embed", nil
}

type stubSpaces struct {
	spaces map[string]space.Space
}

func (s *stubSpaces) Get(_ context.Context, id string) (*space.Space, error) {
	sp, ok := s.spaces[id]
	if !ok {
		return nil, space.ErrNotFound
	}
	return &sp, nil
}

func (s *stubSpaces) ListByIDs(_ context.Context, ids []string) ([]space.Space, error) {
	var out []space.Space
	for _, id := range ids {
		if sp, ok := s.spaces[id]; ok {
			out = append(out, sp)
		}
	}
	return out, nil
}

type stubItems struct {
	bySpace map[string][]feature.Item
}

func (s *stubItems) ListBySpace(_ context.Context, spaceID, _ string) ([]feature.Item, error) {
	return s.bySpace[spaceID], nil
}

type stubSearcher struct {
	matches []embedding.Match
	err     error
}

func (s *stubSearcher) SearchDescriptions(_ context.Context, _ []float32, _ string, _ int) ([]embedding.Match, error) {
	return s.matches, s.err
}

// memConversations is an in-memory ConversationStore.
type memConversations struct {
	convs    map[string]*conversation.Conversation
	messages map[string][]conversation.Message
	nextID   int
}

func newMemConversations() *memConversations {
	return &memConversations{
		convs:    map[string]*conversation.Conversation{},
		messages: map[string][]conversation.Message{},
	}
}

func (m *memConversations) create(orgID, userID, kind, spaceID, title string) *conversation.Conversation {
	m.nextID++
	conv := &conversation.Conversation{
		ID:             fmt.Sprintf("conv-%d", m.nextID),
		OrganizationID: orgID,
		UserID:         userID,
		Kind:           kind,
		ContextSpaceID: spaceID,
		Title:          title,
		CreatedAt:      time.Now(),
	}
	m.convs[conv.ID] = conv
	return conv
}

func (m *memConversations) CreateScoped(_ context.Context, orgID, userID, spaceID, title string) (*conversation.Conversation, error) {
	return m.create(orgID, userID, conversation.KindScoped, spaceID, title), nil
}

func (m *memConversations) CreateGlobal(_ context.Context, orgID, userID, title string) (*conversation.Conversation, error) {
	return m.create(orgID, userID, conversation.KindGlobal, "", title), nil
}

func (m *memConversations) Get(_ context.Context, id string) (*conversation.Conversation, error) {
	conv, ok := m.convs[id]
	if !ok {
		return nil, conversation.ErrNotFound
	}
	return conv, nil
}

func (m *memConversations) Messages(_ context.Context, conversationID string) ([]conversation.Message, error) {
	return m.messages[conversationID], nil
}

func (m *memConversations) Append(_ context.Context, conversationID, role, content string) (*conversation.Message, error) {
	if _, ok := m.convs[conversationID]; !ok {
		return nil, conversation.ErrNotFound
	}
	msg := conversation.Message{
		ID:             fmt.Sprintf("msg-%d", len(m.messages[conversationID])+1),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	m.messages[conversationID] = append(m.messages[conversationID], msg)
	return &msg, nil
}

type recordingLedger struct {
	records []usage.Record
}

func (l *recordingLedger) Log(_ context.Context, rec usage.Record) {
	l.records = append(l.records, rec)
}

var errVendorDown = errors.New("vendor down")
