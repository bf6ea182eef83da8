package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Store persists conversations in PostgreSQL. Safe for concurrent
// use.
type Store struct {
	db DB
}

// NewStore creates a Store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// CreateScoped starts a conversation bound to one context space.
func (s *Store) CreateScoped(ctx context.Context, orgID, userID, spaceID, title string) (*Conversation, error) {
	return s.create(ctx, orgID, userID, KindScoped, spaceID, title)
}

// CreateGlobal starts an organization-wide conversation.
func (s *Store) CreateGlobal(ctx context.Context, orgID, userID, title string) (*Conversation, error) {
	return s.create(ctx, orgID, userID, KindGlobal, "", title)
}

func (s *Store) create(ctx context.Context, orgID, userID, kind, spaceID, title string) (*Conversation, error) {
	now := time.Now().UTC()
	conv := &Conversation{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		UserID:         userID,
		Kind:           kind,
		ContextSpaceID: spaceID,
		Title:          title,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_conversations (id, organization_id, user_id, kind, context_space_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		conv.ID, conv.OrganizationID, conv.UserID, conv.Kind,
		pgtype.Text{String: conv.ContextSpaceID, Valid: conv.ContextSpaceID != ""},
		pgtype.Text{String: conv.Title, Valid: conv.Title != ""},
		conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert conversation: %w", err)
	}
	return conv, nil
}

// Get fetches one conversation by id.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	var spaceID, title pgtype.Text
	err := s.db.QueryRow(ctx, `
		SELECT id, organization_id, user_id, kind, context_space_id, title, created_at, updated_at
		FROM ai_conversations WHERE id = $1`, id).
		Scan(&conv.ID, &conv.OrganizationID, &conv.UserID, &conv.Kind,
			&spaceID, &title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}
	conv.ContextSpaceID = spaceID.String
	conv.Title = title.String
	return &conv, nil
}

// Messages returns a conversation's history in chronological order.
func (s *Store) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM ai_messages WHERE conversation_id = $1 ORDER BY created_at`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Append adds one message to a conversation and bumps its updated_at.
func (s *Store) Append(ctx context.Context, conversationID, role, content string) (*Message, error) {
	msg := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_messages (id, conversation_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE ai_conversations SET updated_at = $2 WHERE id = $1`,
		conversationID, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}
	return msg, nil
}
