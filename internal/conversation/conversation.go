// Package conversation persists assistant conversations and their
// message history.
package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates the referenced conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// Conversation kinds.
const (
	KindScoped = "scoped" // bound to one context space
	KindGlobal = "global" // spans the whole organization
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is a thread of assistant messages. ContextSpaceID is
// empty for global conversations.
type Conversation struct {
	ID             string
	OrganizationID string
	UserID         string
	Kind           string
	ContextSpaceID string
	Title          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Message is one turn in a conversation.
type Message struct {
	ID             string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
