// Package feature manages feature requests attached to context
// spaces.
package feature

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the referenced feature request does not
	// exist.
	ErrNotFound = errors.New("feature request not found")

	// ErrValidation indicates invalid feature request attributes.
	ErrValidation = errors.New("invalid feature request")
)

// Provenance values for a feature request.
const (
	SourceManual   = "manual"
	SourceImported = "imported"
)

// Item is a feature request inside a context space.
type Item struct {
	ID             string
	ContextSpaceID string
	Title          string
	Description    string
	Status         string
	Priority       string
	Effort         string
	Source         string // manual or imported
	Tags           []string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Update carries mutable item attributes; nil fields are left
// unchanged.
type Update struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Effort      *string
	Tags        *[]string
}

// DB is the subset of pgxpool.Pool the store needs. Begin is required
// because bulk imports run in a single transaction.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

func validateItem(index int, title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: item %d has an empty title", ErrValidation, index)
	}
	return nil
}
