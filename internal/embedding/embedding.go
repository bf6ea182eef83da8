// Package embedding stores and searches content vectors with
// pgvector. Similarity is 1 minus cosine distance, so identical
// vectors score 1.0 and unrelated ones approach 0.
package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// ErrNotFound indicates the referenced embedding does not exist.
var ErrNotFound = errors.New("embedding not found")

// Source types an embedding can describe.
const (
	SourceDescription     = "description"
	SourceFeatureRequest  = "feature_request"
	SourceIntegrationData = "integration_data"
)

// Record is one stored vector. The (ContextSpaceID, SourceType,
// SourceID) triple is unique; re-embedding the same source replaces
// the vector in place.
type Record struct {
	ID             string
	ContextSpaceID string
	SourceType     string
	SourceID       string
	Content        string
	Vector         pgvector.Vector
	Model          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Match is a search hit with its similarity score.
type Match struct {
	Record
	Similarity float64
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
