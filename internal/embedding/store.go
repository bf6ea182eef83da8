package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Store persists embeddings in PostgreSQL. Safe for concurrent use.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store.
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Upsert writes a vector for a source, replacing any previous vector
// for the same (space, source type, source id) triple.
func (s *Store) Upsert(ctx context.Context, spaceID, sourceType, sourceID, content string, vector []float32, model string) (*Record, error) {
	now := time.Now().UTC()
	rec := &Record{
		ID:             uuid.NewString(),
		ContextSpaceID: spaceID,
		SourceType:     sourceType,
		SourceID:       sourceID,
		Content:        content,
		Vector:         pgvector.NewVector(vector),
		Model:          model,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO embeddings (id, context_space_id, source_type, source_id, content, embedding, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (context_space_id, source_type, source_id)
		DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding,
			model = EXCLUDED.model, updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.ContextSpaceID, rec.SourceType, rec.SourceID, rec.Content,
		rec.Vector, rec.Model, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return rec, nil
}

// DeleteBySource removes the vector for one source, if present.
func (s *Store) DeleteBySource(ctx context.Context, spaceID, sourceType, sourceID string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM embeddings
		WHERE context_space_id = $1 AND source_type = $2 AND source_id = $3`,
		spaceID, sourceType, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	return nil
}

// SearchSimilar ranks stored vectors by cosine similarity to the
// query vector, highest first. A non-empty spaceID narrows the search
// to one space; limit caps the result.
func (s *Store) SearchSimilar(ctx context.Context, vector []float32, spaceID string, limit int) ([]Match, error) {
	query := `
		SELECT id, context_space_id, source_type, source_id, content, model, created_at, updated_at,
			1 - (embedding <=> $1) AS similarity
		FROM embeddings`
	args := []any{pgvector.NewVector(vector)}
	if spaceID != "" {
		query += ` WHERE context_space_id = $2`
		args = append(args, spaceID)
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT $%d`, len(args))

	return s.search(ctx, query, args...)
}

// SearchDescriptions ranks one organization's space-description
// vectors by similarity to the query vector, highest first.
func (s *Store) SearchDescriptions(ctx context.Context, vector []float32, orgID string, limit int) ([]Match, error) {
	query := `
		SELECT e.id, e.context_space_id, e.source_type, e.source_id, e.content, e.model, e.created_at, e.updated_at,
			1 - (e.embedding <=> $1) AS similarity
		FROM embeddings e
		JOIN context_spaces cs ON cs.id = e.context_space_id
		WHERE cs.organization_id = $2 AND e.source_type = $3
		ORDER BY e.embedding <=> $1 LIMIT $4`

	return s.search(ctx, query, pgvector.NewVector(vector), orgID, SourceDescription, limit)
}

func (s *Store) search(ctx context.Context, query string, args ...any) ([]Match, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		err := rows.Scan(&m.ID, &m.ContextSpaceID, &m.SourceType, &m.SourceID,
			&m.Content, &m.Model, &m.CreatedAt, &m.UpdatedAt, &m.Similarity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan embedding match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// CountBySpace reports how many vectors a space holds.
func (s *Store) CountBySpace(ctx context.Context, spaceID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM embeddings WHERE context_space_id = $1`, spaceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}
