package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Store persists feature requests in PostgreSQL. Safe for concurrent
// use.
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

const itemColumns = `id, context_space_id, title, description, status, priority, effort, source, tags, created_by, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var it Item
	var description, status, priority, effort pgtype.Text
	err := row.Scan(&it.ID, &it.ContextSpaceID, &it.Title, &description, &status,
		&priority, &effort, &it.Source, &it.Tags, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan feature request: %w", err)
	}
	it.Description = description.String
	it.Status = status.String
	it.Priority = priority.String
	it.Effort = effort.String
	return &it, nil
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// NewItem carries the attributes of a feature request to create.
type NewItem struct {
	Title       string
	Description string
	Status      string
	Priority    string
	Effort      string
	Source      string
	Tags        []string
}

const insertItemSQL = `
	INSERT INTO feature_requests (id, context_space_id, title, description, status, priority, effort, source, tags, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// Create inserts one feature request into a space.
func (s *Store) Create(ctx context.Context, spaceID, createdBy string, in NewItem) (*Item, error) {
	if err := validateItem(0, in.Title); err != nil {
		return nil, err
	}

	it := newFromInput(spaceID, createdBy, in)
	_, err := s.db.Exec(ctx, insertItemSQL,
		it.ID, it.ContextSpaceID, it.Title, textOrNull(it.Description), textOrNull(it.Status),
		textOrNull(it.Priority), textOrNull(it.Effort), it.Source, it.Tags, it.CreatedBy,
		it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert feature request: %w", err)
	}
	return it, nil
}

// BulkCreate inserts a batch of feature requests atomically. Every
// item is validated before any row is written, so one bad item rejects
// the whole batch and nothing is persisted.
func (s *Store) BulkCreate(ctx context.Context, spaceID, createdBy string, in []NewItem) ([]Item, error) {
	for i, item := range in {
		if err := validateItem(i, item.Title); err != nil {
			return nil, err
		}
	}
	if len(in) == 0 {
		return nil, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	items := make([]Item, 0, len(in))
	for _, input := range in {
		it := newFromInput(spaceID, createdBy, input)
		_, err := tx.Exec(ctx, insertItemSQL,
			it.ID, it.ContextSpaceID, it.Title, textOrNull(it.Description), textOrNull(it.Status),
			textOrNull(it.Priority), textOrNull(it.Effort), it.Source, it.Tags, it.CreatedBy,
			it.CreatedAt, it.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert feature request batch: %w", err)
		}
		items = append(items, *it)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit feature request batch: %w", err)
	}

	s.logger.Info("imported feature requests", "space_id", spaceID, "count", len(items))
	return items, nil
}

func newFromInput(spaceID, createdBy string, in NewItem) *Item {
	now := time.Now().UTC()
	source := in.Source
	if source == "" {
		source = SourceManual
	}
	return &Item{
		ID:             uuid.NewString(),
		ContextSpaceID: spaceID,
		Title:          in.Title,
		Description:    in.Description,
		Status:         in.Status,
		Priority:       in.Priority,
		Effort:         in.Effort,
		Source:         source,
		Tags:           in.Tags,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Get fetches one feature request by id.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM feature_requests WHERE id = $1`, id)
	return scanItem(row)
}

// ListBySpace returns a space's feature requests ordered by creation
// time. A non-empty tag narrows the result to items carrying it.
func (s *Store) ListBySpace(ctx context.Context, spaceID, tag string) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM feature_requests WHERE context_space_id = $1`
	args := []any{spaceID}
	if tag != "" {
		query += ` AND $2 = ANY(tags)`
		args = append(args, tag)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feature requests: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// Update applies upd to a feature request.
func (s *Store) Update(ctx context.Context, id string, upd Update) (*Item, error) {
	it, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		if err := validateItem(0, *upd.Title); err != nil {
			return nil, err
		}
		it.Title = *upd.Title
	}
	if upd.Description != nil {
		it.Description = *upd.Description
	}
	if upd.Status != nil {
		it.Status = *upd.Status
	}
	if upd.Priority != nil {
		it.Priority = *upd.Priority
	}
	if upd.Effort != nil {
		it.Effort = *upd.Effort
	}
	if upd.Tags != nil {
		it.Tags = *upd.Tags
	}
	it.UpdatedAt = time.Now().UTC()

	tag, err := s.db.Exec(ctx, `
		UPDATE feature_requests
		SET title = $2, description = $3, status = $4, priority = $5, effort = $6, tags = $7, updated_at = $8
		WHERE id = $1`,
		it.ID, it.Title, textOrNull(it.Description), textOrNull(it.Status),
		textOrNull(it.Priority), textOrNull(it.Effort), it.Tags, it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update feature request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return it, nil
}

// Delete removes one feature request.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM feature_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete feature request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
