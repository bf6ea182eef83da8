package space

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Store persists context spaces in PostgreSQL. Safe for concurrent
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

const spaceColumns = `id, organization_id, parent_id, name, description, space_type, created_by, created_at, updated_at`

func scanSpace(row pgx.Row) (*Space, error) {
	var s Space
	var parentID, description, spaceType pgtype.Text
	err := row.Scan(&s.ID, &s.OrganizationID, &parentID, &s.Name, &description,
		&spaceType, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan context space: %w", err)
	}
	s.ParentID = parentID.String
	s.Description = description.String
	s.SpaceType = spaceType.String
	return &s, nil
}

func textOrNull(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// Create inserts a new space. The parent, when given, must exist and
// belong to the same organization.
func (s *Store) Create(ctx context.Context, orgID, name, description, spaceType, parentID, createdBy string) (*Space, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	if parentID != "" {
		parent, err := s.Get(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.OrganizationID != orgID {
			return nil, ErrCrossTenant
		}
	}

	now := time.Now().UTC()
	sp := &Space{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		ParentID:       parentID,
		Name:           name,
		Description:    description,
		SpaceType:      spaceType,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO context_spaces (id, organization_id, parent_id, name, description, space_type, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sp.ID, sp.OrganizationID, textOrNull(sp.ParentID), sp.Name,
		textOrNull(sp.Description), textOrNull(sp.SpaceType), sp.CreatedBy, sp.CreatedAt, sp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert context space: %w", err)
	}

	return sp, nil
}

// Get fetches one space by id.
func (s *Store) Get(ctx context.Context, id string) (*Space, error) {
	row := s.db.QueryRow(ctx, `SELECT `+spaceColumns+` FROM context_spaces WHERE id = $1`, id)
	return scanSpace(row)
}

// ListRoots returns an organization's root spaces ordered by creation
// time.
func (s *Store) ListRoots(ctx context.Context, orgID string) ([]Space, error) {
	return s.list(ctx, `SELECT `+spaceColumns+` FROM context_spaces
		WHERE organization_id = $1 AND parent_id IS NULL ORDER BY created_at`, orgID)
}

// ListByOrganization returns all of an organization's spaces ordered
// by creation time.
func (s *Store) ListByOrganization(ctx context.Context, orgID string) ([]Space, error) {
	return s.list(ctx, `SELECT `+spaceColumns+` FROM context_spaces
		WHERE organization_id = $1 ORDER BY created_at`, orgID)
}

// ListByIDs returns the spaces with the given ids; missing ids are
// silently absent from the result.
func (s *Store) ListByIDs(ctx context.Context, ids []string) ([]Space, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.list(ctx, `SELECT `+spaceColumns+` FROM context_spaces
		WHERE id = ANY($1) ORDER BY created_at`, ids)
}

// Children returns the direct children of a space, one level only.
func (s *Store) Children(ctx context.Context, id string) ([]Space, error) {
	return s.list(ctx, `SELECT `+spaceColumns+` FROM context_spaces
		WHERE parent_id = $1 ORDER BY created_at`, id)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Space, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query context spaces: %w", err)
	}
	defer rows.Close()

	var spaces []Space
	for rows.Next() {
		sp, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		spaces = append(spaces, *sp)
	}
	return spaces, rows.Err()
}

// Ancestors returns the parent chain of a space, immediate parent
// first. The walk is bounded by maxTreeDepth independently of the
// write-time cycle check.
func (s *Store) Ancestors(ctx context.Context, id string) ([]Space, error) {
	start, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return ancestorChain(ctx, s.Get, start, s.logger)
}

// Tree builds the organization's full space hierarchy. Spaces whose
// parent is missing are attached at the root rather than dropped.
func (s *Store) Tree(ctx context.Context, orgID string) ([]*TreeNode, error) {
	spaces, err := s.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return buildTree(spaces), nil
}

func buildTree(spaces []Space) []*TreeNode {
	nodes := make(map[string]*TreeNode, len(spaces))
	for i := range spaces {
		nodes[spaces[i].ID] = &TreeNode{Space: spaces[i]}
	}

	var roots []*TreeNode
	for _, sp := range spaces {
		node := nodes[sp.ID]
		if sp.ParentID != "" {
			if parent, ok := nodes[sp.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// Update applies upd to a space. Parent reassignment re-validates the
// whole prospective chain: the new parent must exist, belong to the
// same organization, and must not be the space itself or any of its
// descendants.
func (s *Store) Update(ctx context.Context, id string, upd Update) (*Space, error) {
	sp, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrValidation)
		}
		sp.Name = *upd.Name
	}
	if upd.Description != nil {
		sp.Description = *upd.Description
	}
	if upd.SpaceType != nil {
		sp.SpaceType = *upd.SpaceType
	}
	if upd.ParentID != nil && *upd.ParentID != sp.ParentID {
		if *upd.ParentID != "" {
			parent, err := s.Get(ctx, *upd.ParentID)
			if err != nil {
				return nil, err
			}
			if parent.OrganizationID != sp.OrganizationID {
				return nil, ErrCrossTenant
			}
			if err := detectCycle(ctx, s.Get, sp.ID, *upd.ParentID); err != nil {
				return nil, err
			}
		}
		sp.ParentID = *upd.ParentID
	}

	sp.UpdatedAt = time.Now().UTC()

	tag, err := s.db.Exec(ctx, `
		UPDATE context_spaces
		SET parent_id = $2, name = $3, description = $4, space_type = $5, updated_at = $6
		WHERE id = $1`,
		sp.ID, textOrNull(sp.ParentID), sp.Name, textOrNull(sp.Description),
		textOrNull(sp.SpaceType), sp.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update context space: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return sp, nil
}

// Delete removes a childless space. Embedding records, feature
// requests and scoped conversations are removed by cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	var children int
	if err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM context_spaces WHERE parent_id = $1`, id).Scan(&children); err != nil {
		return fmt.Errorf("failed to count children: %w", err)
	}
	if children > 0 {
		return ErrHasChildren
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM context_spaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete context space: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// getter fetches a space by id; factored out so the tree walks can be
// exercised without a database.
type getter func(ctx context.Context, id string) (*Space, error)

// ancestorChain walks parent references upward from start, immediate
// parent first. The returned chain never contains start itself. A
// dangling parent reference ends the chain; exceeding maxTreeDepth
// truncates it with a warning instead of looping.
func ancestorChain(ctx context.Context, get getter, start *Space, logger *slog.Logger) ([]Space, error) {
	var chain []Space
	parentID := start.ParentID

	for parentID != "" {
		if len(chain) >= maxTreeDepth {
			logger.Warn("ancestor walk exceeded depth cap, truncating",
				"space_id", start.ID, "depth", len(chain))
			break
		}

		parent, err := get(ctx, parentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				break
			}
			return nil, err
		}
		chain = append(chain, *parent)
		parentID = parent.ParentID
	}

	return chain, nil
}

// detectCycle rejects a parent reassignment that would make spaceID
// its own ancestor. It walks from newParentID upward; finding spaceID
// anywhere in that chain, or exceeding the depth cap, is a cycle.
func detectCycle(ctx context.Context, get getter, spaceID, newParentID string) error {
	currentID := newParentID
	for depth := 0; currentID != ""; depth++ {
		if currentID == spaceID {
			return ErrCycle
		}
		if depth >= maxTreeDepth {
			return ErrCycle
		}

		current, err := get(ctx, currentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		currentID = current.ParentID
	}
	return nil
}
