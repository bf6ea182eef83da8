// Package space manages context spaces: tenant-scoped hierarchical
// containers for product artifacts.
//
// The parent chain of a space is a tree invariant enforced at write
// time: Update rejects any reassignment that would introduce a cycle,
// and read-side walks carry an independent depth guard so a corrupted
// chain can never loop forever.
package space

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the referenced space does not exist.
	ErrNotFound = errors.New("context space not found")

	// ErrHasChildren indicates a delete was blocked because child
	// spaces still exist.
	ErrHasChildren = errors.New("context space has children")

	// ErrCycle indicates a parent reassignment would make a space its
	// own ancestor.
	ErrCycle = errors.New("parent chain would form a cycle")

	// ErrCrossTenant indicates the parent belongs to a different
	// organization.
	ErrCrossTenant = errors.New("parent belongs to a different organization")

	// ErrValidation indicates invalid space attributes.
	ErrValidation = errors.New("invalid context space")
)

// maxTreeDepth bounds every parent-chain walk. The write-time cycle
// check keeps the data a tree; this guard is runtime safety, not data
// integrity.
const maxTreeDepth = 32

// Space is a node in a tenant-scoped tree.
type Space struct {
	ID             string
	OrganizationID string
	ParentID       string // empty for root spaces
	Name           string
	Description    string
	SpaceType      string
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Update carries mutable space attributes. Nil fields are left
// unchanged; a non-nil empty ParentID moves the space to the root.
type Update struct {
	Name        *string
	Description *string
	SpaceType   *string
	ParentID    *string
}

// TreeNode is a space with its resolved children.
type TreeNode struct {
	Space
	Children []*TreeNode
}

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
