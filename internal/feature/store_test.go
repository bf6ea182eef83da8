package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTx records the statements a bulk import runs. The embedded
// pgx.Tx satisfies the methods the store never calls.
type fakeTx struct {
	pgx.Tx
	execs      int
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	t.execs++
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	begins int
	tx     *fakeTx
}

func (d *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (d *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (d *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	d.begins++
	d.tx = &fakeTx{}
	return d.tx, nil
}

func TestBulkCreateInsertsAllRows(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db, nil)

	items, err := store.BulkCreate(context.Background(), "space-1", "user-1", []NewItem{
		{Title: "Dark mode"},
		{Title: "CSV export"},
		{Title: "SSO login"},
	})
	if err != nil {
		t.Fatalf("BulkCreate() = %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	if db.begins != 1 {
		t.Errorf("begins = %d, want 1", db.begins)
	}
	if db.tx.execs != 3 {
		t.Errorf("execs = %d, want 3", db.tx.execs)
	}
	if !db.tx.committed {
		t.Error("transaction not committed")
	}
}

func TestBulkCreateRejectsWholeBatchOnBadItem(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db, nil)

	items, err := store.BulkCreate(context.Background(), "space-1", "user-1", []NewItem{
		{Title: "Dark mode"},
		{Title: "   "},
		{Title: "SSO login"},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("BulkCreate() = %v, want ErrValidation", err)
	}

	if items != nil {
		t.Errorf("items = %v, want nil", items)
	}
	if db.begins != 0 {
		t.Errorf("begins = %d, want 0; validation must run before any write", db.begins)
	}
}

func TestBulkCreateEmptyBatchIsNoOp(t *testing.T) {
	db := &fakeDB{}
	store := NewStore(db, nil)

	items, err := store.BulkCreate(context.Background(), "space-1", "user-1", nil)
	if err != nil {
		t.Fatalf("BulkCreate() = %v", err)
	}
	if items != nil || db.begins != 0 {
		t.Errorf("empty batch touched the database: items=%v begins=%d", items, db.begins)
	}
}
