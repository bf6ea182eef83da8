package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// recordingDB captures the last query so tests can assert on the SQL
// the store emits. Query fails on purpose; the statement shape is what
// matters here.
type recordingDB struct {
	query string
	args  []any
}

var errNoRows = errors.New("no rows")

func (d *recordingDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.query = sql
	d.args = args
	return nil, errNoRows
}

func (d *recordingDB) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (d *recordingDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errNoRows
}

func TestSearchSimilarBindsLimit(t *testing.T) {
	db := &recordingDB{}
	store := NewStore(db, nil)
	vec := []float32{0.1, 0.2}

	_, _ = store.SearchSimilar(context.Background(), vec, "", 7)
	if !strings.Contains(db.query, "LIMIT $2") {
		t.Errorf("limit not bound: %q", db.query)
	}
	if len(db.args) != 2 || db.args[1] != 7 {
		t.Errorf("args = %v, want vector and limit", db.args)
	}

	_, _ = store.SearchSimilar(context.Background(), vec, "space-1", 7)
	if !strings.Contains(db.query, "LIMIT $3") {
		t.Errorf("limit not bound with space filter: %q", db.query)
	}
	if len(db.args) != 3 || db.args[2] != 7 {
		t.Errorf("args = %v, want vector, space and limit", db.args)
	}
}

func TestSearchDescriptionsBindsLimit(t *testing.T) {
	db := &recordingDB{}
	store := NewStore(db, nil)

	_, _ = store.SearchDescriptions(context.Background(), []float32{0.1}, "org-1", 5)
	if !strings.Contains(db.query, "LIMIT $4") {
		t.Errorf("limit not bound: %q", db.query)
	}
	if len(db.args) != 4 || db.args[3] != 5 {
		t.Errorf("args = %v, want vector, org, source type and limit", db.args)
	}
}
