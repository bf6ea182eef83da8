package space

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prodmap/prodmap/internal/log"
)

// mapGetter serves spaces out of a map, standing in for Store.Get.
func mapGetter(spaces map[string]*Space) getter {
	return func(_ context.Context, id string) (*Space, error) {
		sp, ok := spaces[id]
		if !ok {
			return nil, ErrNotFound
		}
		return sp, nil
	}
}

func chainOf(n int) map[string]*Space {
	spaces := make(map[string]*Space, n)
	for i := range n {
		sp := &Space{ID: fmt.Sprintf("s%d", i), OrganizationID: "org-1", Name: fmt.Sprintf("space %d", i)}
		if i > 0 {
			sp.ParentID = fmt.Sprintf("s%d", i-1)
		}
		spaces[sp.ID] = sp
	}
	return spaces
}

func TestAncestorChainNearestFirst(t *testing.T) {
	spaces := chainOf(4) // s0 <- s1 <- s2 <- s3

	chain, err := ancestorChain(context.Background(), mapGetter(spaces), spaces["s3"], log.NewNop())
	if err != nil {
		t.Fatalf("ancestorChain() = %v", err)
	}

	want := []string{"s2", "s1", "s0"}
	if len(chain) != len(want) {
		t.Fatalf("chain length = %d, want %d", len(chain), len(want))
	}
	for i, id := range want {
		if chain[i].ID != id {
			t.Errorf("chain[%d] = %s, want %s", i, chain[i].ID, id)
		}
	}
}

func TestAncestorChainRoot(t *testing.T) {
	spaces := chainOf(1)

	chain, err := ancestorChain(context.Background(), mapGetter(spaces), spaces["s0"], log.NewNop())
	if err != nil {
		t.Fatalf("ancestorChain() = %v", err)
	}
	if len(chain) != 0 {
		t.Errorf("chain = %v, want empty", chain)
	}
}

func TestAncestorChainDanglingParent(t *testing.T) {
	spaces := chainOf(3)
	delete(spaces, "s1")

	chain, err := ancestorChain(context.Background(), mapGetter(spaces), spaces["s2"], log.NewNop())
	if err != nil {
		t.Fatalf("ancestorChain() = %v", err)
	}
	if len(chain) != 0 {
		t.Errorf("chain = %v, want empty after dangling parent", chain)
	}
}

func TestAncestorChainDepthCap(t *testing.T) {
	// Corrupted data: a and b point at each other. The walk must stop
	// at the cap instead of looping.
	spaces := map[string]*Space{
		"a": {ID: "a", ParentID: "b"},
		"b": {ID: "b", ParentID: "a"},
	}

	chain, err := ancestorChain(context.Background(), mapGetter(spaces), spaces["a"], log.NewNop())
	if err != nil {
		t.Fatalf("ancestorChain() = %v", err)
	}
	if len(chain) != maxTreeDepth {
		t.Errorf("chain length = %d, want %d", len(chain), maxTreeDepth)
	}
}

func TestDetectCycleSelfParent(t *testing.T) {
	spaces := chainOf(2)

	err := detectCycle(context.Background(), mapGetter(spaces), "s1", "s1")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("detectCycle() = %v, want ErrCycle", err)
	}
}

func TestDetectCycleDescendantParent(t *testing.T) {
	spaces := chainOf(4) // moving s0 under s3 would close the loop

	err := detectCycle(context.Background(), mapGetter(spaces), "s0", "s3")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("detectCycle() = %v, want ErrCycle", err)
	}
}

func TestDetectCycleValidMove(t *testing.T) {
	spaces := chainOf(4)
	spaces["other"] = &Space{ID: "other", OrganizationID: "org-1"}

	if err := detectCycle(context.Background(), mapGetter(spaces), "s3", "other"); err != nil {
		t.Fatalf("detectCycle() = %v, want nil", err)
	}
	// Reparenting a leaf higher up the same chain is fine too.
	if err := detectCycle(context.Background(), mapGetter(spaces), "s3", "s1"); err != nil {
		t.Fatalf("detectCycle() = %v, want nil", err)
	}
}

func TestDetectCycleDepthCap(t *testing.T) {
	spaces := map[string]*Space{
		"a": {ID: "a", ParentID: "b"},
		"b": {ID: "b", ParentID: "a"},
	}

	err := detectCycle(context.Background(), mapGetter(spaces), "fresh", "a")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("detectCycle() = %v, want ErrCycle", err)
	}
}

func TestBuildTree(t *testing.T) {
	spaces := []Space{
		{ID: "root-a", Name: "Platform"},
		{ID: "root-b", Name: "Mobile"},
		{ID: "child-1", ParentID: "root-a", Name: "Auth"},
		{ID: "child-2", ParentID: "root-a", Name: "Billing"},
		{ID: "grand-1", ParentID: "child-1", Name: "SSO"},
	}

	roots := buildTree(spaces)
	if len(roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(roots))
	}
	if roots[0].ID != "root-a" || len(roots[0].Children) != 2 {
		t.Errorf("root-a children = %d, want 2", len(roots[0].Children))
	}
	if len(roots[0].Children[0].Children) != 1 {
		t.Errorf("nested child not attached: %+v", roots[0].Children[0])
	}
	if len(roots[1].Children) != 0 {
		t.Errorf("root-b children = %d, want 0", len(roots[1].Children))
	}
}

func TestBuildTreeOrphanPromoted(t *testing.T) {
	spaces := []Space{
		{ID: "a", Name: "A"},
		{ID: "b", ParentID: "gone", Name: "B"},
	}

	roots := buildTree(spaces)
	if len(roots) != 2 {
		t.Fatalf("roots = %d, want 2 (orphan promoted)", len(roots))
	}
}
