package snapshots

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func snap(total float64, locked bool, at time.Time) *Snapshot {
	return &Snapshot{ID: uuid.New(), ProjectID: "proj-1", TotalAtLock: total, IsLocked: locked, CreatedAt: at}
}

func TestListWithDeltasNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := snap(100000, true, base)
	b := snap(150000, true, base.Add(time.Hour))
	c := snap(120000, true, base.Add(2*time.Hour))

	entries := ListWithDeltas([]*Snapshot{b, a, c})
	if len(entries) != 3 {
		t.Fatalf("len: want=3 got=%d", len(entries))
	}
	if entries[0].Snapshot != c || entries[1].Snapshot != b || entries[2].Snapshot != a {
		t.Fatalf("order: want C,B,A")
	}
	if d := entries[0].DeltaToPrevious; d == nil || *d != -30000 {
		t.Fatalf("C delta: want=-30000 got=%v", d)
	}
	if d := entries[1].DeltaToPrevious; d == nil || *d != 50000 {
		t.Fatalf("B delta: want=50000 got=%v", d)
	}
	if entries[2].DeltaToPrevious != nil {
		t.Fatalf("A delta: want nil got=%v", *entries[2].DeltaToPrevious)
	}
}

func TestListWithDeltasIgnoresLineage(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	root := snap(100, true, base)
	other := snap(500, true, base.Add(time.Minute))
	child := snap(100, true, base.Add(2*time.Minute))
	child.ParentID = &root.ID

	entries := ListWithDeltas([]*Snapshot{root, other, child})
	if d := entries[0].DeltaToPrevious; d == nil || *d != -400 {
		t.Fatalf("child delta should be against chronological neighbour: got=%v", d)
	}
}

func TestListWithDeltasEmpty(t *testing.T) {
	if got := ListWithDeltas(nil); len(got) != 0 {
		t.Fatalf("want empty listing, got %d", len(got))
	}
}

func TestActiveSelection(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if Active(nil) != nil {
		t.Fatalf("no rows: want nil")
	}
	if Active([]*Snapshot{snap(1, false, base)}) != nil {
		t.Fatalf("only drafts: want nil")
	}

	draft := snap(1, false, base)
	l2 := snap(2, true, base.Add(time.Hour))
	l3 := snap(3, true, base.Add(2*time.Hour))
	if got := Active([]*Snapshot{l3, draft, l2}); got != l3 {
		t.Fatalf("want newest locked row")
	}

	newerDraft := snap(4, false, base.Add(3*time.Hour))
	if got := Active([]*Snapshot{l2, newerDraft, l3}); got != l3 {
		t.Fatalf("drafts must be ignored regardless of timestamp")
	}
}

func TestOrderNewestFirstKeepsTieOrder(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	x := snap(1, true, at)
	y := snap(2, true, at)
	got := OrderNewestFirst([]*Snapshot{x, nil, y})
	if len(got) != 2 || got[0] != x || got[1] != y {
		t.Fatalf("ties should keep input order and nil rows should be dropped")
	}
}

func TestLineageWalksToRoot(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	root := snap(1, true, base)
	draft := snap(1, false, base.Add(time.Minute))
	draft.ParentID = &root.ID
	restored := snap(1, true, base.Add(2*time.Minute))
	restored.ParentID = &draft.ID
	unrelated := snap(9, true, base.Add(3*time.Minute))

	chain := Lineage([]*Snapshot{unrelated, restored, root, draft}, restored.ID)
	if len(chain) != 3 || chain[0] != restored || chain[1] != draft || chain[2] != root {
		t.Fatalf("unexpected chain: %v", chain)
	}
	if got := Lineage([]*Snapshot{root}, uuid.New()); len(got) != 0 {
		t.Fatalf("unknown id: want empty chain")
	}
}

func TestLineageStopsOnCycle(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := snap(1, true, base)
	b := snap(1, true, base)
	a.ParentID = &b.ID
	b.ParentID = &a.ID
	if chain := Lineage([]*Snapshot{a, b}, a.ID); len(chain) != 2 {
		t.Fatalf("cycle: want 2 entries got %d", len(chain))
	}
}
