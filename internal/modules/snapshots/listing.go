package snapshots

import (
	"sort"

	"github.com/google/uuid"
)

// Entry is one row of a project listing.
type Entry struct {
	Snapshot *Snapshot `json:"snapshot"`
	// DeltaToPrevious is TotalAtLock minus the next older entry's TotalAtLock;
	// nil for the oldest entry.
	DeltaToPrevious *float64 `json:"delta_to_previous"`
}

// OrderNewestFirst returns a copy of rows sorted by CreatedAt descending.
// Equal timestamps keep their input order.
func OrderNewestFirst(rows []*Snapshot) []*Snapshot {
	out := make([]*Snapshot, 0, len(rows))
	for _, r := range rows {
		if r != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ListWithDeltas orders rows newest first and attaches the cost delta to the
// chronologically older neighbour. Lineage (ParentID) is deliberately ignored.
func ListWithDeltas(rows []*Snapshot) []Entry {
	ordered := OrderNewestFirst(rows)
	out := make([]Entry, len(ordered))
	for i, s := range ordered {
		out[i] = Entry{Snapshot: s}
		if i+1 < len(ordered) {
			d := s.TotalAtLock - ordered[i+1].TotalAtLock
			out[i].DeltaToPrevious = &d
		}
	}
	return out
}

// Active returns the most recently created locked snapshot, or nil.
func Active(rows []*Snapshot) *Snapshot {
	for _, s := range OrderNewestFirst(rows) {
		if s.IsLocked {
			return s
		}
	}
	return nil
}

// Lineage walks parent links from id up to its root. The first element is
// the snapshot itself. Missing parents or cycles end the walk.
func Lineage(rows []*Snapshot, id uuid.UUID) []*Snapshot {
	byID := make(map[uuid.UUID]*Snapshot, len(rows))
	for _, r := range rows {
		if r != nil {
			byID[r.ID] = r
		}
	}
	var chain []*Snapshot
	seen := make(map[uuid.UUID]bool)
	cur, ok := byID[id]
	for ok && !seen[cur.ID] {
		seen[cur.ID] = true
		chain = append(chain, cur)
		if cur.ParentID == nil {
			break
		}
		cur, ok = byID[*cur.ParentID]
	}
	return chain
}
