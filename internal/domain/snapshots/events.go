package snapshots

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSnapshotCreated  = "snapshot.created"
	EventSnapshotUnlocked = "snapshot.unlocked"
	EventSnapshotRestored = "snapshot.restored"
	EventSnapshotDeleted  = "snapshot.deleted"
)

// Event is published after a snapshot write has committed.
type Event struct {
	Type       string     `json:"type"`
	SnapshotID uuid.UUID  `json:"snapshot_id"`
	ProjectID  string     `json:"project_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	IsLocked   bool       `json:"is_locked"`
	Hash       string     `json:"hash,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// EventFor builds an event describing row.
func EventFor(eventType string, row *Snapshot, at time.Time) Event {
	ev := Event{Type: eventType, OccurredAt: at.UTC()}
	if row == nil {
		return ev
	}
	ev.SnapshotID = row.ID
	ev.ProjectID = row.ProjectID
	ev.ParentID = row.ParentID
	ev.IsLocked = row.IsLocked
	ev.Hash = row.Hash
	return ev
}
