package snapshots

import (
	"fmt"
	"strings"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
)

// Fork returns an unlocked draft carrying source's payload. source is not touched.
func (f *Factory) Fork(source *Snapshot, reason string, actor *string) (*Snapshot, error) {
	const op = "snapshot.fork"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ValidationError(op, "reason is required")
	}
	if source == nil {
		return nil, domain.ValidationError(op, "source snapshot is required")
	}
	positions, kpi, err := DecodeSnapshotPayload(source)
	if err != nil {
		return nil, domain.Wrap(domain.CodeInternal, op, err)
	}
	if positions == nil {
		positions = []Position{}
	}

	parentID := source.ID
	draft, err := f.Create(source.ProjectID, positions, kpi, CreateOptions{
		Name:        fmt.Sprintf("Draft of %s", sourceLabel(source)),
		Description: "Unlocked: " + reason,
		CreatedBy:   actor,
		ParentID:    &parentID,
		Draft:       true,
	})
	if err != nil {
		return nil, err
	}
	draft.UnlockReason = reason
	if len(source.Positions) > 0 {
		draft.Positions = copyJSON(source.Positions)
	}
	if len(source.HeaderKPI) > 0 {
		draft.HeaderKPI = copyJSON(source.HeaderKPI)
	}
	return draft, nil
}
