package snapshots

import (
	"fmt"
	"strings"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
)

// Restored is a new locked snapshot plus the payload it restored, so the
// caller can apply it to the working estimate.
type Restored struct {
	Snapshot  *Snapshot  `json:"snapshot"`
	Positions []Position `json:"positions"`
	HeaderKPI HeaderKPI  `json:"header_kpi"`
}

// Restore builds a new locked snapshot copying source's payload.
func (f *Factory) Restore(source *Snapshot, comment string, actor *string) (*Restored, error) {
	const op = "snapshot.restore"
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
	restored, err := f.Create(source.ProjectID, positions, kpi, CreateOptions{
		Name:        fmt.Sprintf("Restored from %s", sourceLabel(source)),
		Description: strings.TrimSpace(comment),
		CreatedBy:   actor,
		ParentID:    &parentID,
	})
	if err != nil {
		return nil, err
	}
	if len(source.Positions) > 0 {
		restored.Positions = copyJSON(source.Positions)
	}
	if len(source.HeaderKPI) > 0 {
		restored.HeaderKPI = copyJSON(source.HeaderKPI)
	}
	return &Restored{Snapshot: restored, Positions: positions, HeaderKPI: kpi}, nil
}
