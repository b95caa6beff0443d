package snapshots

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
)

type FactoryConfig struct {
	// TotalField is the position key summed into TotalAtLock.
	TotalField string
	NewID      func() uuid.UUID
	Now        func() time.Time
}

// Factory builds new snapshot rows. It never persists anything.
type Factory struct {
	canon      Canonicalizer
	totalField string
	newID      func() uuid.UUID
	now        func() time.Time
}

type CreateOptions struct {
	Name        string
	Description string
	CreatedBy   *string

	// ParentID and Draft are set by Fork and Restore.
	ParentID *uuid.UUID
	Draft    bool
}

func NewFactory(cfg FactoryConfig) *Factory {
	f := &Factory{
		canon:      Canonicalizer{},
		totalField: strings.TrimSpace(cfg.TotalField),
		newID:      cfg.NewID,
		now:        cfg.Now,
	}
	if f.totalField == "" {
		f.totalField = DefaultTotalField
	}
	if f.newID == nil {
		f.newID = func() uuid.UUID { return uuid.Must(uuid.NewV7()) }
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Canonicalizer exposes the serializer the factory hashes with.
func (f *Factory) Canonicalizer() Canonicalizer { return f.canon }

// Create builds a locked snapshot (or a draft when opts.Draft is set).
func (f *Factory) Create(projectID string, positions []Position, kpi HeaderKPI, opts CreateOptions) (*Snapshot, error) {
	const op = "snapshot.create"
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, domain.ValidationError(op, "project_id is required")
	}
	if positions == nil {
		return nil, domain.ValidationError(op, "positions are required")
	}

	if kpi == nil {
		kpi = HeaderKPI{}
	}
	positionsJSON, err := json.Marshal(positions)
	if err != nil {
		return nil, domain.ValidationError(op, "positions: "+err.Error())
	}
	kpiJSON, err := json.Marshal(kpi)
	if err != nil {
		return nil, domain.ValidationError(op, "header_kpi: "+err.Error())
	}

	// Hash the stored bytes as Verify will read them back, not the caller's values.
	stored, storedKPI, err := DecodePayload(positionsJSON, kpiJSON)
	if err != nil {
		return nil, domain.ValidationError(op, err.Error())
	}
	if stored == nil {
		stored = []Position{}
	}
	canonical, ordered, err := f.canon.encode(stored, storedKPI)
	if err != nil {
		return nil, err
	}
	total, err := SumTotals(ordered, f.totalField)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = fmt.Sprintf("Snapshot %s", f.now().UTC().Format("2006-01-02 15:04:05"))
	}

	return &Snapshot{
		ID:          f.newID(),
		ProjectID:   projectID,
		Name:        name,
		Hash:        Digest(canonical),
		CreatedBy:   normalizeActor(opts.CreatedBy),
		Positions:   datatypes.JSON(positionsJSON),
		HeaderKPI:   datatypes.JSON(kpiJSON),
		Description: strings.TrimSpace(opts.Description),
		IsLocked:    !opts.Draft,
		TotalAtLock: total,
		ParentID:    copyUUID(opts.ParentID),
	}, nil
}

// Verify recomputes the hash of s's stored payload.
func (f *Factory) Verify(s *Snapshot) Verification {
	return verifyWith(f.canon, s)
}

func normalizeActor(actor *string) *string {
	if actor == nil {
		return nil
	}
	v := strings.TrimSpace(*actor)
	if v == "" {
		return nil
	}
	return &v
}

func copyUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyJSON(b datatypes.JSON) datatypes.JSON {
	if b == nil {
		return nil
	}
	out := make(datatypes.JSON, len(b))
	copy(out, b)
	return out
}

func sourceLabel(s *Snapshot) string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	return s.ID.String()
}
