package snapshots

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Snapshot is an append-only version of a project's cost estimate.
//
// Rows are inserted once and never updated. A locked row is the audit record;
// an unlocked row is a draft forked from a locked ancestor and is the only
// kind that may be deleted.
type Snapshot struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID string    `gorm:"column:project_id;type:text;not null;index:idx_estimate_snapshot_project_created,priority:1" json:"project_id"`
	Name      string    `gorm:"column:name;type:text;not null" json:"name"`

	// Hash is the lowercase hex SHA-256 of the canonical positions + header_kpi encoding.
	Hash      string  `gorm:"column:hash;type:char(64);not null;index" json:"hash"`
	CreatedBy *string `gorm:"column:created_by;type:text" json:"created_by,omitempty"`

	Positions datatypes.JSON `gorm:"column:positions;type:jsonb;not null" json:"positions"`
	HeaderKPI datatypes.JSON `gorm:"column:header_kpi;type:jsonb;not null" json:"header_kpi"`

	Description  string `gorm:"column:description;type:text;not null;default:''" json:"description"`
	UnlockReason string `gorm:"column:unlock_reason;type:text;not null;default:''" json:"unlock_reason,omitempty"`

	IsLocked    bool    `gorm:"column:is_locked;not null;index" json:"is_locked"`
	TotalAtLock float64 `gorm:"column:total_at_lock;not null" json:"total_at_lock"`

	ParentID *uuid.UUID `gorm:"column:parent_id;type:uuid;index" json:"parent_id,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_estimate_snapshot_project_created,priority:2" json:"created_at"`
}

func (Snapshot) TableName() string { return "estimate_snapshot" }

// BeforeUpdate rejects every UPDATE issued through GORM against this table.
func (s *Snapshot) BeforeUpdate(tx *gorm.DB) error {
	return NewError(CodeInvariantViolation, "snapshot.update", "snapshots are immutable", nil)
}

// State reports the lifecycle state name used in events and API payloads.
func (s *Snapshot) State() string {
	if s == nil {
		return ""
	}
	if s.IsLocked {
		return StateLocked
	}
	return StateDraft
}

const (
	StateLocked = "locked"
	StateDraft  = "draft"
)

// Position is one line item of an estimate. Only its id and total fields are
// interpreted; everything else is carried through opaquely.
type Position map[string]any

// HeaderKPI is the aggregate metrics record of an estimate.
type HeaderKPI map[string]any
