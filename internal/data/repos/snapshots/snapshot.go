package snapshots

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
	"github.com/yungbote/budgetvault-backend/internal/platform/ctxutil"
	"github.com/yungbote/budgetvault-backend/internal/platform/dbctx"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

// SnapshotRepo is insert/read/delete only; rows are never updated.
type SnapshotRepo interface {
	Create(dbc dbctx.Context, row *domain.Snapshot) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Snapshot, error)
	ListByProjectID(dbc dbctx.Context, projectID string) ([]*domain.Snapshot, error)
	GetActiveByProjectID(dbc dbctx.Context, projectID string) (*domain.Snapshot, error)
	DeleteDraft(dbc dbctx.Context, id uuid.UUID) error
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{db: db, log: baseLog.With("repo", "SnapshotRepo")}
}

func (r *snapshotRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctxutil.Default(dbc.Ctx))
}

func (r *snapshotRepo) Create(dbc dbctx.Context, row *domain.Snapshot) error {
	const op = "snapshot_repo.create"
	if row == nil {
		return domain.ValidationError(op, "row is nil")
	}
	if row.ID == uuid.Nil {
		return domain.ValidationError(op, "id is required")
	}
	if strings.TrimSpace(row.ProjectID) == "" {
		return domain.ValidationError(op, "project_id is required")
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.tx(dbc).Create(row).Error; err != nil {
		return MapError(op, err)
	}
	return nil
}

func (r *snapshotRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Snapshot, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*domain.Snapshot
	if err := r.tx(dbc).
		Where("id = ?", id).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, MapError("snapshot_repo.get", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *snapshotRepo) ListByProjectID(dbc dbctx.Context, projectID string) ([]*domain.Snapshot, error) {
	projectID = strings.TrimSpace(projectID)
	var rows []*domain.Snapshot
	if projectID == "" {
		return rows, nil
	}
	if err := r.tx(dbc).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, MapError("snapshot_repo.list", err)
	}
	return rows, nil
}

func (r *snapshotRepo) GetActiveByProjectID(dbc dbctx.Context, projectID string) (*domain.Snapshot, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, nil
	}
	var rows []*domain.Snapshot
	if err := r.tx(dbc).
		Where("project_id = ? AND is_locked = ?", projectID, true).
		Order("created_at DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, MapError("snapshot_repo.active", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// DeleteDraft removes an unlocked row. The lock check and the delete run in
// one transaction; the DELETE is itself conditional on is_locked = false so a
// concurrent delete of the same row surfaces as not found.
func (r *snapshotRepo) DeleteDraft(dbc dbctx.Context, id uuid.UUID) error {
	const op = "snapshot_repo.delete_draft"
	if id == uuid.Nil {
		return domain.NotFoundError(op, id)
	}
	run := func(tx *gorm.DB) error {
		var rows []*domain.Snapshot
		q := tx.Where("id = ?", id).Limit(1)
		if tx.Dialector != nil && tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Find(&rows).Error; err != nil {
			return MapError(op, err)
		}
		if len(rows) == 0 {
			return domain.NotFoundError(op, id)
		}
		if rows[0].IsLocked {
			return domain.NewError(domain.CodeInvariantViolation, op, "locked snapshots cannot be deleted", nil)
		}
		res := tx.Where("id = ? AND is_locked = ?", id, false).Delete(&domain.Snapshot{})
		if res.Error != nil {
			return MapError(op, res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.NotFoundError(op, id)
		}
		return nil
	}
	ctx := ctxutil.Default(dbc.Ctx)
	if dbc.Tx != nil {
		return run(dbc.Tx.WithContext(ctx))
	}
	return r.db.WithContext(ctx).Transaction(run)
}
