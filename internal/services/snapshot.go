package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	repos "github.com/yungbote/budgetvault-backend/internal/data/repos/snapshots"
	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
	snapcore "github.com/yungbote/budgetvault-backend/internal/modules/snapshots"
	"github.com/yungbote/budgetvault-backend/internal/observability"
	"github.com/yungbote/budgetvault-backend/internal/platform/dbctx"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

var tracer = otel.Tracer("budgetvault.snapshots")

type CreateSnapshotInput struct {
	ProjectID   string
	Name        string
	Description string
	Positions   []snapcore.Position
	HeaderKPI   snapcore.HeaderKPI
	CreatedBy   *string
}

// AuditReport is the result of re-verifying every snapshot of a project.
type AuditReport struct {
	ProjectID string                  `json:"project_id"`
	Checked   int                     `json:"checked"`
	Valid     int                     `json:"valid"`
	Failures  []snapcore.Verification `json:"failures"`
}

// SnapshotNotifier receives an event for every committed write.
type SnapshotNotifier interface {
	Publish(ctx context.Context, ev domain.Event) error
}

type SnapshotService interface {
	Create(ctx context.Context, in CreateSnapshotInput) (*domain.Snapshot, error)
	List(ctx context.Context, projectID string) ([]snapcore.Entry, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Snapshot, snapcore.Verification, error)
	Restore(ctx context.Context, id uuid.UUID, comment string, actor *string) (*snapcore.Restored, error)
	Unlock(ctx context.Context, id uuid.UUID, reason string, actor *string) (*domain.Snapshot, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Active(ctx context.Context, projectID string) (*domain.Snapshot, error)
	Lineage(ctx context.Context, id uuid.UUID) ([]*domain.Snapshot, error)
	Audit(ctx context.Context, projectID string) (*AuditReport, error)
}

type snapshotService struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.SnapshotRepo
	factory  *snapcore.Factory
	notifier SnapshotNotifier
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewSnapshotService wires the service. db may be nil, in which case each
// operation runs against the repo without an explicit transaction.
func NewSnapshotService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.SnapshotRepo,
	factory *snapcore.Factory,
	notifier SnapshotNotifier,
	metrics *observability.Metrics,
) SnapshotService {
	if factory == nil {
		factory = snapcore.NewFactory(snapcore.FactoryConfig{})
	}
	return &snapshotService{
		db:       db,
		log:      baseLog.With("service", "SnapshotService"),
		repo:     repo,
		factory:  factory,
		notifier: notifier,
		metrics:  metrics,
		now:      time.Now,
	}
}

func (s *snapshotService) inTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if s.db == nil {
		return fn(dbctx.Context{Ctx: ctx})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

func (s *snapshotService) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, func(error)) {
	ctx, span := tracer.Start(ctx, "snapshots."+op, trace.WithAttributes(attrs...))
	began := time.Now()
	return ctx, span, func(err error) {
		result := "ok"
		if err != nil {
			result = string(domain.CodeOf(err))
			if result == "" {
				result = string(domain.CodeInternal)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.metrics.ObserveSnapshotOp(op, result, time.Since(began))
		span.End()
	}
}

func (s *snapshotService) publish(ctx context.Context, eventType string, row *domain.Snapshot) {
	if s.notifier == nil || row == nil {
		return
	}
	ev := domain.EventFor(eventType, row, s.now())
	err := s.notifier.Publish(ctx, ev)
	s.metrics.IncEventPublished(eventType, err == nil)
	if err != nil {
		s.log.Warn("snapshot event publish failed",
			"event", eventType,
			"snapshot_id", row.ID,
			"error", err,
		)
	}
}

func (s *snapshotService) checkIntegrity(source string, v snapcore.Verification) {
	if v.Valid {
		return
	}
	s.metrics.IncIntegrityFailure(source)
	s.log.Warn("snapshot integrity mismatch",
		"snapshot_id", v.SnapshotID,
		"expected_hash", v.ExpectedHash,
		"actual_hash", v.ActualHash,
		"verify_error", v.Error,
		"source", source,
	)
}

func (s *snapshotService) load(dbc dbctx.Context, op string, id uuid.UUID) (*domain.Snapshot, error) {
	if id == uuid.Nil {
		return nil, domain.ValidationError(op, "snapshot id is required")
	}
	row, err := s.repo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, domain.NotFoundError(op, id)
	}
	return row, nil
}

func (s *snapshotService) Create(ctx context.Context, in CreateSnapshotInput) (_ *domain.Snapshot, err error) {
	const op = "create"
	ctx, _, done := s.start(ctx, op, attribute.String("project_id", in.ProjectID))
	defer func() { done(err) }()

	row, err := s.factory.Create(in.ProjectID, in.Positions, in.HeaderKPI, snapcore.CreateOptions{
		Name:        in.Name,
		Description: in.Description,
		CreatedBy:   in.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	if err = s.inTx(ctx, func(dbc dbctx.Context) error {
		return s.repo.Create(dbc, row)
	}); err != nil {
		return nil, err
	}
	s.log.Info("snapshot created",
		"snapshot_id", row.ID,
		"project_id", row.ProjectID,
		"positions", len(in.Positions),
		"total_at_lock", row.TotalAtLock,
		"created_by", row.CreatedBy,
	)
	s.publish(ctx, domain.EventSnapshotCreated, row)
	return row, nil
}

func (s *snapshotService) List(ctx context.Context, projectID string) (_ []snapcore.Entry, err error) {
	const op = "list"
	ctx, _, done := s.start(ctx, op, attribute.String("project_id", projectID))
	defer func() { done(err) }()

	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, domain.ValidationError(op, "project_id is required")
	}
	rows, err := s.repo.ListByProjectID(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return nil, err
	}
	return snapcore.ListWithDeltas(rows), nil
}

func (s *snapshotService) Get(ctx context.Context, id uuid.UUID) (_ *domain.Snapshot, _ snapcore.Verification, err error) {
	const op = "get"
	ctx, _, done := s.start(ctx, op, attribute.String("snapshot_id", id.String()))
	defer func() { done(err) }()

	row, err := s.load(dbctx.Context{Ctx: ctx}, op, id)
	if err != nil {
		return nil, snapcore.Verification{}, err
	}
	v := s.factory.Verify(row)
	s.checkIntegrity(op, v)
	return row, v, nil
}

func (s *snapshotService) Restore(ctx context.Context, id uuid.UUID, comment string, actor *string) (_ *snapcore.Restored, err error) {
	const op = "restore"
	ctx, _, done := s.start(ctx, op, attribute.String("snapshot_id", id.String()))
	defer func() { done(err) }()

	var out *snapcore.Restored
	err = s.inTx(ctx, func(dbc dbctx.Context) error {
		source, err := s.load(dbc, op, id)
		if err != nil {
			return err
		}
		v := s.factory.Verify(source)
		s.checkIntegrity(op, v)
		if !v.Valid {
			return domain.NewError(domain.CodeConflict, op, "source snapshot failed integrity check", nil)
		}
		restored, err := s.factory.Restore(source, comment, actor)
		if err != nil {
			return err
		}
		if err := s.repo.Create(dbc, restored.Snapshot); err != nil {
			return err
		}
		out = restored
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("snapshot restored",
		"snapshot_id", out.Snapshot.ID,
		"parent_id", id,
		"project_id", out.Snapshot.ProjectID,
		"created_by", out.Snapshot.CreatedBy,
	)
	s.publish(ctx, domain.EventSnapshotRestored, out.Snapshot)
	return out, nil
}

func (s *snapshotService) Unlock(ctx context.Context, id uuid.UUID, reason string, actor *string) (_ *domain.Snapshot, err error) {
	const op = "unlock"
	ctx, _, done := s.start(ctx, op, attribute.String("snapshot_id", id.String()))
	defer func() { done(err) }()

	if strings.TrimSpace(reason) == "" {
		return nil, domain.ValidationError(op, "reason is required")
	}
	var draft *domain.Snapshot
	err = s.inTx(ctx, func(dbc dbctx.Context) error {
		source, err := s.load(dbc, op, id)
		if err != nil {
			return err
		}
		// Damaged sources still fork into a draft; the mismatch is recorded.
		s.checkIntegrity(op, s.factory.Verify(source))
		row, err := s.factory.Fork(source, reason, actor)
		if err != nil {
			return err
		}
		if err := s.repo.Create(dbc, row); err != nil {
			return err
		}
		draft = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("snapshot unlocked",
		"snapshot_id", draft.ID,
		"parent_id", id,
		"project_id", draft.ProjectID,
		"created_by", draft.CreatedBy,
	)
	s.publish(ctx, domain.EventSnapshotUnlocked, draft)
	return draft, nil
}

func (s *snapshotService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	const op = "delete"
	ctx, _, done := s.start(ctx, op, attribute.String("snapshot_id", id.String()))
	defer func() { done(err) }()

	if id == uuid.Nil {
		return domain.ValidationError(op, "snapshot id is required")
	}
	var deleted *domain.Snapshot
	err = s.inTx(ctx, func(dbc dbctx.Context) error {
		row, err := s.repo.GetByID(dbc, id)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteDraft(dbc, id); err != nil {
			return err
		}
		deleted = row
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("snapshot draft deleted", "snapshot_id", id)
	s.publish(ctx, domain.EventSnapshotDeleted, deleted)
	return nil
}

func (s *snapshotService) Active(ctx context.Context, projectID string) (_ *domain.Snapshot, err error) {
	const op = "active"
	ctx, _, done := s.start(ctx, op, attribute.String("project_id", projectID))
	defer func() { done(err) }()

	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, domain.ValidationError(op, "project_id is required")
	}
	return s.repo.GetActiveByProjectID(dbctx.Context{Ctx: ctx}, projectID)
}

func (s *snapshotService) Lineage(ctx context.Context, id uuid.UUID) (_ []*domain.Snapshot, err error) {
	const op = "lineage"
	ctx, _, done := s.start(ctx, op, attribute.String("snapshot_id", id.String()))
	defer func() { done(err) }()

	dbc := dbctx.Context{Ctx: ctx}
	row, err := s.load(dbc, op, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByProjectID(dbc, row.ProjectID)
	if err != nil {
		return nil, err
	}
	chain := snapcore.Lineage(rows, id)
	if len(chain) == 0 {
		// The row was read above, so a listing without it is a racing delete.
		return []*domain.Snapshot{row}, nil
	}
	return chain, nil
}

func (s *snapshotService) Audit(ctx context.Context, projectID string) (_ *AuditReport, err error) {
	const op = "audit"
	ctx, span, done := s.start(ctx, op, attribute.String("project_id", projectID))
	defer func() { done(err) }()

	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, domain.ValidationError(op, "project_id is required")
	}
	rows, err := s.repo.ListByProjectID(dbctx.Context{Ctx: ctx}, projectID)
	if err != nil {
		return nil, err
	}
	report := &AuditReport{ProjectID: projectID, Failures: []snapcore.Verification{}}
	for _, row := range rows {
		if row == nil {
			continue
		}
		report.Checked++
		v := s.factory.Verify(row)
		if v.Valid {
			report.Valid++
			continue
		}
		s.checkIntegrity(op, v)
		report.Failures = append(report.Failures, v)
	}
	span.SetAttributes(
		attribute.Int("audit.checked", report.Checked),
		attribute.Int("audit.failures", len(report.Failures)),
	)
	return report, nil
}
