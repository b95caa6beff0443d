package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
	snapcore "github.com/yungbote/budgetvault-backend/internal/modules/snapshots"
	"github.com/yungbote/budgetvault-backend/internal/observability"
	"github.com/yungbote/budgetvault-backend/internal/platform/dbctx"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

type fakeSnapshotRepo struct {
	rows    map[uuid.UUID]*domain.Snapshot
	order   []uuid.UUID
	clock   time.Time
	creates int
	failOn  string
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{
		rows:  map[uuid.UUID]*domain.Snapshot{},
		clock: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeSnapshotRepo) Create(_ dbctx.Context, row *domain.Snapshot) error {
	if f.failOn == "create" {
		return domain.NewError(domain.CodeRetryable, "fake.create", "boom", nil)
	}
	f.creates++
	if row.CreatedAt.IsZero() {
		f.clock = f.clock.Add(time.Minute)
		row.CreatedAt = f.clock
	}
	cp := *row
	f.rows[row.ID] = &cp
	f.order = append(f.order, row.ID)
	return nil
}

func (f *fakeSnapshotRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Snapshot, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeSnapshotRepo) ListByProjectID(_ dbctx.Context, projectID string) ([]*domain.Snapshot, error) {
	var out []*domain.Snapshot
	for _, id := range f.order {
		row, ok := f.rows[id]
		if ok && row.ProjectID == projectID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSnapshotRepo) GetActiveByProjectID(dbc dbctx.Context, projectID string) (*domain.Snapshot, error) {
	rows, _ := f.ListByProjectID(dbc, projectID)
	for _, r := range rows {
		if r.IsLocked {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeSnapshotRepo) DeleteDraft(_ dbctx.Context, id uuid.UUID) error {
	row, ok := f.rows[id]
	if !ok {
		return domain.NotFoundError("fake.delete", id)
	}
	if row.IsLocked {
		return domain.NewError(domain.CodeInvariantViolation, "fake.delete", "locked snapshots cannot be deleted", nil)
	}
	delete(f.rows, id)
	return nil
}

type recordingNotifier struct {
	events []domain.Event
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, ev domain.Event) error {
	n.events = append(n.events, ev)
	return n.err
}

func newTestSnapshotService(t *testing.T) (SnapshotService, *fakeSnapshotRepo, *recordingNotifier) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	repo := newFakeSnapshotRepo()
	notifier := &recordingNotifier{}
	svc := NewSnapshotService(nil, log, repo, snapcore.NewFactory(snapcore.FactoryConfig{}), notifier, observability.New())
	return svc, repo, notifier
}

func createTestSnapshot(t *testing.T, svc SnapshotService, projectID string, total float64) *domain.Snapshot {
	t.Helper()
	row, err := svc.Create(context.Background(), CreateSnapshotInput{
		ProjectID: projectID,
		Positions: []snapcore.Position{{"id": "p1", "total": total}},
		HeaderKPI: snapcore.HeaderKPI{"currency": "CZK"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return row
}

func TestSnapshotServiceCreatePersistsAndPublishes(t *testing.T) {
	svc, repo, notifier := newTestSnapshotService(t)
	actor := "estimator-1"
	row, err := svc.Create(context.Background(), CreateSnapshotInput{
		ProjectID: "proj-1",
		Name:      "Tender",
		Positions: []snapcore.Position{{"id": "a", "total": 10}, {"id": "b", "total": 5.5}},
		CreatedBy: &actor,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if repo.creates != 1 {
		t.Fatalf("repo creates: want=1 got=%d", repo.creates)
	}
	if !row.IsLocked || row.TotalAtLock != 15.5 || row.CreatedAt.IsZero() {
		t.Fatalf("row: locked=%v total=%v created_at=%v", row.IsLocked, row.TotalAtLock, row.CreatedAt)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != domain.EventSnapshotCreated {
		t.Fatalf("events: got=%+v", notifier.events)
	}
	if notifier.events[0].SnapshotID != row.ID || notifier.events[0].Hash != row.Hash {
		t.Fatalf("event payload: got=%+v", notifier.events[0])
	}
}

func TestSnapshotServiceCreateValidationWritesNothing(t *testing.T) {
	svc, repo, notifier := newTestSnapshotService(t)
	_, err := svc.Create(context.Background(), CreateSnapshotInput{ProjectID: "proj-1"})
	if !domain.IsCode(err, domain.CodeValidation) {
		t.Fatalf("Create(nil positions): want validation got=%v", err)
	}
	if repo.creates != 0 || len(notifier.events) != 0 {
		t.Fatalf("side effects: creates=%d events=%d", repo.creates, len(notifier.events))
	}
}

func TestSnapshotServiceCreateStoreFailureSkipsEvent(t *testing.T) {
	svc, repo, notifier := newTestSnapshotService(t)
	repo.failOn = "create"
	_, err := svc.Create(context.Background(), CreateSnapshotInput{
		ProjectID: "proj-1",
		Positions: []snapcore.Position{},
	})
	if !domain.IsCode(err, domain.CodeRetryable) {
		t.Fatalf("Create: want retryable got=%v", err)
	}
	if len(notifier.events) != 0 {
		t.Fatalf("events: want=0 got=%d", len(notifier.events))
	}
}

func TestSnapshotServicePublishFailureIsNotReturned(t *testing.T) {
	svc, _, notifier := newTestSnapshotService(t)
	notifier.err = errors.New("redis down")
	row := createTestSnapshot(t, svc, "proj-1", 1)
	if row == nil {
		t.Fatalf("Create: want row")
	}
}

func TestSnapshotServiceListDeltas(t *testing.T) {
	svc, _, _ := newTestSnapshotService(t)
	createTestSnapshot(t, svc, "proj-1", 100000)
	createTestSnapshot(t, svc, "proj-1", 150000)
	createTestSnapshot(t, svc, "proj-1", 120000)
	createTestSnapshot(t, svc, "proj-2", 1)

	entries, err := svc.List(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List len: want=3 got=%d", len(entries))
	}
	if entries[0].DeltaToPrevious == nil || *entries[0].DeltaToPrevious != -30000 {
		t.Fatalf("delta[0]: want=-30000 got=%v", entries[0].DeltaToPrevious)
	}
	if entries[1].DeltaToPrevious == nil || *entries[1].DeltaToPrevious != 50000 {
		t.Fatalf("delta[1]: want=50000 got=%v", entries[1].DeltaToPrevious)
	}
	if entries[2].DeltaToPrevious != nil {
		t.Fatalf("delta[2]: want=nil got=%v", *entries[2].DeltaToPrevious)
	}
}

func TestSnapshotServiceGetVerifies(t *testing.T) {
	svc, repo, _ := newTestSnapshotService(t)
	row := createTestSnapshot(t, svc, "proj-1", 42)

	got, v, err := svc.Get(context.Background(), row.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != row.ID || !v.Valid {
		t.Fatalf("Get: id=%s valid=%v", got.ID, v.Valid)
	}

	repo.rows[row.ID].Positions = datatypes.JSON(`[{"id":"p1","total":43}]`)
	_, v, err = svc.Get(context.Background(), row.ID)
	if err != nil {
		t.Fatalf("Get(tampered): mismatch must not be an error, got=%v", err)
	}
	if v.Valid || v.ExpectedHash != row.Hash || v.ActualHash == row.Hash {
		t.Fatalf("Get(tampered): got=%+v", v)
	}

	if _, _, err := svc.Get(context.Background(), uuid.New()); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("Get(unknown): want not_found got=%v", err)
	}
}

func TestSnapshotServiceUnlock(t *testing.T) {
	svc, repo, notifier := newTestSnapshotService(t)
	source := createTestSnapshot(t, svc, "proj-1", 10)
	notifier.events = nil

	for _, reason := range []string{"", "   "} {
		if _, err := svc.Unlock(context.Background(), source.ID, reason, nil); !domain.IsCode(err, domain.CodeValidation) {
			t.Fatalf("Unlock(%q): want validation got=%v", reason, err)
		}
	}
	if _, err := svc.Unlock(context.Background(), uuid.New(), "client revision", nil); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("Unlock(unknown): want not_found got=%v", err)
	}
	if repo.creates != 1 {
		t.Fatalf("failed unlocks wrote rows: creates=%d", repo.creates)
	}

	draft, err := svc.Unlock(context.Background(), source.ID, "client revision", nil)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if draft.IsLocked || draft.ParentID == nil || *draft.ParentID != source.ID {
		t.Fatalf("draft: locked=%v parent=%v", draft.IsLocked, draft.ParentID)
	}
	if draft.UnlockReason != "client revision" || draft.Hash != source.Hash {
		t.Fatalf("draft: reason=%q hash=%s", draft.UnlockReason, draft.Hash)
	}
	stored := repo.rows[source.ID]
	if !stored.IsLocked || stored.Hash != source.Hash {
		t.Fatalf("source changed: %+v", stored)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != domain.EventSnapshotUnlocked {
		t.Fatalf("events: got=%+v", notifier.events)
	}
}

func TestSnapshotServiceRestore(t *testing.T) {
	svc, repo, _ := newTestSnapshotService(t)
	source := createTestSnapshot(t, svc, "proj-1", 10)

	restored, err := svc.Restore(context.Background(), source.ID, "back to tender", nil)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !restored.Snapshot.IsLocked || *restored.Snapshot.ParentID != source.ID {
		t.Fatalf("restored: %+v", restored.Snapshot)
	}
	if string(restored.Snapshot.Positions) != string(repo.rows[source.ID].Positions) {
		t.Fatalf("payload: want=%s got=%s", repo.rows[source.ID].Positions, restored.Snapshot.Positions)
	}
	if len(restored.Positions) != 1 || restored.HeaderKPI["currency"] != "CZK" {
		t.Fatalf("decoded payload: positions=%v kpi=%v", restored.Positions, restored.HeaderKPI)
	}
	if _, err := svc.Restore(context.Background(), uuid.New(), "", nil); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("Restore(unknown): want not_found got=%v", err)
	}
}

func TestSnapshotServiceDelete(t *testing.T) {
	svc, repo, notifier := newTestSnapshotService(t)
	locked := createTestSnapshot(t, svc, "proj-1", 10)
	draft, err := svc.Unlock(context.Background(), locked.ID, "fix quantities", nil)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	notifier.events = nil

	if err := svc.Delete(context.Background(), locked.ID); !domain.IsCode(err, domain.CodeInvariantViolation) {
		t.Fatalf("Delete(locked): want invariant_violation got=%v", err)
	}
	if _, ok := repo.rows[locked.ID]; !ok {
		t.Fatalf("locked row removed")
	}
	if err := svc.Delete(context.Background(), draft.ID); err != nil {
		t.Fatalf("Delete(draft): %v", err)
	}
	if _, ok := repo.rows[draft.ID]; ok {
		t.Fatalf("draft row still present")
	}
	if err := svc.Delete(context.Background(), draft.ID); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("Delete(again): want not_found got=%v", err)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != domain.EventSnapshotDeleted {
		t.Fatalf("events: got=%+v", notifier.events)
	}
}

func TestSnapshotServiceActiveSkipsDrafts(t *testing.T) {
	svc, _, _ := newTestSnapshotService(t)
	if row, err := svc.Active(context.Background(), "proj-1"); err != nil || row != nil {
		t.Fatalf("Active(empty): row=%v err=%v", row, err)
	}
	locked := createTestSnapshot(t, svc, "proj-1", 10)
	if _, err := svc.Unlock(context.Background(), locked.ID, "edit", nil); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	row, err := svc.Active(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if row == nil || row.ID != locked.ID {
		t.Fatalf("Active: want=%s got=%v", locked.ID, row)
	}
}

func TestSnapshotServiceLineage(t *testing.T) {
	svc, _, _ := newTestSnapshotService(t)
	root := createTestSnapshot(t, svc, "proj-1", 10)
	draft, err := svc.Unlock(context.Background(), root.ID, "edit", nil)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	restored, err := svc.Restore(context.Background(), draft.ID, "", nil)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	chain, err := svc.Lineage(context.Background(), restored.Snapshot.ID)
	if err != nil {
		t.Fatalf("Lineage: %v", err)
	}
	want := []uuid.UUID{restored.Snapshot.ID, draft.ID, root.ID}
	if len(chain) != len(want) {
		t.Fatalf("Lineage len: want=%d got=%d", len(want), len(chain))
	}
	for i := range want {
		if chain[i].ID != want[i] {
			t.Fatalf("Lineage[%d]: want=%s got=%s", i, want[i], chain[i].ID)
		}
	}
}

func TestSnapshotServiceAudit(t *testing.T) {
	svc, repo, _ := newTestSnapshotService(t)
	good := createTestSnapshot(t, svc, "proj-1", 10)
	bad := createTestSnapshot(t, svc, "proj-1", 20)
	repo.rows[bad.ID].HeaderKPI = datatypes.JSON(`{"currency":"EUR"}`)

	report, err := svc.Audit(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if report.Checked != 2 || report.Valid != 1 || len(report.Failures) != 1 {
		t.Fatalf("Audit: got=%+v", report)
	}
	if report.Failures[0].SnapshotID != bad.ID {
		t.Fatalf("Audit failure: want=%s got=%s (good=%s)", bad.ID, report.Failures[0].SnapshotID, good.ID)
	}
}

func integrityFailures(t *testing.T, m *observability.Metrics, source string) float64 {
	t.Helper()
	mfs, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "snapshot_integrity_failures_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "source" && l.GetValue() == source {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestSnapshotServiceChecksSourceIntegrity(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	repo := newFakeSnapshotRepo()
	notifier := &recordingNotifier{}
	metrics := observability.New()
	svc := NewSnapshotService(nil, log, repo, snapcore.NewFactory(snapcore.FactoryConfig{}), notifier, metrics)

	source := createTestSnapshot(t, svc, "proj-1", 42)
	repo.rows[source.ID].Positions = datatypes.JSON(`[{"id":"p1","total":4200}]`)
	creates := repo.creates

	if _, err := svc.Restore(context.Background(), source.ID, "", nil); !domain.IsCode(err, domain.CodeConflict) {
		t.Fatalf("Restore(tampered): want conflict got=%v", err)
	}
	if repo.creates != creates {
		t.Fatalf("Restore(tampered) wrote a row: creates=%d", repo.creates)
	}
	if got := integrityFailures(t, metrics, "restore"); got != 1 {
		t.Fatalf("restore integrity failures: want=1 got=%v", got)
	}

	draft, err := svc.Unlock(context.Background(), source.ID, "fix quantities", nil)
	if err != nil {
		t.Fatalf("Unlock(tampered): %v", err)
	}
	if draft.IsLocked {
		t.Fatalf("Unlock(tampered): want draft")
	}
	if got := integrityFailures(t, metrics, "unlock"); got != 1 {
		t.Fatalf("unlock integrity failures: want=1 got=%v", got)
	}
	if len(notifier.events) != 2 || notifier.events[1].Type != domain.EventSnapshotUnlocked {
		t.Fatalf("events: got=%+v", notifier.events)
	}
}
