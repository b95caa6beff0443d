package db

import (
	"fmt"

	"gorm.io/gorm"

	domain "github.com/yungbote/budgetvault-backend/internal/domain/snapshots"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Snapshot{},
	)
}

// EnsureSnapshotGuards adds the active-snapshot index and an UPDATE trigger so
// rows stay immutable even for writes that bypass GORM hooks.
func EnsureSnapshotGuards(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_estimate_snapshot_project_locked_created
		ON estimate_snapshot(project_id, is_locked, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_estimate_snapshot_project_locked_created: %w", err)
	}

	switch db.Dialector.Name() {
	case DriverPostgres:
		if err := db.Exec(`
			CREATE OR REPLACE FUNCTION estimate_snapshot_reject_update() RETURNS trigger AS $$
			BEGIN
				RAISE EXCEPTION 'snapshots are immutable' USING ERRCODE = 'restrict_violation';
			END;
			$$ LANGUAGE plpgsql;
		`).Error; err != nil {
			return fmt.Errorf("create estimate_snapshot_reject_update: %w", err)
		}
		if err := db.Exec(`DROP TRIGGER IF EXISTS trg_estimate_snapshot_immutable ON estimate_snapshot;`).Error; err != nil {
			return fmt.Errorf("drop trg_estimate_snapshot_immutable: %w", err)
		}
		if err := db.Exec(`
			CREATE TRIGGER trg_estimate_snapshot_immutable
			BEFORE UPDATE ON estimate_snapshot
			FOR EACH ROW EXECUTE FUNCTION estimate_snapshot_reject_update();
		`).Error; err != nil {
			return fmt.Errorf("create trg_estimate_snapshot_immutable: %w", err)
		}
	case DriverSQLite:
		if err := db.Exec(`
			CREATE TRIGGER IF NOT EXISTS trg_estimate_snapshot_immutable
			BEFORE UPDATE ON estimate_snapshot
			BEGIN
				SELECT RAISE(ABORT, 'snapshots are immutable');
			END;
		`).Error; err != nil {
			return fmt.Errorf("create trg_estimate_snapshot_immutable: %w", err)
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...", "driver", s.driver)
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureSnapshotGuards(s.db); err != nil {
		s.log.Error("Snapshot guard migration failed", "error", err)
		return err
	}
	return nil
}
