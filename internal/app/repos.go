package app

import (
	"gorm.io/gorm"

	snapshotrepos "github.com/yungbote/budgetvault-backend/internal/data/repos/snapshots"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

type Repos struct {
	Snapshot snapshotrepos.SnapshotRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Snapshot: snapshotrepos.NewSnapshotRepo(db, log),
	}
}
