package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/budgetvault-backend/internal/http/handlers"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Snapshot *httpH.SnapshotHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Snapshot: httpH.NewSnapshotHandler(log, services.Snapshot),
	}
}
