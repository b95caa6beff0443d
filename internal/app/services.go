package app

import (
	"gorm.io/gorm"

	snapcore "github.com/yungbote/budgetvault-backend/internal/modules/snapshots"
	"github.com/yungbote/budgetvault-backend/internal/observability"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
	"github.com/yungbote/budgetvault-backend/internal/services"
)

type Services struct {
	Auth     services.AuthService
	Snapshot services.SnapshotService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	factory := snapcore.NewFactory(snapcore.FactoryConfig{
		TotalField: cfg.Snapshot.TotalField,
	})
	return Services{
		Auth:     services.NewAuthService(log, cfg.JWTSecretKey),
		Snapshot: services.NewSnapshotService(db, log, repos.Snapshot, factory, clients.EventBus, metrics),
	}
}
