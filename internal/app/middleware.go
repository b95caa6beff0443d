package app

import (
	httpMW "github.com/yungbote/budgetvault-backend/internal/http/middleware"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth, cfg.AuthRequired),
	}
}
