package http

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/budgetvault-backend/internal/http/handlers"
	httpMW "github.com/yungbote/budgetvault-backend/internal/http/middleware"
	"github.com/yungbote/budgetvault-backend/internal/observability"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware  *httpMW.AuthMiddleware
	SnapshotHandler *httpH.SnapshotHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	// Request totals keep the client's exact digits; they feed snapshot hashes.
	binding.EnableDecoderUseNumber = true

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.Authenticate())
	}
	{
		// Snapshots
		if cfg.SnapshotHandler != nil {
			api.POST("/projects/:project_id/snapshots", cfg.SnapshotHandler.CreateSnapshot)
			api.GET("/projects/:project_id/snapshots", cfg.SnapshotHandler.ListSnapshots)
			api.GET("/projects/:project_id/snapshots/active", cfg.SnapshotHandler.GetActiveSnapshot)
			api.GET("/projects/:project_id/snapshots/audit", cfg.SnapshotHandler.AuditSnapshots)

			api.GET("/snapshots/:id", cfg.SnapshotHandler.GetSnapshot)
			api.GET("/snapshots/:id/lineage", cfg.SnapshotHandler.GetSnapshotLineage)
			api.POST("/snapshots/:id/restore", cfg.SnapshotHandler.RestoreSnapshot)
			api.POST("/snapshots/:id/unlock", cfg.SnapshotHandler.UnlockSnapshot)
			api.DELETE("/snapshots/:id", cfg.SnapshotHandler.DeleteSnapshot)
		}
	}

	return r
}
