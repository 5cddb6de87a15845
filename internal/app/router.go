package app

import (
	apphttp "github.com/yungbote/studydesk-backend/internal/http"
	"github.com/yungbote/studydesk-backend/internal/observability"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *apphttp.Server {
	var serviceName string
	if cfg.OtelExporter != observability.ExporterNone {
		serviceName = cfg.OtelServiceName
	}
	if !cfg.MetricsEnabled {
		metrics = nil
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSOrigins,
		AuthMiddleware:    middleware.Auth,
		GenerationHandler: handlers.Generation,
		DoubtHandler:      handlers.Doubt,
		DocumentHandler:   handlers.Document,
		FlashcardHandler:  handlers.Flashcard,
		QuizHandler:       handlers.Quiz,
		TaskHandler:       handlers.Task,
		DashboardHandler:  handlers.Dashboard,
		HealthHandler:     handlers.Health,
	})
}
