package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/studydesk-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studydesk-backend/internal/http/middleware"
	"github.com/yungbote/studydesk-backend/internal/observability"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	GenerationHandler *httpH.GenerationHandler
	DoubtHandler      *httpH.DoubtHandler
	DocumentHandler   *httpH.DocumentHandler
	FlashcardHandler  *httpH.FlashcardHandler
	QuizHandler       *httpH.QuizHandler
	TaskHandler       *httpH.TaskHandler
	DashboardHandler  *httpH.DashboardHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// AI gateway proxies
	if cfg.GenerationHandler != nil {
		api.POST("/generate-content", cfg.GenerationHandler.GenerateContent)
		api.POST("/generations", cfg.GenerationHandler.Create)
	}
	if cfg.DoubtHandler != nil {
		api.POST("/ask-doubt", cfg.DoubtHandler.AskDoubt)

		api.POST("/conversations", cfg.DoubtHandler.Create)
		api.GET("/conversations", cfg.DoubtHandler.List)
		api.GET("/conversations/:id", cfg.DoubtHandler.Get)
		api.POST("/conversations/:id/messages", cfg.DoubtHandler.Ask)
		api.POST("/conversations/:id/cancel", cfg.DoubtHandler.Cancel)
		api.GET("/conversations/:id/export", cfg.DoubtHandler.Export)
		api.DELETE("/conversations/:id", cfg.DoubtHandler.Delete)
	}

	// Notes
	if cfg.DocumentHandler != nil {
		api.POST("/documents", cfg.DocumentHandler.Upload)
		api.GET("/documents", cfg.DocumentHandler.List)
		api.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
	}

	// Flashcards
	if cfg.FlashcardHandler != nil {
		api.GET("/flashcards", cfg.FlashcardHandler.List)
		api.GET("/flashcard-decks", cfg.FlashcardHandler.Decks)
		api.PATCH("/flashcards/:id/difficulty", cfg.FlashcardHandler.Rate)
		api.POST("/flashcards/:id/bookmark", cfg.FlashcardHandler.ToggleBookmark)
		api.DELETE("/flashcards/:id", cfg.FlashcardHandler.Delete)
		api.POST("/study-sessions", cfg.FlashcardHandler.CompleteSession)
	}

	// Quizzes
	if cfg.QuizHandler != nil {
		api.GET("/quizzes", cfg.QuizHandler.List)
		api.GET("/quizzes/:id", cfg.QuizHandler.Get)
		api.POST("/quizzes/:id/attempts", cfg.QuizHandler.Submit)
		api.GET("/quizzes/:id/attempts", cfg.QuizHandler.Attempts)
		api.DELETE("/quizzes/:id", cfg.QuizHandler.Delete)
	}

	// Tasks
	if cfg.TaskHandler != nil {
		api.GET("/tasks", cfg.TaskHandler.Board)
		api.POST("/tasks", cfg.TaskHandler.Add)
		api.DELETE("/tasks", cfg.TaskHandler.ClearCompleted)
		api.POST("/tasks/:id/toggle", cfg.TaskHandler.Toggle)
		api.DELETE("/tasks/:id", cfg.TaskHandler.Delete)
		api.GET("/quick-tasks", cfg.TaskHandler.QuickTasks)
		api.POST("/quick-tasks/:key", cfg.TaskHandler.QuickAdd)
	}

	if cfg.DashboardHandler != nil {
		api.GET("/dashboard", cfg.DashboardHandler.Stats)
	}

	return r
}
