package app

import (
	"github.com/yungbote/studydesk-backend/internal/data/convstore"
	"github.com/yungbote/studydesk-backend/internal/data/db"
	httpH "github.com/yungbote/studydesk-backend/internal/http/handlers"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Generation *httpH.GenerationHandler
	Doubt      *httpH.DoubtHandler
	Document   *httpH.DocumentHandler
	Flashcard  *httpH.FlashcardHandler
	Quiz       *httpH.QuizHandler
	Task       *httpH.TaskHandler
	Dashboard  *httpH.DashboardHandler
}

func wireHandlers(log *logger.Logger, services Services, database *db.Service, conversations convstore.Store) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(map[string]httpH.Pinger{
			"database":      database,
			"conversations": conversations,
		}),
		Generation: httpH.NewGenerationHandler(log, services.Generation),
		Doubt:      httpH.NewDoubtHandler(log, services.Doubt),
		Document:   httpH.NewDocumentHandler(log, services.Document),
		Flashcard:  httpH.NewFlashcardHandler(services.Flashcard),
		Quiz:       httpH.NewQuizHandler(services.Quiz),
		Task:       httpH.NewTaskHandler(services.Task),
		Dashboard:  httpH.NewDashboardHandler(services.Dashboard),
	}
}
