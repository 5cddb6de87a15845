package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/studydesk-backend/internal/data/repos"
	"github.com/yungbote/studydesk-backend/internal/generation"
	"github.com/yungbote/studydesk-backend/internal/observability"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
	"github.com/yungbote/studydesk-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Generation services.GenerationService
	Doubt      services.DoubtService
	Document   services.DocumentService
	Flashcard  services.FlashcardService
	Quiz       services.QuizService
	Task       services.TaskService
	Dashboard  services.DashboardService
}

func loadPrompts(path string) (*generation.Prompts, error) {
	if strings.TrimSpace(path) == "" {
		return generation.DefaultPrompts(), nil
	}
	prompts, err := generation.LoadPrompts(path)
	if err != nil {
		return nil, fmt.Errorf("load prompts %s: %w", path, err)
	}
	return prompts, nil
}

func wireServices(log *logger.Logger, cfg Config, repoSet repos.Set, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	prompts, err := loadPrompts(cfg.PromptsFile)
	if err != nil {
		return Services{}, err
	}
	generator := generation.NewGenerator(clients.Gateway, prompts, cfg.GenerationTimeout, log)

	// A nil *supabase.Storage must not become a non-nil interface.
	var store services.ObjectStore
	if clients.Storage != nil {
		store = clients.Storage
	}

	return Services{
		Auth:       services.NewAuthService(log, cfg.JWTSecret),
		Generation: services.NewGenerationService(log, generator, repoSet, metrics),
		Doubt:      services.NewDoubtService(log, clients.Conversations, clients.Gateway, prompts, cfg.StreamTimeout, metrics),
		Document:   services.NewDocumentService(log, repoSet.Documents, store, metrics),
		Flashcard:  services.NewFlashcardService(log, repoSet.Flashcards),
		Quiz:       services.NewQuizService(log, repoSet.Quizzes),
		Task:       services.NewTaskService(log, repoSet.Tasks),
		Dashboard:  services.NewDashboardService(log, repoSet),
	}, nil
}
