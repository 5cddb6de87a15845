package repos

import (
	"github.com/yungbote/studydesk-backend/internal/data/repos/notes"
	"github.com/yungbote/studydesk-backend/internal/data/repos/study"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type FlashcardRepo = study.FlashcardRepo
type QuizRepo = study.QuizRepo
type TaskRepo = study.TaskRepo
type DocumentRepo = notes.DocumentRepo

type FlashcardFilter = study.FlashcardFilter
type SubjectCount = study.SubjectCount
type DifficultyCount = study.DifficultyCount
type QuizSummary = study.QuizSummary

// Set groups every repository behind one handle for wiring.
type Set struct {
	Flashcards FlashcardRepo
	Quizzes    QuizRepo
	Tasks      TaskRepo
	Documents  DocumentRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Flashcards: study.NewFlashcardRepo(db, log),
		Quizzes:    study.NewQuizRepo(db, log),
		Tasks:      study.NewTaskRepo(db, log),
		Documents:  notes.NewDocumentRepo(db, log),
	}
}
