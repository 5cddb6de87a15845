package db

import (
	"github.com/yungbote/studydesk-backend/internal/domain/notes"
	"github.com/yungbote/studydesk-backend/internal/domain/study"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Uploaded notes
		&notes.Document{},

		// Study content
		&study.Flashcard{},
		&study.Quiz{},
		&study.QuizQuestion{},
		&study.QuizAttempt{},

		// Planner
		&study.Task{},
	)
}
