package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TaskIconFlashcards = "flashcards"
	TaskIconQuiz       = "quiz"
	TaskIconRevise     = "revise"
	TaskIconStudy      = "study"
	TaskIconCustom     = "custom"
)

func ValidTaskIcon(icon string) bool {
	switch icon {
	case TaskIconFlashcards, TaskIconQuiz, TaskIconRevise, TaskIconStudy, TaskIconCustom:
		return true
	}
	return false
}

type Task struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`

	Title       string     `gorm:"type:text;not null" json:"title"`
	Icon        string     `gorm:"type:text;not null;default:'custom'" json:"icon"`
	Completed   bool       `gorm:"not null;default:false;index" json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Task) TableName() string { return "task" }

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
