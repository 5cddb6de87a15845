package study

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DifficultyUnset  = ""
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyForgot = "forgot"
)

// ValidDifficulty reports whether d is a rating a reviewer may assign.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyForgot:
		return true
	}
	return false
}

type Flashcard struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`

	Question string `gorm:"type:text;not null" json:"question"`
	Answer   string `gorm:"type:text;not null" json:"answer"`
	Subject  string `gorm:"type:text;not null;default:'';index" json:"subject"`

	// SourceName is the filename (or label) the card was generated from.
	SourceName string `gorm:"type:text;not null;default:''" json:"source_name"`

	Difficulty string `gorm:"type:text;not null;default:''" json:"difficulty"`
	Bookmarked bool   `gorm:"not null;default:false" json:"bookmarked"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Flashcard) TableName() string { return "flashcard" }

func (f *Flashcard) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
