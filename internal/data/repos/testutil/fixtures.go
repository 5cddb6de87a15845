package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/studydesk-backend/internal/domain/notes"
	"github.com/yungbote/studydesk-backend/internal/domain/study"
)

func SeedFlashcard(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, subject string, at time.Time) *study.Flashcard {
	tb.Helper()
	fc := &study.Flashcard{
		OwnerID:   ownerID,
		Question:  "q-" + subject,
		Answer:    "a-" + subject,
		Subject:   subject,
		CreatedAt: at,
	}
	if err := tx.WithContext(ctx).Create(fc).Error; err != nil {
		tb.Fatalf("seed flashcard: %v", err)
	}
	return fc
}

func SeedTask(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, title string, completed bool, at time.Time) *study.Task {
	tb.Helper()
	t := &study.Task{
		OwnerID:   ownerID,
		Title:     title,
		Icon:      study.TaskIconCustom,
		Completed: completed,
		CreatedAt: at,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed task: %v", err)
	}
	return t
}

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, name, text string) *notes.Document {
	tb.Helper()
	d := &notes.Document{
		OwnerID:  ownerID,
		FileName: name,
		MimeType: "text/plain",
		Status:   notes.StatusComplete,
		Text:     text,
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}
