package study

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studydesk-backend/internal/domain/study"
	"github.com/yungbote/studydesk-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type FlashcardFilter struct {
	Subject        string
	BookmarkedOnly bool
	Difficulty     *string
}

type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int64  `json:"count"`
}

type DifficultyCount struct {
	Difficulty string `json:"difficulty"`
	Count      int64  `json:"count"`
}

type FlashcardRepo interface {
	Create(dbc dbctx.Context, rows []*types.Flashcard) ([]*types.Flashcard, error)
	GetByID(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Flashcard, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, f FlashcardFilter) ([]*types.Flashcard, error)
	SubjectCounts(dbc dbctx.Context, ownerID uuid.UUID) ([]SubjectCount, error)
	DifficultyCounts(dbc dbctx.Context, ownerID uuid.UUID) ([]DifficultyCount, error)
	CountByOwner(dbc dbctx.Context, ownerID uuid.UUID) (int64, error)
	UpdateFields(dbc dbctx.Context, ownerID, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, ownerID, id uuid.UUID) error
}

type flashcardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFlashcardRepo(db *gorm.DB, log *logger.Logger) FlashcardRepo {
	return &flashcardRepo{db: db, log: log.With("repo", "FlashcardRepo")}
}

// Create inserts all rows in a single statement.
func (r *flashcardRepo) Create(dbc dbctx.Context, rows []*types.Flashcard) ([]*types.Flashcard, error) {
	if len(rows) == 0 {
		return []*types.Flashcard{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *flashcardRepo) GetByID(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Flashcard, error) {
	var out types.Flashcard
	err := dbc.DB(r.db).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("flashcard %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *flashcardRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, f FlashcardFilter) ([]*types.Flashcard, error) {
	q := dbc.DB(r.db).
		Model(&types.Flashcard{}).
		Where("owner_id = ?", ownerID)
	if s := strings.TrimSpace(f.Subject); s != "" {
		q = q.Where("subject = ?", s)
	}
	if f.BookmarkedOnly {
		q = q.Where("bookmarked = ?", true)
	}
	if f.Difficulty != nil {
		q = q.Where("difficulty = ?", *f.Difficulty)
	}
	var out []*types.Flashcard
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *flashcardRepo) SubjectCounts(dbc dbctx.Context, ownerID uuid.UUID) ([]SubjectCount, error) {
	var out []SubjectCount
	if err := dbc.DB(r.db).
		Model(&types.Flashcard{}).
		Select("subject, COUNT(*) AS count").
		Where("owner_id = ?", ownerID).
		Group("subject").
		Order("subject ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *flashcardRepo) DifficultyCounts(dbc dbctx.Context, ownerID uuid.UUID) ([]DifficultyCount, error) {
	var out []DifficultyCount
	if err := dbc.DB(r.db).
		Model(&types.Flashcard{}).
		Select("difficulty, COUNT(*) AS count").
		Where("owner_id = ?", ownerID).
		Group("difficulty").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *flashcardRepo) CountByOwner(dbc dbctx.Context, ownerID uuid.UUID) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.Flashcard{}).
		Where("owner_id = ?", ownerID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *flashcardRepo) UpdateFields(dbc dbctx.Context, ownerID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).
		Model(&types.Flashcard{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("flashcard %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *flashcardRepo) Delete(dbc dbctx.Context, ownerID, id uuid.UUID) error {
	res := dbc.DB(r.db).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&types.Flashcard{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("flashcard %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
