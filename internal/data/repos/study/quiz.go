package study

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studydesk-backend/internal/domain/study"
	"github.com/yungbote/studydesk-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type QuizSummary struct {
	types.Quiz
	QuestionCount int64 `json:"question_count"`
}

type QuizRepo interface {
	// Create inserts the quiz row only; questions are never cascaded.
	Create(dbc dbctx.Context, quiz *types.Quiz) error
	CreateQuestions(dbc dbctx.Context, rows []*types.QuizQuestion) ([]*types.QuizQuestion, error)
	GetByID(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Quiz, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]QuizSummary, error)
	CountByOwner(dbc dbctx.Context, ownerID uuid.UUID) (int64, error)
	Delete(dbc dbctx.Context, ownerID, id uuid.UUID) error

	CreateAttempt(dbc dbctx.Context, a *types.QuizAttempt) error
	ListAttempts(dbc dbctx.Context, ownerID, quizID uuid.UUID) ([]*types.QuizAttempt, error)
	AverageScore(dbc dbctx.Context, ownerID uuid.UUID) (float64, int64, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, log *logger.Logger) QuizRepo {
	return &quizRepo{db: db, log: log.With("repo", "QuizRepo")}
}

func (r *quizRepo) Create(dbc dbctx.Context, quiz *types.Quiz) error {
	if quiz == nil {
		return fmt.Errorf("%w: nil quiz", apperr.ErrInvalidArgument)
	}
	return dbc.DB(r.db).Omit(clause.Associations).Create(quiz).Error
}

func (r *quizRepo) CreateQuestions(dbc dbctx.Context, rows []*types.QuizQuestion) ([]*types.QuizQuestion, error) {
	if len(rows) == 0 {
		return []*types.QuizQuestion{}, nil
	}
	for _, q := range rows {
		if q.QuizID == uuid.Nil {
			return nil, fmt.Errorf("%w: question without quiz_id", apperr.ErrInvalidArgument)
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *quizRepo) GetByID(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Quiz, error) {
	var out types.Quiz
	err := dbc.DB(r.db).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("quiz %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *quizRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]QuizSummary, error) {
	var quizzes []types.Quiz
	if err := dbc.DB(r.db).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&quizzes).Error; err != nil {
		return nil, err
	}
	if len(quizzes) == 0 {
		return []QuizSummary{}, nil
	}
	ids := make([]uuid.UUID, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.ID)
	}
	var counts []struct {
		QuizID uuid.UUID
		N      int64
	}
	if err := dbc.DB(r.db).
		Model(&types.QuizQuestion{}).
		Select("quiz_id, COUNT(*) AS n").
		Where("quiz_id IN ?", ids).
		Group("quiz_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	byQuiz := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		byQuiz[c.QuizID] = c.N
	}
	out := make([]QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, QuizSummary{Quiz: q, QuestionCount: byQuiz[q.ID]})
	}
	return out, nil
}

func (r *quizRepo) CountByOwner(dbc dbctx.Context, ownerID uuid.UUID) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.Quiz{}).
		Where("owner_id = ?", ownerID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes the quiz with its questions and attempts. It also serves
// as cleanup for quizzes whose questions were never inserted.
func (r *quizRepo) Delete(dbc dbctx.Context, ownerID, id uuid.UUID) error {
	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("owner_id = ? AND id = ?", ownerID, id).Delete(&types.Quiz{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("quiz %s: %w", id, apperr.ErrNotFound)
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&types.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Where("quiz_id = ?", id).Delete(&types.QuizAttempt{}).Error
	})
}

func (r *quizRepo) CreateAttempt(dbc dbctx.Context, a *types.QuizAttempt) error {
	return dbc.DB(r.db).Create(a).Error
}

func (r *quizRepo) ListAttempts(dbc dbctx.Context, ownerID, quizID uuid.UUID) ([]*types.QuizAttempt, error) {
	var out []*types.QuizAttempt
	if err := dbc.DB(r.db).
		Where("owner_id = ? AND quiz_id = ?", ownerID, quizID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// AverageScore returns the mean attempt score and the number of attempts.
func (r *quizRepo) AverageScore(dbc dbctx.Context, ownerID uuid.UUID) (float64, int64, error) {
	var row struct {
		Avg float64
		N   int64
	}
	if err := dbc.DB(r.db).
		Model(&types.QuizAttempt{}).
		Select("COALESCE(AVG(score), 0) AS avg, COUNT(*) AS n").
		Where("owner_id = ?", ownerID).
		Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return row.Avg, row.N, nil
}
