package study

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studydesk-backend/internal/domain/study"
	"github.com/yungbote/studydesk-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type TaskRepo interface {
	Create(dbc dbctx.Context, row *types.Task) error
	GetByID(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Task, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Task, error)
	CountByStatus(dbc dbctx.Context, ownerID uuid.UUID) (done int64, pending int64, err error)
	UpdateFields(dbc dbctx.Context, ownerID, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, ownerID, id uuid.UUID) error
	DeleteCompleted(dbc dbctx.Context, ownerID uuid.UUID) (int64, error)
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, log *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: log.With("repo", "TaskRepo")}
}

func (r *taskRepo) Create(dbc dbctx.Context, row *types.Task) error {
	return dbc.DB(r.db).Create(row).Error
}

func (r *taskRepo) GetByID(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Task, error) {
	var out types.Task
	err := dbc.DB(r.db).Where("owner_id = ? AND id = ?", ownerID, id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByOwner returns tasks newest first.
func (r *taskRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Task, error) {
	var out []*types.Task
	if err := dbc.DB(r.db).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskRepo) CountByStatus(dbc dbctx.Context, ownerID uuid.UUID) (int64, int64, error) {
	var rows []struct {
		Completed bool
		N         int64
	}
	if err := dbc.DB(r.db).
		Model(&types.Task{}).
		Select("completed, COUNT(*) AS n").
		Where("owner_id = ?", ownerID).
		Group("completed").
		Scan(&rows).Error; err != nil {
		return 0, 0, err
	}
	var done, pending int64
	for _, row := range rows {
		if row.Completed {
			done += row.N
		} else {
			pending += row.N
		}
	}
	return done, pending, nil
}

func (r *taskRepo) UpdateFields(dbc dbctx.Context, ownerID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).
		Model(&types.Task{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *taskRepo) Delete(dbc dbctx.Context, ownerID, id uuid.UUID) error {
	res := dbc.DB(r.db).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&types.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *taskRepo) DeleteCompleted(dbc dbctx.Context, ownerID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).Where("owner_id = ? AND completed = ?", ownerID, true).Delete(&types.Task{})
	return res.RowsAffected, res.Error
}
