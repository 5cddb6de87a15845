package notes

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/studydesk-backend/internal/domain/notes"
	"github.com/yungbote/studydesk-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/studydesk-backend/internal/pkg/errors"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, row *types.Document) error
	GetByID(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Document, error)
	// GetByIDs preserves the order of ids and fails if any is missing.
	GetByIDs(dbc dbctx.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]*types.Document, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Document, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Document, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, log *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: log.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(dbc dbctx.Context, row *types.Document) error {
	return dbc.DB(r.db).Create(row).Error
}

func (r *documentRepo) GetByID(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Document, error) {
	var out types.Document
	err := dbc.DB(r.db).Where("owner_id = ? AND id = ?", ownerID, id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentRepo) GetByIDs(dbc dbctx.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]*types.Document, error) {
	if len(ids) == 0 {
		return []*types.Document{}, nil
	}
	var rows []*types.Document
	if err := dbc.DB(r.db).
		Where("owner_id = ? AND id IN ?", ownerID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Document, len(rows))
	for _, d := range rows {
		byID[d.ID] = d
	}
	out := make([]*types.Document, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *documentRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Document, error) {
	var out []*types.Document
	if err := dbc.DB(r.db).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Model(&types.Document{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *documentRepo) Delete(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Document, error) {
	var row types.Document
	err := dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? AND id = ?", ownerID, id).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("document %s: %w", id, apperr.ErrNotFound)
			}
			return err
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}
