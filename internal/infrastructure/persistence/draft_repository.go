package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDraftRepository implements trade.DraftRepository using GORM
type GormDraftRepository struct {
	db *gorm.DB
}

// NewGormDraftRepository creates a new GormDraftRepository
func NewGormDraftRepository(db *gorm.DB) *GormDraftRepository {
	return &GormDraftRepository{db: db}
}

// FindByID loads a draft with all its lines
func (r *GormDraftRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Draft, error) {
	return r.load(ctx, r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads and row-locks a draft. Lines are only ever
// written together with their draft, so locking the draft row covers them.
func (r *GormDraftRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.Draft, error) {
	return r.load(ctx, forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormDraftRepository) load(ctx context.Context, query *gorm.DB, tenantID, id uuid.UUID) (*trade.Draft, error) {
	var model models.DraftModel
	if err := query.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	if err := r.db.WithContext(ctx).
		Where("draft_id = ?", model.ID).
		Order("position ASC").
		Find(&model.Lines).Error; err != nil {
		return nil, err
	}
	// stored amounts are a cache; derive them again from the line inputs
	draft := model.ToDomain()
	if err := draft.Recalculate(); err != nil {
		return nil, err
	}
	return draft, nil
}

// Save creates or updates a draft and its lines. Lines are soft-removed,
// so nothing is ever deleted here.
func (r *GormDraftRepository) Save(ctx context.Context, draft *trade.Draft) error {
	model := models.DraftModelFromDomain(draft)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return translateError(err)
		}
		for i := range model.Lines {
			model.Lines[i].DraftID = model.ID
			if err := tx.Save(&model.Lines[i]).Error; err != nil {
				return translateError(err)
			}
		}
		return nil
	})
}

var _ trade.DraftRepository = (*GormDraftRepository)(nil)
