package persistence

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSequenceBlockRepository implements fiscal.SequenceBlockRepository using GORM
type GormSequenceBlockRepository struct {
	db *gorm.DB
}

// NewGormSequenceBlockRepository creates a new GormSequenceBlockRepository
func NewGormSequenceBlockRepository(db *gorm.DB) *GormSequenceBlockRepository {
	return &GormSequenceBlockRepository{db: db}
}

// FindByID finds a block by ID within a tenant
func (r *GormSequenceBlockRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*fiscal.SequenceBlock, error) {
	return r.findOne(r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id))
}

// FindByIDForUpdate finds and row-locks a block
func (r *GormSequenceBlockRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*fiscal.SequenceBlock, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)).Where("tenant_id = ? AND id = ?", tenantID, id))
}

// FindOldestOpenForUpdate locks the oldest open, non-retired block for the document type
func (r *GormSequenceBlockRepository) FindOldestOpenForUpdate(ctx context.Context, tenantID uuid.UUID, docType fiscal.DocumentType) (*fiscal.SequenceBlock, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND document_type = ? AND status = ? AND retired = ?",
			tenantID, docType, fiscal.BlockStatusOpen, false).
		Order("created_at ASC"))
}

func (r *GormSequenceBlockRepository) findOne(query *gorm.DB) (*fiscal.SequenceBlock, error) {
	var model models.SequenceBlockModel
	if err := query.First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// ExistsOpen reports whether an open, non-retired block exists for the document type
func (r *GormSequenceBlockRepository) ExistsOpen(ctx context.Context, tenantID uuid.UUID, docType fiscal.DocumentType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SequenceBlockModel{}).
		Where("tenant_id = ? AND document_type = ? AND status = ? AND retired = ?",
			tenantID, docType, fiscal.BlockStatusOpen, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll lists blocks, oldest first
func (r *GormSequenceBlockRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter fiscal.SequenceBlockFilter) ([]fiscal.SequenceBlock, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.DocumentType != nil {
		query = query.Where("document_type = ?", *filter.DocumentType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if !filter.IncludeRetired {
		query = query.Where("retired = ?", false)
	}

	var rows []models.SequenceBlockModel
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	blocks := make([]fiscal.SequenceBlock, len(rows))
	for i := range rows {
		blocks[i] = *rows[i].ToDomain()
	}
	return blocks, nil
}

// FindExpiredOpenForUpdate locks up to limit expired open blocks across all
// tenants, oldest expiration first. SKIP LOCKED leaves blocks that an
// allocation is holding to that allocation, which closes them itself.
func (r *GormSequenceBlockRepository) FindExpiredOpenForUpdate(ctx context.Context, now time.Time, limit int) ([]fiscal.SequenceBlock, error) {
	var rows []models.SequenceBlockModel
	err := skipLocked(r.db.WithContext(ctx)).
		Where("status = ? AND expires_at <= ?", fiscal.BlockStatusOpen, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	blocks := make([]fiscal.SequenceBlock, len(rows))
	for i := range rows {
		blocks[i] = *rows[i].ToDomain()
	}
	return blocks, nil
}

// Save creates or updates a block. A second open block for the same
// document type violates the partial unique index and maps to ErrAlreadyExists.
func (r *GormSequenceBlockRepository) Save(ctx context.Context, block *fiscal.SequenceBlock) error {
	model := models.SequenceBlockModelFromDomain(block)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

var _ fiscal.SequenceBlockRepository = (*GormSequenceBlockRepository)(nil)
