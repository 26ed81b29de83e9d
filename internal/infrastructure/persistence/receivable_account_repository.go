package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReceivableAccountRepository implements finance.ReceivableAccountRepository using GORM
type GormReceivableAccountRepository struct {
	db *gorm.DB
}

// NewGormReceivableAccountRepository creates a new GormReceivableAccountRepository
func NewGormReceivableAccountRepository(db *gorm.DB) *GormReceivableAccountRepository {
	return &GormReceivableAccountRepository{db: db}
}

// FindByID finds an account by ID within a tenant
func (r *GormReceivableAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.ReceivableAccount, error) {
	return r.findOne(r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id))
}

// FindByIDForUpdate finds and row-locks an account
func (r *GormReceivableAccountRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.ReceivableAccount, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)).Where("tenant_id = ? AND id = ?", tenantID, id))
}

// FindPendingByCustomerForUpdate locks the customer's Pending account
func (r *GormReceivableAccountRepository) FindPendingByCustomerForUpdate(ctx context.Context, tenantID, customerID uuid.UUID) (*finance.ReceivableAccount, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND customer_id = ? AND status = ?", tenantID, customerID, finance.ReceivableStatusPending).
		Order("created_at ASC"))
}

// FindPendingByCustomer returns the customer's Pending account without locking it
func (r *GormReceivableAccountRepository) FindPendingByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*finance.ReceivableAccount, error) {
	return r.findOne(r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND status = ?", tenantID, customerID, finance.ReceivableStatusPending).
		Order("created_at ASC"))
}

func (r *GormReceivableAccountRepository) findOne(query *gorm.DB) (*finance.ReceivableAccount, error) {
	var model models.ReceivableAccountModel
	if err := query.First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates an account. Opening a second Pending account for
// a customer violates the partial unique index and maps to ErrAlreadyExists.
func (r *GormReceivableAccountRepository) Save(ctx context.Context, account *finance.ReceivableAccount) error {
	model := models.ReceivableAccountModelFromDomain(account)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

var _ finance.ReceivableAccountRepository = (*GormReceivableAccountRepository)(nil)
