package persistence

import (
	"context"

	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements trade.InvoiceRepository using GORM.
// It also serves as the allocator's fiscal.IssuedNumberChecker.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID loads an invoice with its lines
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Invoice, error) {
	return r.load(ctx, r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate loads and row-locks an invoice
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.Invoice, error) {
	return r.load(ctx, forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormInvoiceRepository) load(ctx context.Context, query *gorm.DB, tenantID, id uuid.UUID) (*trade.Invoice, error) {
	var model models.InvoiceModel
	if err := query.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", model.ID).
		Order("position ASC").
		Find(&model.Lines).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByReceivable returns the invoices charged to a receivable account
func (r *GormInvoiceRepository) ListByReceivable(ctx context.Context, tenantID, accountID uuid.UUID) ([]*trade.Invoice, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("tenant_id = ? AND receivable_account_id = ?", tenantID, accountID))
}

// ListBySession returns the invoices issued in a cash-register session
func (r *GormInvoiceRepository) ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]*trade.Invoice, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("tenant_id = ? AND cash_register_session_id = ?", tenantID, sessionID))
}

// list loads the matching invoices and all of their lines in two queries
func (r *GormInvoiceRepository) list(ctx context.Context, query *gorm.DB) ([]*trade.Invoice, error) {
	var rows []models.InvoiceModel
	if err := query.Order("issued_at ASC, fiscal_number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []*trade.Invoice{}, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	var lines []models.InvoiceLineModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id IN ?", ids).
		Order("position ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	byInvoice := make(map[uuid.UUID][]models.InvoiceLineModel, len(rows))
	for _, l := range lines {
		byInvoice[l.InvoiceID] = append(byInvoice[l.InvoiceID], l)
	}

	invoices := make([]*trade.Invoice, len(rows))
	for i := range rows {
		rows[i].Lines = byInvoice[rows[i].ID]
		invoices[i] = rows[i].ToDomain()
	}
	return invoices, nil
}

// IsIssued reports whether any invoice, cancelled or not, carries the fiscal number
func (r *GormInvoiceRepository) IsIssued(ctx context.Context, tenantID uuid.UUID, fiscalNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ? AND fiscal_number = ?", tenantID, fiscalNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an invoice. Lines are a snapshot taken at issue
// time and are only inserted, never updated.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *trade.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return translateError(err)
		}
		if len(model.Lines) == 0 {
			return nil
		}
		return translateError(tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Lines).Error)
	})
}

var _ trade.InvoiceRepository = (*GormInvoiceRepository)(nil)
