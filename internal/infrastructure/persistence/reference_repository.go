package persistence

import (
	"context"
	"errors"

	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCustomerCreditDirectory reads credit limits from the customers table
type GormCustomerCreditDirectory struct {
	db *gorm.DB
}

// NewGormCustomerCreditDirectory creates a new GormCustomerCreditDirectory
func NewGormCustomerCreditDirectory(db *gorm.DB) *GormCustomerCreditDirectory {
	return &GormCustomerCreditDirectory{db: db}
}

// CreditLimit returns the customer's credit limit
func (d *GormCustomerCreditDirectory) CreditLimit(ctx context.Context, tenantID, customerID uuid.UUID) (decimal.Decimal, error) {
	var customer models.CustomerModel
	err := d.db.WithContext(ctx).
		Select("id", "credit_limit").
		Where("tenant_id = ? AND id = ? AND deleted = ?", tenantID, customerID, false).
		First(&customer).Error
	if err != nil {
		return decimal.Zero, translateError(err)
	}
	return customer.CreditLimit, nil
}

// GormProductCatalog reads products and their tax rates
type GormProductCatalog struct {
	db *gorm.DB
}

// NewGormProductCatalog creates a new GormProductCatalog
func NewGormProductCatalog(db *gorm.DB) *GormProductCatalog {
	return &GormProductCatalog{db: db}
}

// FindProduct returns the product with the rate of its tax type. A product
// without a tax type, or whose tax type was deleted, is untaxed.
func (c *GormProductCatalog) FindProduct(ctx context.Context, tenantID, productID uuid.UUID) (*settlement.ProductInfo, error) {
	var product models.ProductModel
	err := c.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND deleted = ?", tenantID, productID, false).
		First(&product).Error
	if err != nil {
		return nil, translateError(err)
	}

	info := &settlement.ProductInfo{
		ID:        product.ID,
		Name:      product.Name,
		UnitPrice: product.UnitPrice,
		TaxRate:   decimal.Zero,
	}
	if product.TaxTypeID == nil {
		return info, nil
	}

	var taxType models.TaxTypeModel
	err = c.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ? AND deleted = ?", tenantID, *product.TaxTypeID, false).
		First(&taxType).Error
	switch err = translateError(err); {
	case err == nil:
		info.TaxRate = taxType.Rate
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	return info, nil
}

var (
	_ settlement.CustomerCreditDirectory = (*GormCustomerCreditDirectory)(nil)
	_ settlement.ProductCatalog          = (*GormProductCatalog)(nil)
)
