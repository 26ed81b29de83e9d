package persistence

import (
	"context"
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCustomer(t *testing.T, db *gorm.DB, tenantID uuid.UUID, limit string, deleted bool) uuid.UUID {
	t.Helper()
	c := models.CustomerModel{
		BaseModel:   models.BaseModel{ID: uuid.New(), CreatedAt: testNow, UpdatedAt: testNow},
		TenantID:    tenantID,
		Name:        "Ferretería Central",
		TaxID:       "131234567",
		CreditLimit: d(limit),
		Deleted:     deleted,
	}
	require.NoError(t, db.Create(&c).Error)
	return c.ID
}

func seedTaxType(t *testing.T, db *gorm.DB, tenantID uuid.UUID, rate string, deleted bool) uuid.UUID {
	t.Helper()
	tt := models.TaxTypeModel{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: testNow, UpdatedAt: testNow},
		TenantID:  tenantID,
		Name:      "ITBIS " + rate,
		Rate:      d(rate),
		Deleted:   deleted,
	}
	require.NoError(t, db.Create(&tt).Error)
	return tt.ID
}

func seedProduct(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name, price string, taxTypeID *uuid.UUID) uuid.UUID {
	t.Helper()
	p := models.ProductModel{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: testNow, UpdatedAt: testNow},
		TenantID:  tenantID,
		Name:      name,
		UnitPrice: d(price),
		TaxTypeID: taxTypeID,
	}
	require.NoError(t, db.Create(&p).Error)
	return p.ID
}

func TestGormCustomerCreditDirectory_CreditLimit(t *testing.T) {
	db := newSQLiteDB(t)
	dir := NewGormCustomerCreditDirectory(db)
	ctx := context.Background()
	tenantID := uuid.New()

	active := seedCustomer(t, db, tenantID, "2500", false)
	deleted := seedCustomer(t, db, tenantID, "9000", true)

	limit, err := dir.CreditLimit(ctx, tenantID, active)
	require.NoError(t, err)
	assertDecimal(t, "2500", limit)

	_, err = dir.CreditLimit(ctx, tenantID, deleted)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = dir.CreditLimit(ctx, uuid.New(), active)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormProductCatalog_FindProduct(t *testing.T) {
	db := newSQLiteDB(t)
	catalog := NewGormProductCatalog(db)
	ctx := context.Background()
	tenantID := uuid.New()

	itbis := seedTaxType(t, db, tenantID, "18", false)
	retiredTax := seedTaxType(t, db, tenantID, "16", true)

	tests := []struct {
		name    string
		taxType *uuid.UUID
		rate    string
	}{
		{"with tax type", &itbis, "18"},
		{"without tax type", nil, "0"},
		{"deleted tax type", &retiredTax, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := seedProduct(t, db, tenantID, "Cement 42.5kg", "100", tt.taxType)

			info, err := catalog.FindProduct(ctx, tenantID, id)
			require.NoError(t, err)
			assert.Equal(t, id, info.ID)
			assert.Equal(t, "Cement 42.5kg", info.Name)
			assertDecimal(t, "100", info.UnitPrice)
			assertDecimal(t, tt.rate, info.TaxRate)
		})
	}

	t.Run("deleted product", func(t *testing.T) {
		id := seedProduct(t, db, tenantID, "Old stock", "5", nil)
		require.NoError(t, db.Model(&models.ProductModel{}).Where("id = ?", id).Update("deleted", true).Error)

		_, err := catalog.FindProduct(ctx, tenantID, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
