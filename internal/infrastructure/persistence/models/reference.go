package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reference tables are owned by the catalog and customer services; this
// module only reads them.

// CustomerModel is the read model of a customer's credit terms
type CustomerModel struct {
	BaseModel
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"type:varchar(200);not null"`
	TaxID       string          `gorm:"type:varchar(20)"`
	CreditLimit decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Deleted     bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// TaxTypeModel is a named tax rate in percent
type TaxTypeModel struct {
	BaseModel
	TenantID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name     string          `gorm:"type:varchar(100);not null"`
	Rate     decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Deleted  bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (TaxTypeModel) TableName() string {
	return "tax_types"
}

// ProductModel is the read model of a sellable product
type ProductModel struct {
	BaseModel
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(200);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxTypeID *uuid.UUID      `gorm:"type:uuid"`
	Deleted   bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}
