package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableAccountModel is the persistence model for the ReceivableAccount aggregate root.
type ReceivableAccountModel struct {
	TenantAggregateModel
	CustomerID     uuid.UUID                `gorm:"type:uuid;not null;index:idx_receivable_customer_status,priority:2"`
	AmountCharged  decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	AmountPaid     decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Status         finance.ReceivableStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_receivable_customer_status,priority:3"`
	PaymentRecords finance.PaymentRecords   `gorm:"type:jsonb;default:'[]'"`
	PaidAt         *time.Time
	CancelledAt    *time.Time
}

// TableName returns the table name for GORM
func (ReceivableAccountModel) TableName() string {
	return "receivable_accounts"
}

// ToDomain converts the persistence model to a domain ReceivableAccount.
func (m *ReceivableAccountModel) ToDomain() *finance.ReceivableAccount {
	records := m.PaymentRecords
	if records == nil {
		records = finance.PaymentRecords{}
	}
	return &finance.ReceivableAccount{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		CustomerID:          m.CustomerID,
		AmountCharged:       m.AmountCharged,
		AmountPaid:          m.AmountPaid,
		Status:              m.Status,
		PaymentRecords:      records,
		PaidAt:              m.PaidAt,
		CancelledAt:         m.CancelledAt,
	}
}

// FromDomain populates the persistence model from a domain ReceivableAccount.
func (m *ReceivableAccountModel) FromDomain(a *finance.ReceivableAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.CustomerID = a.CustomerID
	m.AmountCharged = a.AmountCharged
	m.AmountPaid = a.AmountPaid
	m.Status = a.Status
	m.PaymentRecords = a.PaymentRecords
	m.PaidAt = a.PaidAt
	m.CancelledAt = a.CancelledAt
}

// ReceivableAccountModelFromDomain creates a new persistence model from a domain ReceivableAccount.
func ReceivableAccountModelFromDomain(a *finance.ReceivableAccount) *ReceivableAccountModel {
	m := &ReceivableAccountModel{}
	m.FromDomain(a)
	return m
}
