package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/fiscal"
)

// SequenceBlockModel is the persistence model for the SequenceBlock aggregate root.
// At most one open, non-retired block per tenant and document type is enforced
// by a partial unique index created in the migrations.
type SequenceBlockModel struct {
	TenantAggregateModel
	Series        string              `gorm:"type:varchar(10);not null"`
	DocumentType  fiscal.DocumentType `gorm:"type:varchar(2);not null;index:idx_sequence_block_lookup,priority:2"`
	StartSequence int64               `gorm:"not null"`
	EndSequence   int64               `gorm:"not null"`
	UsedCount     int64               `gorm:"not null;default:0"`
	Status        fiscal.BlockStatus  `gorm:"type:varchar(10);not null;default:'open';index:idx_sequence_block_lookup,priority:3"`
	ExpiresAt     time.Time           `gorm:"not null"`
	ClosedAt      *time.Time
	Retired       bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (SequenceBlockModel) TableName() string {
	return "fiscal_sequence_blocks"
}

// ToDomain converts the persistence model to a domain SequenceBlock.
func (m *SequenceBlockModel) ToDomain() *fiscal.SequenceBlock {
	return &fiscal.SequenceBlock{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Series:              m.Series,
		DocumentType:        m.DocumentType,
		StartSequence:       m.StartSequence,
		EndSequence:         m.EndSequence,
		UsedCount:           m.UsedCount,
		Status:              m.Status,
		ExpiresAt:           m.ExpiresAt,
		ClosedAt:            m.ClosedAt,
		Retired:             m.Retired,
	}
}

// FromDomain populates the persistence model from a domain SequenceBlock.
func (m *SequenceBlockModel) FromDomain(b *fiscal.SequenceBlock) {
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	m.Series = b.Series
	m.DocumentType = b.DocumentType
	m.StartSequence = b.StartSequence
	m.EndSequence = b.EndSequence
	m.UsedCount = b.UsedCount
	m.Status = b.Status
	m.ExpiresAt = b.ExpiresAt
	m.ClosedAt = b.ClosedAt
	m.Retired = b.Retired
}

// SequenceBlockModelFromDomain creates a new persistence model from a domain SequenceBlock.
func SequenceBlockModelFromDomain(b *fiscal.SequenceBlock) *SequenceBlockModel {
	m := &SequenceBlockModel{}
	m.FromDomain(b)
	return m
}
