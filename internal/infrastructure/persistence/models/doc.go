// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: shared columns (BaseModel, TenantAggregateModel, DiscountColumns)
//   - fiscal.go: fiscal sequence blocks
//   - finance.go: receivable accounts
//   - trade.go: drafts, invoices and their lines
//   - reference.go: read-only customers, products and tax types
package models
