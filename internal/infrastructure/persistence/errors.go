package persistence

import (
	"errors"

	"github.com/erp/settlement/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// translateError maps gorm sentinels onto domain errors. Anything else is
// returned unchanged and classifies as internal.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	}
	return err
}

// forUpdate adds a row lock to the query. The sqlite dialector drops the
// clause; callers rely on its single connection for serialization there.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// skipLocked is forUpdate that passes over rows other transactions hold
func skipLocked(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
}
