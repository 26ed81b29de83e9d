package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, d(want).Equal(got), "want %s, got %s", want, got.String())
}

// newSQLiteDB opens a private in-memory database. A single connection keeps
// the schema alive and makes concurrent transactions queue up behind each other.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := Open(sqlite.Open(":memory:"), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1}, nil,
		Options{LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	db := database.DB
	require.NoError(t, db.AutoMigrate(
		&models.CustomerModel{},
		&models.TaxTypeModel{},
		&models.ProductModel{},
		&models.SequenceBlockModel{},
		&models.ReceivableAccountModel{},
		&models.DraftModel{},
		&models.DraftLineModel{},
		&models.InvoiceModel{},
		&models.InvoiceLineModel{},
	))
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX uq_sequence_block_one_open ON fiscal_sequence_blocks (tenant_id, document_type) WHERE status = 'open' AND retired = 0`,
		`CREATE UNIQUE INDEX uq_receivable_one_pending ON receivable_accounts (tenant_id, customer_id) WHERE status = 'PENDING'`,
		`CREATE UNIQUE INDEX uq_invoices_tenant_fiscal_number ON invoices (tenant_id, fiscal_number)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

// newMockDB returns a gorm handle speaking the postgres dialect to sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return openMock(t, mockDB), mock
}

func openMock(t *testing.T, conn *sql.DB) *gorm.DB {
	t.Helper()
	dialector := postgres.New(postgres.Config{
		Conn:       conn,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	return gormDB
}
