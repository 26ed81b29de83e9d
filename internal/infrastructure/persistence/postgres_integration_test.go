package persistence

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/migration"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newPostgresDB starts a throwaway PostgreSQL container and applies the
// embedded migrations to it.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("settlement_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	database, err := Open(postgres.Open(dsn), &config.DatabaseConfig{MaxOpenConns: 10, MaxIdleConns: 5}, nil,
		Options{LogLevel: gormlogger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, "", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return database.DB
}

func TestPostgres_ConcurrentAllocationUnderRowLocks(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	tenantID := uuid.New()
	scope := NewGormTransactionScope(db)

	blocks := settlement.NewSequenceBlockService(scope, nil, nil)
	block, err := blocks.CreateBlock(ctx, tenantID, settlement.CreateBlockInput{
		Series: "B", DocumentType: "02", StartSequence: 1, EndSequence: 5,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	drafts := settlement.NewDraftService(scope, NewGormProductCatalog(db), nil, nil)
	productID := seedProduct(t, db, tenantID, "Cement 42.5kg", "100", nil)
	allocator := settlement.NewFiscalSequenceAllocator(settlement.AllocatorConfig{
		MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond,
	}, nil, nil)
	coordinator := settlement.NewSettlementCoordinator(scope, allocator, settlement.NewReceivablesLedger(nil),
		NewGormCustomerCreditDirectory(db), nil, nil)

	const requests = 8
	draftIDs := make([]uuid.UUID, requests)
	for i := range draftIDs {
		draft, err := drafts.CreateDraft(ctx, tenantID, nil)
		require.NoError(t, err)
		_, err = drafts.AddLine(ctx, tenantID, draft.ID, settlement.AddLineInput{ProductID: productID, Quantity: d("1")})
		require.NoError(t, err)
		draftIDs[i] = draft.ID
	}

	type outcome struct {
		number string
		err    error
	}
	p := pool.NewWithResults[outcome]()
	for _, draftID := range draftIDs {
		p.Go(func() outcome {
			inv, err := coordinator.FinalizeDocument(ctx, tenantID, draftID, trade.PaymentDetails{
				Kind:                  trade.InvoiceKindFinalConsumer,
				CashRegisterSessionID: uuid.New(),
			})
			if err != nil {
				return outcome{err: err}
			}
			return outcome{number: inv.FiscalNumber}
		})
	}

	var numbers []string
	for _, o := range p.Wait() {
		if o.err != nil {
			assert.True(t, fiscal.IsSequenceExhausted(o.err), "unexpected error: %v", o.err)
			continue
		}
		numbers = append(numbers, o.number)
	}
	sort.Strings(numbers)
	assert.Equal(t, []string{"B0200000001", "B0200000002", "B0200000003", "B0200000004", "B0200000005"}, numbers)

	stored, err := NewGormSequenceBlockRepository(db).FindByID(ctx, tenantID, block.ID)
	require.NoError(t, err)
	assert.Equal(t, fiscal.BlockStatusClosed, stored.Status)
}

func TestPostgres_PartialUniqueIndexes(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	tenantID := uuid.New()
	repo := NewGormSequenceBlockRepository(db)

	require.NoError(t, repo.Save(ctx, newTestBlock(t, tenantID, fiscal.DocumentTypeCreditFiscal, 1, 10, testNow)))
	err := repo.Save(ctx, newTestBlock(t, tenantID, fiscal.DocumentTypeCreditFiscal, 11, 20, testNow))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	credit := NewGormCustomerCreditDirectory(db)
	customerID := seedCustomer(t, db, tenantID, "750", false)
	limit, err := credit.CreditLimit(ctx, tenantID, customerID)
	require.NoError(t, err)
	assertDecimal(t, "750", limit)
}
