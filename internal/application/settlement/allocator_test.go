package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestBlock(t *testing.T, tenantID uuid.UUID, start, end int64, expiresAt time.Time) *fiscal.SequenceBlock {
	t.Helper()
	block, err := fiscal.NewSequenceBlock(tenantID, "B", fiscal.DocumentTypeFinalConsumer, start, end, expiresAt, testNow.Add(-time.Hour))
	require.NoError(t, err)
	block.ClearDomainEvents()
	return block
}

func newTestAllocator(maxAttempts int) (*FiscalSequenceAllocator, *[]time.Duration) {
	a := NewFiscalSequenceAllocator(AllocatorConfig{MaxAttempts: maxAttempts}, nil, nil)
	a.now = fixedNow
	waits := &[]time.Duration{}
	a.wait = func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return a, waits
}

func TestAllocate_TakesNextNumber(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	block := newTestBlock(t, tenantID, 1, 3, testNow.Add(24*time.Hour))
	blocks := new(MockSequenceBlockRepository)
	issued := new(MockInvoiceRepository)

	blocks.On("FindOldestOpenForUpdate", ctx, tenantID, fiscal.DocumentTypeFinalConsumer).Return(block, nil)
	blocks.On("Save", ctx, block).Return(nil)
	issued.On("IsIssued", ctx, tenantID, "B0200000001").Return(false, nil)

	a, waits := newTestAllocator(10)
	alloc, err := a.Allocate(ctx, blocks, issued, tenantID, fiscal.DocumentTypeFinalConsumer)

	require.NoError(t, err)
	assert.Equal(t, "B0200000001", alloc.FiscalNumber)
	assert.Equal(t, int64(1), alloc.Sequence)
	assert.Equal(t, block.ID, alloc.BlockID)
	assert.Equal(t, 1, alloc.Attempts)
	assert.Empty(t, *waits)
	assert.Equal(t, int64(1), block.UsedCount)
	assert.True(t, block.IsOpen())
	require.Len(t, alloc.Events, 1)
	assert.Equal(t, fiscal.EventTypeFiscalNumberAllocated, alloc.Events[0].EventType())
	blocks.AssertExpectations(t)
	issued.AssertExpectations(t)
}

func TestAllocate_LastNumberClosesBlock(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	block := newTestBlock(t, tenantID, 7, 7, testNow.Add(time.Hour))
	blocks := new(MockSequenceBlockRepository)
	issued := new(MockInvoiceRepository)

	blocks.On("FindOldestOpenForUpdate", ctx, tenantID, fiscal.DocumentTypeFinalConsumer).Return(block, nil)
	blocks.On("Save", ctx, block).Return(nil)
	issued.On("IsIssued", ctx, tenantID, "B0200000007").Return(false, nil)

	a, _ := newTestAllocator(10)
	alloc, err := a.Allocate(ctx, blocks, issued, tenantID, fiscal.DocumentTypeFinalConsumer)

	require.NoError(t, err)
	assert.Equal(t, "B0200000007", alloc.FiscalNumber)
	assert.Equal(t, fiscal.BlockStatusClosed, block.Status)
	assert.NotNil(t, block.ClosedAt)
	require.Len(t, alloc.Events, 2)
	assert.Equal(t, fiscal.EventTypeSequenceBlockClosed, alloc.Events[1].EventType())
}

func TestAllocate_NoOpenBlock(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	blocks := new(MockSequenceBlockRepository)
	issued := new(MockInvoiceRepository)
	blocks.On("FindOldestOpenForUpdate", ctx, tenantID, fiscal.DocumentTypeCreditFiscal).Return(nil, shared.ErrNotFound)

	a, _ := newTestAllocator(10)
	alloc, err := a.Allocate(ctx, blocks, issued, tenantID, fiscal.DocumentTypeCreditFiscal)

	assert.Nil(t, alloc)
	require.Error(t, err)
	assert.ErrorIs(t, err, fiscal.ErrNoActiveSequence)
	assert.True(t, fiscal.IsSequenceExhausted(err))
	assert.Equal(t, shared.KindSequenceExhausted, shared.KindOf(err))
	issued.AssertNotCalled(t, "IsIssued", mock.Anything, mock.Anything, mock.Anything)
}

func TestAllocate_SkipsIssuedNumber(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	block := newTestBlock(t, tenantID, 1, 100, testNow.Add(24*time.Hour))
	blocks := new(MockSequenceBlockRepository)
	issued := new(MockInvoiceRepository)

	blocks.On("FindOldestOpenForUpdate", ctx, tenantID, fiscal.DocumentTypeFinalConsumer).Return(block, nil)
	blocks.On("Save", ctx, block).Return(nil)
	issued.On("IsIssued", ctx, tenantID, "B0200000001").Return(true, nil).Once()
	issued.On("IsIssued", ctx, tenantID, "B0200000002").Return(false, nil).Once()

	a, waits := newTestAllocator(10)
	alloc, err := a.Allocate(ctx, blocks, issued, tenantID, fiscal.DocumentTypeFinalConsumer)

	require.NoError(t, err)
	assert.Equal(t, "B0200000002", alloc.FiscalNumber)
	assert.Equal(t, 2, alloc.Attempts)
	assert.Equal(t, int64(2), block.UsedCount, "the colliding number stays consumed")
	require.Len(t, *waits, 1)
	assert.Greater(t, int64((*waits)[0]), int64(0))
	issued.AssertExpectations(t)
}

func TestAllocate_GivesUpAfterRetryBudget(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	block := newTestBlock(t, tenantID, 1, 100, testNow.Add(24*time.Hour))
	blocks := new(MockSequenceBlockRepository)
	issued := new(MockInvoiceRepository)

	blocks.On("FindOldestOpenForUpdate", ctx, tenantID, fiscal.DocumentTypeFinalConsumer).Return(block, nil)
	blocks.On("Save", ctx, block).Return(nil)
	issued.On("IsIssued", ctx, tenantID, mock.AnythingOfType("string")).Return(true, nil)

	a, waits := newTestAllocator(3)
	alloc, err := a.Allocate(ctx, blocks, issued, tenantID, fiscal.DocumentTypeFinalConsumer)

	assert.Nil(t, alloc)
	assert.ErrorIs(t, err, fiscal.ErrSequenceExhausted)
	assert.Equal(t, shared.KindSequenceExhausted, shared.KindOf(err))
	assert.Equal(t, int64(3), block.UsedCount)
	assert.Len(t, *waits, 2, "no wait after the final attempt")
	issued.AssertNumberOfCalls(t, "IsIssued", 3)
}

func TestAllocate_ClosesExpiredBlockAndMovesOn(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	expired := newTestBlock(t, tenantID, 1, 50, testNow.Add(-time.Minute))
	fresh := newTestBlock(t, tenantID, 51, 100, testNow.Add(24*time.Hour))
	blocks := new(MockSequenceBlockRepository)
	issued := new(MockInvoiceRepository)

	blocks.On("FindOldestOpenForUpdate", ctx, tenantID, fiscal.DocumentTypeFinalConsumer).Return(expired, nil).Once()
	blocks.On("FindOldestOpenForUpdate", ctx, tenantID, fiscal.DocumentTypeFinalConsumer).Return(fresh, nil).Once()
	blocks.On("Save", ctx, expired).Return(nil).Once()
	blocks.On("Save", ctx, fresh).Return(nil).Once()
	issued.On("IsIssued", ctx, tenantID, "B0200000051").Return(false, nil)

	a, _ := newTestAllocator(1)
	alloc, err := a.Allocate(ctx, blocks, issued, tenantID, fiscal.DocumentTypeFinalConsumer)

	require.NoError(t, err)
	assert.Equal(t, "B0200000051", alloc.FiscalNumber)
	assert.Equal(t, 1, alloc.Attempts, "closing an expired block does not spend an attempt")
	assert.Equal(t, fiscal.BlockStatusClosed, expired.Status)
	assert.Equal(t, int64(0), expired.UsedCount)
	blocks.AssertExpectations(t)
}

func TestAllocate_InfrastructureErrorIsNotExhaustion(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	blocks := new(MockSequenceBlockRepository)
	blocks.On("FindOldestOpenForUpdate", ctx, tenantID, fiscal.DocumentTypeFinalConsumer).Return(nil, errors.New("connection reset"))

	a, _ := newTestAllocator(10)
	_, err := a.Allocate(ctx, blocks, new(MockInvoiceRepository), tenantID, fiscal.DocumentTypeFinalConsumer)

	require.Error(t, err)
	assert.False(t, fiscal.IsSequenceExhausted(err))
	assert.Equal(t, shared.KindInternal, shared.KindOf(err))
}

func TestAllocate_RejectsUnknownDocumentType(t *testing.T) {
	a, _ := newTestAllocator(10)
	_, err := a.Allocate(context.Background(), new(MockSequenceBlockRepository), new(MockInvoiceRepository), uuid.New(), "99")
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestAllocate_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tenantID := uuid.New()
	block := newTestBlock(t, tenantID, 1, 100, testNow.Add(24*time.Hour))
	blocks := new(MockSequenceBlockRepository)
	issued := new(MockInvoiceRepository)
	blocks.On("FindOldestOpenForUpdate", ctx, tenantID, fiscal.DocumentTypeFinalConsumer).Return(block, nil)
	blocks.On("Save", ctx, block).Return(nil)
	issued.On("IsIssued", ctx, tenantID, mock.AnythingOfType("string")).Return(true, nil)

	a := NewFiscalSequenceAllocator(AllocatorConfig{MaxAttempts: 5, InitialInterval: time.Hour}, nil, nil)
	a.now = fixedNow
	cancel()

	_, err := a.Allocate(ctx, blocks, issued, tenantID, fiscal.DocumentTypeFinalConsumer)
	assert.ErrorIs(t, err, context.Canceled)
}
