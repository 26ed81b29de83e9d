package trade

import (
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 2, 10, 15, 30, 0, 0, time.UTC)

func createTestDraft(t *testing.T) (*Draft, uuid.UUID, uuid.UUID) {
	draft := NewDraft(uuid.New(), nil)
	l1, err := draft.AddLine(uuid.New(), "Coffee beans 1kg", d("1"), d("100.00"), d("18"), nil, testNow)
	require.NoError(t, err)
	line1ID := l1.ID
	l2, err := draft.AddLine(uuid.New(), "Paper filters", d("2"), d("25.00"), d("0"), nil, testNow)
	require.NoError(t, err)
	return draft, line1ID, l2.ID
}

func TestDraftStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to DraftStatus
		allowed  bool
	}{
		{DraftStatusOpen, DraftStatusPending, true},
		{DraftStatusOpen, DraftStatusCompleted, true},
		{DraftStatusOpen, DraftStatusCancelled, true},
		{DraftStatusPending, DraftStatusOpen, true},
		{DraftStatusPending, DraftStatusCompleted, false},
		{DraftStatusCompleted, DraftStatusCancelled, false},
		{DraftStatusCancelled, DraftStatusOpen, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestDraft_AddLineRecomputesTotals(t *testing.T) {
	draft, _, _ := createTestDraft(t)

	assertDecimal(t, "150.00", draft.Subtotal)
	assertDecimal(t, "18.00", draft.TaxTotal)
	assertDecimal(t, "168.00", draft.GrandTotal)
	assertDecimal(t, "18.00", draft.Lines[0].TaxAmount)
}

func TestDraft_AddLineRejectsBadInput(t *testing.T) {
	draft, _, _ := createTestDraft(t)
	version := draft.GetVersion()

	_, err := draft.AddLine(uuid.New(), "Mug", d("0"), d("5"), d("18"), nil, testNow)
	require.Error(t, err)
	assert.Len(t, draft.Lines, 2, "failed add leaves lines untouched")
	assert.Equal(t, version, draft.GetVersion())
	assertDecimal(t, "168.00", draft.GrandTotal)

	_, err = draft.AddLine(uuid.Nil, "Mug", d("1"), d("5"), d("18"), nil, testNow)
	require.Error(t, err)
	_, err = draft.AddLine(uuid.New(), " ", d("1"), d("5"), d("18"), nil, testNow)
	require.Error(t, err)
}

func TestDraft_GlobalDiscountApplyAndRemove(t *testing.T) {
	draft, _, _ := createTestDraft(t)

	require.NoError(t, draft.ApplyGlobalDiscount(pct("10"), testNow))
	assertDecimal(t, "15.00", draft.GlobalDiscountAmount)
	assertDecimal(t, "151.20", draft.GrandTotal)
	assertDecimal(t, "10.00", draft.Lines[0].GlobalShare)
	assertDecimal(t, "5.00", draft.Lines[1].GlobalShare)

	// re-applying replaces the discount rather than stacking it
	require.NoError(t, draft.ApplyGlobalDiscount(pct("10"), testNow))
	assertDecimal(t, "151.20", draft.GrandTotal)

	require.NoError(t, draft.RemoveGlobalDiscount(testNow))
	assert.Nil(t, draft.GlobalDiscount)
	assertDecimal(t, "168.00", draft.GrandTotal)
	assertDecimal(t, "18.00", draft.Lines[0].TaxAmount)
	assertDecimal(t, "0", draft.Lines[0].GlobalShare)
}

func TestDraft_GlobalDiscountTooLargeIsRejected(t *testing.T) {
	draft, _, _ := createTestDraft(t)

	err := draft.ApplyGlobalDiscount(amt("150.01"), testNow)
	require.Error(t, err)
	assert.Equal(t, shared.KindLimitExceeded, shared.KindOf(err))
	assert.Nil(t, draft.GlobalDiscount)
	assertDecimal(t, "168.00", draft.GrandTotal)
}

func TestDraft_LineDiscount(t *testing.T) {
	draft, line1, _ := createTestDraft(t)

	require.NoError(t, draft.ApplyLineDiscount(line1, pct("50"), testNow))
	assertDecimal(t, "50.00", draft.Lines[0].LineDiscountAmount)
	assertDecimal(t, "9.00", draft.Lines[0].TaxAmount)
	assertDecimal(t, "109.00", draft.GrandTotal)

	err := draft.ApplyLineDiscount(line1, amt("100.01"), testNow)
	require.Error(t, err)
	assertDecimal(t, "109.00", draft.GrandTotal, "failed discount keeps previous one")

	require.NoError(t, draft.ApplyLineDiscount(line1, nil, testNow))
	assertDecimal(t, "168.00", draft.GrandTotal)

	err = draft.ApplyLineDiscount(uuid.New(), pct("5"), testNow)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestDraft_RemoveLine(t *testing.T) {
	draft, line1ID, line2ID := createTestDraft(t)
	require.NoError(t, draft.ApplyGlobalDiscount(amt("20"), testNow))

	require.NoError(t, draft.RemoveLine(line2ID, testNow))
	assert.Equal(t, 1, draft.ActiveLineCount())
	assertDecimal(t, "20.00", draft.Lines[0].GlobalShare)
	assertDecimal(t, "94.40", draft.GrandTotal)

	err := draft.RemoveLine(line2ID, testNow)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err), "removed lines cannot be removed twice")

	require.NoError(t, draft.RemoveLine(line1ID, testNow))
	assert.Equal(t, 0, draft.ActiveLineCount())
	assert.Nil(t, draft.GlobalDiscount)
	assertDecimal(t, "0", draft.GrandTotal)
	assertDecimal(t, "0", draft.Lines[0].Total)
}

func TestDraft_RemoveLineRejectedWhenGlobalNoLongerFits(t *testing.T) {
	draft, line1ID, line2ID := createTestDraft(t)
	require.NoError(t, draft.ApplyGlobalDiscount(amt("80"), testNow))

	err := draft.RemoveLine(line1ID, testNow)
	require.Error(t, err)
	assert.Equal(t, shared.KindLimitExceeded, shared.KindOf(err))
	assert.False(t, draft.Lines[0].Removed)
	assert.Equal(t, 2, draft.ActiveLineCount())

	require.NoError(t, draft.RemoveLine(line2ID, testNow))
}

func TestDraft_HoldResumeAndImmutability(t *testing.T) {
	draft, line1, _ := createTestDraft(t)

	require.NoError(t, draft.Hold(testNow))
	assert.Equal(t, DraftStatusPending, draft.Status)

	err := draft.ApplyLineDiscount(line1, pct("5"), testNow)
	assert.Equal(t, shared.KindInvalidState, shared.KindOf(err))
	assert.Error(t, draft.EnsureFinalizable())

	require.NoError(t, draft.Resume(testNow))
	require.NoError(t, draft.ApplyLineDiscount(line1, pct("5"), testNow))
}

func TestDraft_Discard(t *testing.T) {
	draft, _, _ := createTestDraft(t)

	require.NoError(t, draft.Discard(testNow))
	assert.Equal(t, DraftStatusCancelled, draft.Status)
	assert.Equal(t, 0, draft.ActiveLineCount())
	assert.NotNil(t, draft.CancelledAt)
	assert.Len(t, draft.GetDomainEvents(), 1)

	_, err := draft.AddLine(uuid.New(), "Late item", d("1"), d("1"), d("0"), nil, testNow)
	assert.Equal(t, shared.KindInvalidState, shared.KindOf(err))
	assert.Error(t, draft.Discard(testNow))
}

func TestDraft_MarkCompleted(t *testing.T) {
	empty := NewDraft(uuid.New(), nil)
	assert.Equal(t, shared.KindInvalidState, shared.KindOf(empty.MarkCompleted(uuid.New(), testNow)))

	draft, _, _ := createTestDraft(t)
	invoiceID := uuid.New()
	require.NoError(t, draft.MarkCompleted(invoiceID, testNow))
	assert.Equal(t, DraftStatusCompleted, draft.Status)
	assert.Equal(t, invoiceID, *draft.InvoiceID)

	assert.Error(t, draft.MarkCompleted(uuid.New(), testNow))
	assert.Error(t, draft.Discard(testNow), "completed drafts are terminal")
}
