package trade

import (
	"testing"

	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cashDetails() PaymentDetails {
	return PaymentDetails{
		Kind:                  InvoiceKindFinalConsumer,
		CashRegisterSessionID: uuid.New(),
		Tenders:               Tenders{{Method: TenderMethodCash, Amount: d("200")}},
	}
}

func TestInvoiceKind_DocumentType(t *testing.T) {
	tests := []struct {
		kind InvoiceKind
		want fiscal.DocumentType
	}{
		{InvoiceKindCreditFiscal, fiscal.DocumentTypeCreditFiscal},
		{InvoiceKindFinalConsumer, fiscal.DocumentTypeFinalConsumer},
		{InvoiceKindSpecialRegime, fiscal.DocumentTypeSpecialRegime},
		{InvoiceKindGovernmental, fiscal.DocumentTypeGovernmental},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.True(t, tt.kind.IsValid())
			assert.Equal(t, tt.want, tt.kind.DocumentType())
		})
	}
	assert.False(t, InvoiceKind("proforma").IsValid())
}

func TestPaymentDetails_Validate(t *testing.T) {
	customer := uuid.New()
	total := d("168.00")

	tests := []struct {
		name   string
		modify func(p *PaymentDetails)
		ok     bool
	}{
		{"cash sale", func(p *PaymentDetails) {}, true},
		{"no tenders", func(p *PaymentDetails) { p.Tenders = nil }, true},
		{"unknown kind", func(p *PaymentDetails) { p.Kind = "x" }, false},
		{"missing register session", func(p *PaymentDetails) { p.CashRegisterSessionID = uuid.Nil }, false},
		{"credit without customer", func(p *PaymentDetails) { p.IsCredit = true }, false},
		{"credit with customer", func(p *PaymentDetails) { p.IsCredit = true; p.CustomerID = &customer; p.Tenders = nil }, true},
		{"credit fiscal without tax id", func(p *PaymentDetails) { p.Kind = InvoiceKindCreditFiscal }, false},
		{"credit fiscal with tax id", func(p *PaymentDetails) { p.Kind = InvoiceKindCreditFiscal; p.CustomerTaxID = "101010101" }, true},
		{"governmental without tax id", func(p *PaymentDetails) { p.Kind = InvoiceKindGovernmental }, false},
		{"bad tender method", func(p *PaymentDetails) { p.Tenders[0].Method = "barter" }, false},
		{"zero tender", func(p *PaymentDetails) { p.Tenders[0].Amount = d("0") }, false},
		{"short tender", func(p *PaymentDetails) { p.Tenders[0].Amount = d("167.99") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := cashDetails()
			tt.modify(&p)
			err := p.Validate(total)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, shared.KindValidation, shared.KindOf(err))
			}
		})
	}
}

func TestNewInvoiceFromDraft(t *testing.T) {
	draft, line1, line2 := createTestDraft(t)
	require.NoError(t, draft.ApplyGlobalDiscount(pct("10"), testNow))
	require.NoError(t, draft.RemoveLine(line2, testNow))
	_, err := draft.AddLine(uuid.New(), "Filters", d("2"), d("25"), d("0"), nil, testNow)
	require.NoError(t, err)

	inv, err := NewInvoiceFromDraft(draft, "B0200000001", cashDetails(), nil, testNow)
	require.NoError(t, err)

	assert.Equal(t, InvoiceStatusCompleted, inv.Status)
	assert.Equal(t, "B0200000001", inv.FiscalNumber)
	assert.Equal(t, draft.ID, inv.DraftID)
	require.Len(t, inv.Lines, 2, "removed lines are not carried over")
	assert.Equal(t, line1, draft.Lines[0].ID)
	assertDecimal(t, "151.20", inv.GrandTotal)
	assertDecimal(t, "10.00", inv.Lines[0].GlobalShare)
	assert.Equal(t, inv.ID, inv.Lines[0].InvoiceID)
	require.NotNil(t, inv.GlobalDiscount)
	assert.NotSame(t, draft.GlobalDiscount, inv.GlobalDiscount)
	assert.Len(t, inv.GetDomainEvents(), 1)
}

func TestNewInvoiceFromDraft_Rejections(t *testing.T) {
	draft, _, _ := createTestDraft(t)

	_, err := NewInvoiceFromDraft(draft, " ", cashDetails(), nil, testNow)
	assert.Error(t, err)

	credit := cashDetails()
	credit.IsCredit = true
	_, err = NewInvoiceFromDraft(draft, "B0200000001", credit, nil, testNow)
	assert.Error(t, err, "credit invoice needs its receivable account")

	require.NoError(t, draft.Hold(testNow))
	_, err = NewInvoiceFromDraft(draft, "B0200000001", cashDetails(), nil, testNow)
	assert.Equal(t, shared.KindInvalidState, shared.KindOf(err))
}

func TestInvoice_Cancel(t *testing.T) {
	draft, _, _ := createTestDraft(t)
	inv, err := NewInvoiceFromDraft(draft, "B0200000001", cashDetails(), nil, testNow)
	require.NoError(t, err)

	require.NoError(t, inv.Cancel("  customer returned goods ", testNow))
	assert.True(t, inv.IsCancelled())
	assert.Equal(t, "customer returned goods", inv.CancelReason)
	assert.True(t, inv.Deleted)
	assert.Equal(t, "B0200000001", inv.FiscalNumber, "fiscal number stays consumed")

	err = inv.Cancel("again", testNow)
	assert.Equal(t, shared.KindInvalidState, shared.KindOf(err))
}

func TestInvoice_CancelWithoutReason(t *testing.T) {
	draft, _, _ := createTestDraft(t)
	inv, err := NewInvoiceFromDraft(draft, "B0200000001", cashDetails(), nil, testNow)
	require.NoError(t, err)

	require.NoError(t, inv.Cancel("   ", testNow))
	assert.True(t, inv.IsCancelled())
	assert.Empty(t, inv.CancelReason)
	require.NotNil(t, inv.CancelledAt)
}

func TestTenders_ValueScan(t *testing.T) {
	tenders := Tenders{{Method: TenderMethodCard, Amount: d("12.34"), Reference: "auth-1"}}
	v, err := tenders.Value()
	require.NoError(t, err)

	var out Tenders
	require.NoError(t, out.Scan(v))
	require.Len(t, out, 1)
	assert.Equal(t, TenderMethodCard, out[0].Method)
	assertDecimal(t, "12.34", out[0].Amount)
	assertDecimal(t, "12.34", out.Sum())
}
