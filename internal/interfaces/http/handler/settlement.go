package handler

import (
	"context"
	"errors"
	"io"

	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementOperations finalizes drafts and moves money on receivables
type SettlementOperations interface {
	FinalizeDocument(ctx context.Context, tenantID, draftID uuid.UUID, payment trade.PaymentDetails) (*trade.Invoice, error)
	CancelInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, reason string) (*trade.Invoice, error)
	GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*trade.Invoice, error)
	RecordPayment(ctx context.Context, tenantID, accountID uuid.UUID, amount decimal.Decimal, reference string) (*finance.ReceivableAccount, error)
	RecordBatchPayment(ctx context.Context, tenantID uuid.UUID, items []settlement.BatchPaymentItem) (*settlement.BatchPaymentResult, error)
	GetReceivable(ctx context.Context, tenantID, accountID uuid.UUID) (*finance.ReceivableAccount, error)
	GetPendingReceivable(ctx context.Context, tenantID, customerID uuid.UUID) (*finance.ReceivableAccount, error)
	ListReceivableInvoices(ctx context.Context, tenantID, accountID uuid.UUID) ([]*trade.Invoice, error)
	ListSessionInvoices(ctx context.Context, tenantID, sessionID uuid.UUID) ([]*trade.Invoice, error)
}

// SettlementHandler handles finalization, invoice and receivable endpoints
type SettlementHandler struct {
	BaseHandler
	coordinator SettlementOperations
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(coordinator SettlementOperations) *SettlementHandler {
	return &SettlementHandler{coordinator: coordinator}
}

// Finalize godoc
// @Summary      Finalize a draft into a fiscal invoice
// @Description  Allocates the next fiscal number, snapshots the draft and, for credit sales, charges the customer's receivable.
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        id path string true "Draft ID" format(uuid)
// @Param        request body FinalizeRequest true "Payment details"
// @Success      201 {object} dto.Response{data=InvoiceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /drafts/{id}/finalize [post]
func (h *SettlementHandler) Finalize(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	draftID, ok := h.pathID(c, "id", "draft")
	if !ok {
		return
	}

	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	invoice, err := h.coordinator.FinalizeDocument(c.Request.Context(), tenantID, draftID, req.toDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toInvoiceResponse(invoice))
}

// GetInvoice godoc
// @Summary      Get an issued invoice
// @Tags         invoices
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=InvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id} [get]
func (h *SettlementHandler) GetInvoice(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	invoice, err := h.coordinator.GetInvoice(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInvoiceResponse(invoice))
}

// CancelInvoice godoc
// @Summary      Cancel an invoice
// @Description  Reverses the credit charge of a credit sale. The fiscal number stays consumed.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body CancelInvoiceRequest false "Reason"
// @Success      200 {object} dto.Response{data=InvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/cancel [post]
func (h *SettlementHandler) CancelInvoice(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	invoiceID, ok := h.pathID(c, "id", "invoice")
	if !ok {
		return
	}

	// an empty body cancels without a reason
	var req CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}

	invoice, err := h.coordinator.CancelInvoice(c.Request.Context(), tenantID, invoiceID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInvoiceResponse(invoice))
}

// GetReceivable godoc
// @Summary      Get a receivable account
// @Tags         receivables
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} dto.Response{data=ReceivableResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /receivables/{id} [get]
func (h *SettlementHandler) GetReceivable(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id", "account")
	if !ok {
		return
	}

	account, err := h.coordinator.GetReceivable(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReceivableResponse(account))
}

// GetCustomerReceivable godoc
// @Summary      Get a customer's open receivable
// @Description  Returns the customer's Pending account; 404 when the customer owes nothing.
// @Tags         receivables
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} dto.Response{data=ReceivableResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /customers/{id}/receivable [get]
func (h *SettlementHandler) GetCustomerReceivable(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	customerID, ok := h.pathID(c, "id", "customer")
	if !ok {
		return
	}

	account, err := h.coordinator.GetPendingReceivable(c.Request.Context(), tenantID, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReceivableResponse(account))
}

// ListReceivableInvoices godoc
// @Summary      List the invoices charged to a receivable
// @Tags         receivables
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]InvoiceResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /receivables/{id}/invoices [get]
func (h *SettlementHandler) ListReceivableInvoices(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id", "account")
	if !ok {
		return
	}

	invoices, err := h.coordinator.ListReceivableInvoices(c.Request.Context(), tenantID, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, toInvoiceResponses(invoices), len(invoices))
}

// ListSessionInvoices godoc
// @Summary      List the invoices issued in a cash-register session
// @Tags         invoices
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Cash-register session ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]InvoiceResponse}
// @Router       /cash-register-sessions/{id}/invoices [get]
func (h *SettlementHandler) ListSessionInvoices(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sessionID, ok := h.pathID(c, "id", "cash-register session")
	if !ok {
		return
	}

	invoices, err := h.coordinator.ListSessionInvoices(c.Request.Context(), tenantID, sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, toInvoiceResponses(invoices), len(invoices))
}

// RecordPayment godoc
// @Summary      Apply a payment to a receivable
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body PaymentRequest true "Payment"
// @Success      200 {object} dto.Response{data=ReceivableResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /receivables/{id}/payments [post]
func (h *SettlementHandler) RecordPayment(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id", "account")
	if !ok {
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	account, err := h.coordinator.RecordPayment(c.Request.Context(), tenantID, accountID, *req.Amount, req.Reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toReceivableResponse(account))
}

// RecordBatchPayment godoc
// @Summary      Apply several payments at once
// @Description  Items rejected by business rules are reported individually; the rest are applied.
// @Tags         receivables
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        request body BatchPaymentRequest true "Payments"
// @Success      200 {object} dto.Response{data=BatchPaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /receivables/payments/batch [post]
func (h *SettlementHandler) RecordBatchPayment(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req BatchPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	items := make([]settlement.BatchPaymentItem, 0, len(req.Payments))
	for _, p := range req.Payments {
		items = append(items, p.toItem())
	}

	result, err := h.coordinator.RecordBatchPayment(c.Request.Context(), tenantID, items)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toBatchPaymentResponse(result))
}
