package handler

import (
	"context"

	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DraftOperations is the draft lifecycle served over HTTP
type DraftOperations interface {
	CreateDraft(ctx context.Context, tenantID uuid.UUID, customerID *uuid.UUID) (*trade.Draft, error)
	GetDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error)
	AddLine(ctx context.Context, tenantID, draftID uuid.UUID, input settlement.AddLineInput) (*trade.Draft, error)
	RemoveLine(ctx context.Context, tenantID, draftID, lineID uuid.UUID) (*trade.Draft, error)
	ApplyLineDiscount(ctx context.Context, tenantID, draftID, lineID uuid.UUID, discount *trade.Discount) (*trade.Draft, error)
	ApplyGlobalDiscount(ctx context.Context, tenantID, draftID uuid.UUID, discount trade.Discount) (*trade.Draft, error)
	RemoveGlobalDiscount(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error)
	HoldDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error)
	ResumeDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error)
	DiscardDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error)
}

// DraftHandler handles draft API endpoints
type DraftHandler struct {
	BaseHandler
	drafts DraftOperations
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(drafts DraftOperations) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// Create godoc
// @Summary      Open a draft
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body CreateDraftRequest false "Customer"
// @Success      201 {object} dto.Response{data=DraftResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /drafts [post]
func (h *DraftHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req CreateDraftRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	draft, err := h.drafts.CreateDraft(c.Request.Context(), tenantID, req.CustomerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toDraftResponse(draft))
}

// Get godoc
// @Summary      Get a draft
// @Tags         drafts
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Draft ID" format(uuid)
// @Success      200 {object} dto.Response{data=DraftResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /drafts/{id} [get]
func (h *DraftHandler) Get(c *gin.Context) {
	h.respond(c, h.drafts.GetDraft)
}

// AddLine godoc
// @Summary      Add a product line
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Draft ID" format(uuid)
// @Param        request body AddLineRequest true "Line"
// @Success      200 {object} dto.Response{data=DraftResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /drafts/{id}/lines [post]
func (h *DraftHandler) AddLine(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	draftID, ok := h.pathID(c, "id", "draft")
	if !ok {
		return
	}

	var req AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	input := settlement.AddLineInput{
		ProductID: req.ProductID,
		Quantity:  *req.Quantity,
		UnitPrice: req.UnitPrice,
		TaxRate:   req.TaxRate,
	}
	if req.Discount != nil {
		discount, err := req.Discount.toDomain()
		if err != nil {
			h.HandleError(c, err)
			return
		}
		input.Discount = discount
	}

	draft, err := h.drafts.AddLine(c.Request.Context(), tenantID, draftID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDraftResponse(draft))
}

// RemoveLine godoc
// @Summary      Remove a line
// @Tags         drafts
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Draft ID" format(uuid)
// @Param        lineId path string true "Line ID" format(uuid)
// @Success      200 {object} dto.Response{data=DraftResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /drafts/{id}/lines/{lineId} [delete]
func (h *DraftHandler) RemoveLine(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	draftID, ok := h.pathID(c, "id", "draft")
	if !ok {
		return
	}
	lineID, ok := h.pathID(c, "lineId", "line")
	if !ok {
		return
	}

	draft, err := h.drafts.RemoveLine(c.Request.Context(), tenantID, draftID, lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDraftResponse(draft))
}

// ApplyLineDiscount godoc
// @Summary      Set or clear a line discount
// @Description  A null discount clears the line discount
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Draft ID" format(uuid)
// @Param        lineId path string true "Line ID" format(uuid)
// @Param        request body LineDiscountRequest true "Discount"
// @Success      200 {object} dto.Response{data=DraftResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /drafts/{id}/lines/{lineId}/discount [put]
func (h *DraftHandler) ApplyLineDiscount(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	draftID, ok := h.pathID(c, "id", "draft")
	if !ok {
		return
	}
	lineID, ok := h.pathID(c, "lineId", "line")
	if !ok {
		return
	}

	var req LineDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	var discount *trade.Discount
	if req.Discount != nil {
		d, err := req.Discount.toDomain()
		if err != nil {
			h.HandleError(c, err)
			return
		}
		discount = d
	}

	draft, err := h.drafts.ApplyLineDiscount(c.Request.Context(), tenantID, draftID, lineID, discount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDraftResponse(draft))
}

// ApplyGlobalDiscount godoc
// @Summary      Set the document-level discount
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Draft ID" format(uuid)
// @Param        request body DiscountInput true "Discount"
// @Success      200 {object} dto.Response{data=DraftResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /drafts/{id}/global-discount [put]
func (h *DraftHandler) ApplyGlobalDiscount(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	draftID, ok := h.pathID(c, "id", "draft")
	if !ok {
		return
	}

	var req DiscountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	discount, err := req.toDomain()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	draft, err := h.drafts.ApplyGlobalDiscount(c.Request.Context(), tenantID, draftID, *discount)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDraftResponse(draft))
}

// RemoveGlobalDiscount godoc
// @Summary      Clear the document-level discount
// @Tags         drafts
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Draft ID" format(uuid)
// @Success      200 {object} dto.Response{data=DraftResponse}
// @Router       /drafts/{id}/global-discount [delete]
func (h *DraftHandler) RemoveGlobalDiscount(c *gin.Context) {
	h.respond(c, h.drafts.RemoveGlobalDiscount)
}

// Hold godoc
// @Summary      Park an open draft
// @Tags         drafts
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Draft ID" format(uuid)
// @Success      200 {object} dto.Response{data=DraftResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /drafts/{id}/hold [post]
func (h *DraftHandler) Hold(c *gin.Context) {
	h.respond(c, h.drafts.HoldDraft)
}

// Resume godoc
// @Summary      Reopen a held draft
// @Tags         drafts
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Draft ID" format(uuid)
// @Success      200 {object} dto.Response{data=DraftResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /drafts/{id}/resume [post]
func (h *DraftHandler) Resume(c *gin.Context) {
	h.respond(c, h.drafts.ResumeDraft)
}

// Discard godoc
// @Summary      Abandon a draft
// @Tags         drafts
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Draft ID" format(uuid)
// @Success      200 {object} dto.Response{data=DraftResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /drafts/{id}/discard [post]
func (h *DraftHandler) Discard(c *gin.Context) {
	h.respond(c, h.drafts.DiscardDraft)
}

// respond runs a body-less draft operation addressed by :id
func (h *DraftHandler) respond(c *gin.Context, op func(context.Context, uuid.UUID, uuid.UUID) (*trade.Draft, error)) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	draftID, ok := h.pathID(c, "id", "draft")
	if !ok {
		return
	}

	draft, err := op(c.Request.Context(), tenantID, draftID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDraftResponse(draft))
}
