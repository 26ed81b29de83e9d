package handler

import (
	"context"

	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SequenceBlockOperations administers authorized fiscal number ranges
type SequenceBlockOperations interface {
	CreateBlock(ctx context.Context, tenantID uuid.UUID, input settlement.CreateBlockInput) (*fiscal.SequenceBlock, error)
	ListBlocks(ctx context.Context, tenantID uuid.UUID, filter fiscal.SequenceBlockFilter) ([]fiscal.SequenceBlock, error)
	RetireBlock(ctx context.Context, tenantID, blockID uuid.UUID) (*fiscal.SequenceBlock, error)
}

// FiscalSequenceHandler handles fiscal sequence block endpoints
type FiscalSequenceHandler struct {
	BaseHandler
	blocks SequenceBlockOperations
}

// NewFiscalSequenceHandler creates a new FiscalSequenceHandler
func NewFiscalSequenceHandler(blocks SequenceBlockOperations) *FiscalSequenceHandler {
	return &FiscalSequenceHandler{blocks: blocks}
}

// Create godoc
// @Summary      Register an authorized number range
// @Tags         fiscal-sequences
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body CreateSequenceBlockRequest true "Range"
// @Success      201 {object} dto.Response{data=SequenceBlockResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /fiscal-sequences [post]
func (h *FiscalSequenceHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var req CreateSequenceBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	block, err := h.blocks.CreateBlock(c.Request.Context(), tenantID, settlement.CreateBlockInput{
		Series:        req.Series,
		DocumentType:  req.DocumentType,
		StartSequence: req.StartSequence,
		EndSequence:   req.EndSequence,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toSequenceBlockResponse(block))
}

// List godoc
// @Summary      List number ranges
// @Tags         fiscal-sequences
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        document_type query string false "Document type code" Enums(01, 02, 14, 15)
// @Param        status query string false "Block status" Enums(open, closed)
// @Param        include_retired query bool false "Include retired blocks"
// @Success      200 {object} dto.Response{data=[]SequenceBlockResponse}
// @Router       /fiscal-sequences [get]
func (h *FiscalSequenceHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var query ListSequenceBlocksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	blocks, err := h.blocks.ListBlocks(c.Request.Context(), tenantID, query.toFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := make([]SequenceBlockResponse, 0, len(blocks))
	for i := range blocks {
		resp = append(resp, toSequenceBlockResponse(&blocks[i]))
	}
	h.SuccessList(c, resp, len(resp))
}

// Retire godoc
// @Summary      Retire a number range
// @Description  Closes the block and hides it from default listings
// @Tags         fiscal-sequences
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Block ID" format(uuid)
// @Success      200 {object} dto.Response{data=SequenceBlockResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /fiscal-sequences/{id}/retire [post]
func (h *FiscalSequenceHandler) Retire(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	blockID, ok := h.pathID(c, "id", "block")
	if !ok {
		return
	}

	block, err := h.blocks.RetireBlock(c.Request.Context(), tenantID, blockID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSequenceBlockResponse(block))
}
