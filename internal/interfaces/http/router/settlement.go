package router

import (
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// SettlementHandlers are the handlers behind the settlement API
type SettlementHandlers struct {
	Drafts          *handler.DraftHandler
	Settlement      *handler.SettlementHandler
	FiscalSequences *handler.FiscalSequenceHandler
}

// SettlementGroups builds the settlement route groups. retrySafe guards the endpoints that issue
// numbers or move money; pass nil to leave them unguarded.
func SettlementGroups(h SettlementHandlers, retrySafe gin.HandlerFunc) []RouteRegistrar {
	guard := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		if retrySafe == nil {
			return []gin.HandlerFunc{fn}
		}
		return []gin.HandlerFunc{retrySafe, fn}
	}

	drafts := NewDomainGroup("drafts", "/drafts")
	drafts.POST("", h.Drafts.Create)
	drafts.GET("/:id", h.Drafts.Get)
	drafts.POST("/:id/lines", h.Drafts.AddLine)
	drafts.DELETE("/:id/lines/:lineId", h.Drafts.RemoveLine)
	drafts.PUT("/:id/lines/:lineId/discount", h.Drafts.ApplyLineDiscount)
	drafts.PUT("/:id/global-discount", h.Drafts.ApplyGlobalDiscount)
	drafts.DELETE("/:id/global-discount", h.Drafts.RemoveGlobalDiscount)
	drafts.POST("/:id/hold", h.Drafts.Hold)
	drafts.POST("/:id/resume", h.Drafts.Resume)
	drafts.POST("/:id/discard", h.Drafts.Discard)
	drafts.POST("/:id/finalize", guard(h.Settlement.Finalize)...)

	invoices := NewDomainGroup("invoices", "/invoices")
	invoices.GET("/:id", h.Settlement.GetInvoice)
	invoices.POST("/:id/cancel", guard(h.Settlement.CancelInvoice)...)

	receivables := NewDomainGroup("receivables", "/receivables")
	receivables.POST("/payments/batch", guard(h.Settlement.RecordBatchPayment)...)
	receivables.GET("/:id", h.Settlement.GetReceivable)
	receivables.GET("/:id/invoices", h.Settlement.ListReceivableInvoices)
	receivables.POST("/:id/payments", guard(h.Settlement.RecordPayment)...)

	customers := NewDomainGroup("customers", "/customers")
	customers.GET("/:id/receivable", h.Settlement.GetCustomerReceivable)

	sessions := NewDomainGroup("cash-register-sessions", "/cash-register-sessions")
	sessions.GET("/:id/invoices", h.Settlement.ListSessionInvoices)

	sequences := NewDomainGroup("fiscal-sequences", "/fiscal-sequences")
	sequences.POST("", h.FiscalSequences.Create)
	sequences.GET("", h.FiscalSequences.List)
	sequences.POST("/:id/retire", h.FiscalSequences.Retire)

	return []RouteRegistrar{drafts, invoices, receivables, customers, sessions, sequences}
}
