package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DraftService edits pre-invoice drafts at the register
type DraftService struct {
	txScope   TransactionScope
	catalog   ProductCatalog
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewDraftService creates a DraftService
func NewDraftService(txScope TransactionScope, catalog ProductCatalog, publisher shared.EventPublisher, logger *zap.Logger) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{
		txScope:   txScope,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// AddLineInput describes a product line to add. UnitPrice and TaxRate
// override the catalog values when set.
type AddLineInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
	TaxRate   *decimal.Decimal
	Discount  *trade.Discount
}

// CreateDraft opens an empty draft
func (s *DraftService) CreateDraft(ctx context.Context, tenantID uuid.UUID, customerID *uuid.UUID) (*trade.Draft, error) {
	if customerID != nil && *customerID == uuid.Nil {
		customerID = nil
	}
	draft := trade.NewDraft(tenantID, customerID)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.Drafts().Save(ctx, draft)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}
	return draft, nil
}

// GetDraft loads a draft with its lines and freshly derived amounts
func (s *DraftService) GetDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error) {
	var draft *trade.Draft
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		d, err := repos.Drafts().FindByID(ctx, tenantID, draftID)
		draft = d
		return err
	})
	return draft, err
}

// AddLine adds a catalog product to the draft
func (s *DraftService) AddLine(ctx context.Context, tenantID, draftID uuid.UUID, input AddLineInput) (*trade.Draft, error) {
	product, err := s.catalog.FindProduct(ctx, tenantID, input.ProductID)
	if err != nil {
		return nil, err
	}
	price := product.UnitPrice
	if input.UnitPrice != nil {
		price = *input.UnitPrice
	}
	rate := product.TaxRate
	if input.TaxRate != nil {
		rate = *input.TaxRate
	}

	return s.update(ctx, tenantID, draftID, "add_line", func(d *trade.Draft, now time.Time) error {
		_, err := d.AddLine(product.ID, product.Name, input.Quantity, price, rate, input.Discount, now)
		return err
	})
}

// RemoveLine withdraws a line from the draft
func (s *DraftService) RemoveLine(ctx context.Context, tenantID, draftID, lineID uuid.UUID) (*trade.Draft, error) {
	return s.update(ctx, tenantID, draftID, "remove_line", func(d *trade.Draft, now time.Time) error {
		return d.RemoveLine(lineID, now)
	})
}

// ApplyLineDiscount sets a line's own discount; nil clears it
func (s *DraftService) ApplyLineDiscount(ctx context.Context, tenantID, draftID, lineID uuid.UUID, discount *trade.Discount) (*trade.Draft, error) {
	return s.update(ctx, tenantID, draftID, "apply_line_discount", func(d *trade.Draft, now time.Time) error {
		return d.ApplyLineDiscount(lineID, discount, now)
	})
}

// ApplyGlobalDiscount replaces the document-level discount
func (s *DraftService) ApplyGlobalDiscount(ctx context.Context, tenantID, draftID uuid.UUID, discount trade.Discount) (*trade.Draft, error) {
	return s.update(ctx, tenantID, draftID, "apply_global_discount", func(d *trade.Draft, now time.Time) error {
		return d.ApplyGlobalDiscount(&discount, now)
	})
}

// RemoveGlobalDiscount drops the document-level discount
func (s *DraftService) RemoveGlobalDiscount(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error) {
	return s.update(ctx, tenantID, draftID, "remove_global_discount", func(d *trade.Draft, now time.Time) error {
		return d.RemoveGlobalDiscount(now)
	})
}

// HoldDraft parks an Open draft
func (s *DraftService) HoldDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error) {
	return s.update(ctx, tenantID, draftID, "hold", func(d *trade.Draft, now time.Time) error {
		return d.Hold(now)
	})
}

// ResumeDraft reopens a held draft
func (s *DraftService) ResumeDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error) {
	return s.update(ctx, tenantID, draftID, "resume", func(d *trade.Draft, now time.Time) error {
		return d.Resume(now)
	})
}

// DiscardDraft cancels a draft that will never be finalized
func (s *DraftService) DiscardDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error) {
	return s.update(ctx, tenantID, draftID, "discard", func(d *trade.Draft, now time.Time) error {
		return d.Discard(now)
	})
}

// update locks the draft, applies change and saves it in one transaction
func (s *DraftService) update(
	ctx context.Context,
	tenantID, draftID uuid.UUID,
	operation string,
	change func(d *trade.Draft, now time.Time) error,
) (*trade.Draft, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "draft", operation)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDraftID, draftID.String(),
	)

	var (
		draft  *trade.Draft
		events []shared.DomainEvent
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		d, err := repos.Drafts().FindByIDForUpdate(ctx, tenantID, draftID)
		if err != nil {
			return err
		}
		if err := change(d, s.now()); err != nil {
			return err
		}
		if err := repos.Drafts().Save(ctx, d); err != nil {
			return fmt.Errorf("failed to save draft: %w", err)
		}
		draft, events = d, d.PullDomainEvents()
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Debug("Draft updated",
		zap.String("draft_id", draftID.String()),
		zap.String("operation", operation),
		zap.String("grand_total", draft.GrandTotal.StringFixed(2)),
	)
	publishEvents(ctx, s.publisher, s.logger, events)
	return draft, nil
}
