package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SequenceBlockService administers authorized fiscal number ranges
type SequenceBlockService struct {
	txScope   TransactionScope
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSequenceBlockService creates a SequenceBlockService
func NewSequenceBlockService(txScope TransactionScope, publisher shared.EventPublisher, logger *zap.Logger) *SequenceBlockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SequenceBlockService{txScope: txScope, publisher: publisher, logger: logger, now: time.Now}
}

// CreateBlockInput describes a newly authorized range
type CreateBlockInput struct {
	Series        string
	DocumentType  string
	StartSequence int64
	EndSequence   int64
	ExpiresAt     time.Time
}

// CreateBlock registers a range. Only one open block per document type may exist.
func (s *SequenceBlockService) CreateBlock(ctx context.Context, tenantID uuid.UUID, input CreateBlockInput) (*fiscal.SequenceBlock, error) {
	docType, err := fiscal.ParseDocumentType(input.DocumentType)
	if err != nil {
		return nil, err
	}
	block, err := fiscal.NewSequenceBlock(tenantID, input.Series, docType, input.StartSequence, input.EndSequence, input.ExpiresAt, s.now())
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.SequenceBlocks().ExistsOpen(ctx, tenantID, docType)
		if err != nil {
			return fmt.Errorf("failed to check open blocks: %w", err)
		}
		if exists {
			return fiscal.ErrOpenBlockExists
		}
		if err := repos.SequenceBlocks().Save(ctx, block); err != nil {
			// a concurrent create won the partial unique index
			if errors.Is(err, shared.ErrAlreadyExists) {
				return fiscal.ErrOpenBlockExists
			}
			return fmt.Errorf("failed to save sequence block: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Fiscal sequence block created",
		zap.String("block_id", block.ID.String()),
		zap.String("series", block.Series),
		zap.String("document_type", block.DocumentType.String()),
		zap.Int64("start", block.StartSequence),
		zap.Int64("end", block.EndSequence),
	)
	publishEvents(ctx, s.publisher, s.logger, block.PullDomainEvents())
	return block, nil
}

// ListBlocks lists blocks oldest first
func (s *SequenceBlockService) ListBlocks(ctx context.Context, tenantID uuid.UUID, filter fiscal.SequenceBlockFilter) ([]fiscal.SequenceBlock, error) {
	var blocks []fiscal.SequenceBlock
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.SequenceBlocks().FindAll(ctx, tenantID, filter)
		blocks = found
		return err
	})
	return blocks, err
}

// RetireBlock withdraws a block so it never issues numbers again
func (s *SequenceBlockService) RetireBlock(ctx context.Context, tenantID, blockID uuid.UUID) (*fiscal.SequenceBlock, error) {
	var block *fiscal.SequenceBlock
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.SequenceBlocks().FindByIDForUpdate(ctx, tenantID, blockID)
		if err != nil {
			return err
		}
		if err := b.Retire(s.now()); err != nil {
			return err
		}
		if err := repos.SequenceBlocks().Save(ctx, b); err != nil {
			return fmt.Errorf("failed to save sequence block: %w", err)
		}
		block = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fiscal sequence block retired", zap.String("block_id", blockID.String()))
	publishEvents(ctx, s.publisher, s.logger, block.PullDomainEvents())
	return block, nil
}

// CloseExpiredBlocks closes up to limit open blocks, across tenants, whose
// expiration has passed, and returns how many it closed. Allocation closes
// an expired block on its own when it meets one; this keeps listings honest
// for document types that see no traffic.
func (s *SequenceBlockService) CloseExpiredBlocks(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, shared.NewDomainError(shared.CodeInvalidInput, "Limit must be positive")
	}
	now := s.now()
	var closed []*fiscal.SequenceBlock
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		expired, err := repos.SequenceBlocks().FindExpiredOpenForUpdate(ctx, now, limit)
		if err != nil {
			return fmt.Errorf("failed to find expired blocks: %w", err)
		}
		for i := range expired {
			b := &expired[i]
			if err := b.Expire(now); err != nil {
				return err
			}
			if err := repos.SequenceBlocks().Save(ctx, b); err != nil {
				return fmt.Errorf("failed to save sequence block: %w", err)
			}
			closed = append(closed, b)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, b := range closed {
		s.logger.Info("Expired fiscal sequence block closed",
			zap.String("tenant_id", b.TenantID.String()),
			zap.String("block_id", b.ID.String()),
			zap.String("document_type", b.DocumentType.String()),
			zap.Int64("used", b.UsedCount),
		)
		publishEvents(ctx, s.publisher, s.logger, b.PullDomainEvents())
	}
	return len(closed), nil
}
