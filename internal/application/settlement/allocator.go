package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AllocatorConfig bounds the allocator's retry loop
type AllocatorConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultAllocatorConfig returns ten attempts starting at 100ms
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		MaxAttempts:     10,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// Allocation is a fiscal number taken from a block
type Allocation struct {
	FiscalNumber string
	Sequence     int64
	BlockID      uuid.UUID
	DocumentType fiscal.DocumentType
	Attempts     int
	// Events raised on the blocks touched, to publish once the transaction commits
	Events []shared.DomainEvent
}

// FiscalSequenceAllocator issues gapless fiscal numbers. It holds no state of
// its own: the block row lock taken through the repository is what
// serializes concurrent callers.
type FiscalSequenceAllocator struct {
	config  AllocatorConfig
	logger  *zap.Logger
	metrics Metrics
	now     func() time.Time
	wait    func(ctx context.Context, d time.Duration) error
}

// NewFiscalSequenceAllocator creates an allocator
func NewFiscalSequenceAllocator(cfg AllocatorConfig, logger *zap.Logger, metrics Metrics) *FiscalSequenceAllocator {
	defaults := DefaultAllocatorConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval * 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &FiscalSequenceAllocator{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		wait:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (a *FiscalSequenceAllocator) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.config.InitialInterval
	b.MaxInterval = a.config.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Allocate takes the next fiscal number for docType. blocks and issued must
// be bound to the caller's transaction; the selected block stays locked
// until that transaction ends.
//
// Expired blocks are closed and skipped without spending an attempt. A
// candidate that already appears on an issued document is burned and the
// loop moves on to the next one after a randomized backoff.
func (a *FiscalSequenceAllocator) Allocate(
	ctx context.Context,
	blocks fiscal.SequenceBlockRepository,
	issued fiscal.IssuedNumberChecker,
	tenantID uuid.UUID,
	docType fiscal.DocumentType,
) (*Allocation, error) {
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Unknown document type %q", docType))
	}

	bo := a.newBackOff()
	var events []shared.DomainEvent
	attempts := 0

	for attempts < a.config.MaxAttempts {
		block, err := blocks.FindOldestOpenForUpdate(ctx, tenantID, docType)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				a.metrics.RecordAllocation(ctx, docType.String(), attempts, "no_active_sequence")
				return nil, fiscal.ErrNoActiveSequence
			}
			return nil, fmt.Errorf("failed to lock sequence block: %w", err)
		}

		now := a.now()
		if block.IsExpired(now) {
			if err := block.Expire(now); err != nil {
				return nil, err
			}
			if err := blocks.Save(ctx, block); err != nil {
				return nil, fmt.Errorf("failed to close expired sequence block: %w", err)
			}
			events = append(events, block.PullDomainEvents()...)
			a.logger.Info("Closed expired fiscal sequence block",
				zap.String("block_id", block.ID.String()),
				zap.String("document_type", docType.String()),
			)
			continue
		}

		attempts++
		seq, number, err := block.Consume(now)
		if err != nil {
			return nil, err
		}
		if err := blocks.Save(ctx, block); err != nil {
			return nil, fmt.Errorf("failed to save sequence block: %w", err)
		}
		events = append(events, block.PullDomainEvents()...)

		taken, err := issued.IsIssued(ctx, tenantID, number)
		if err != nil {
			return nil, fmt.Errorf("failed to check fiscal number: %w", err)
		}
		if !taken {
			a.metrics.RecordAllocation(ctx, docType.String(), attempts, "ok")
			return &Allocation{
				FiscalNumber: number,
				Sequence:     seq,
				BlockID:      block.ID,
				DocumentType: docType,
				Attempts:     attempts,
				Events:       events,
			}, nil
		}

		a.logger.Warn("Fiscal number already issued, skipping",
			zap.String("fiscal_number", number),
			zap.Int("attempt", attempts),
		)
		telemetry.AddEvent(trace.SpanFromContext(ctx), "fiscal_number_collision",
			telemetry.SpanAttrFiscalNumber, number, telemetry.SpanAttrAttempts, attempts)
		if attempts < a.config.MaxAttempts {
			if err := a.wait(ctx, bo.NextBackOff()); err != nil {
				return nil, err
			}
		}
	}

	a.metrics.RecordAllocation(ctx, docType.String(), attempts, "exhausted")
	return nil, fiscal.ErrSequenceExhausted
}
