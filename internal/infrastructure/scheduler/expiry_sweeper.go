// Package scheduler runs periodic maintenance jobs for the settlement service.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidConfig is returned when configuration is invalid
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// ExpiredBlockCloser closes open fiscal blocks past their expiration
type ExpiredBlockCloser interface {
	CloseExpiredBlocks(ctx context.Context, limit int) (int, error)
}

// ExpirySweeperConfig holds configuration for the expiry sweeper
type ExpirySweeperConfig struct {
	// Interval between sweeps
	Interval time.Duration

	// BatchSize is how many blocks one transaction closes
	BatchSize int

	// MaxBatches caps the batches per sweep so a large backlog cannot pin the loop
	MaxBatches int
}

// DefaultExpirySweeperConfig returns a one-minute sweep of up to 10 batches of 100
func DefaultExpirySweeperConfig() ExpirySweeperConfig {
	return ExpirySweeperConfig{
		Interval:   time.Minute,
		BatchSize:  100,
		MaxBatches: 10,
	}
}

func (c ExpirySweeperConfig) validate() error {
	if c.Interval <= 0 || c.BatchSize <= 0 || c.MaxBatches <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ExpirySweeper periodically closes expired fiscal sequence blocks
type ExpirySweeper struct {
	config ExpirySweeperConfig
	closer ExpiredBlockCloser
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewExpirySweeper creates a new expiry sweeper
func NewExpirySweeper(config ExpirySweeperConfig, closer ExpiredBlockCloser, logger *zap.Logger) (*ExpirySweeper, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpirySweeper{config: config, closer: closer, logger: logger}, nil
}

// Start starts the sweep loop. Calling Start on a running sweeper is a no-op.
func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Expiry sweeper started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
	)
	return nil
}

// Stop stops the sweeper and waits for an in-flight sweep, or for ctx
func (s *ExpirySweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Expiry sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ExpirySweeper) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep closes expired blocks in batches until a batch comes back short,
// MaxBatches is reached or a batch fails. It returns the number closed.
func (s *ExpirySweeper) Sweep(ctx context.Context) int {
	total := 0
	for i := 0; i < s.config.MaxBatches; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := s.closer.CloseExpiredBlocks(ctx, s.config.BatchSize)
		if err != nil {
			s.logger.Error("Failed to close expired fiscal blocks", zap.Error(err))
			break
		}
		total += n
		if n < s.config.BatchSize {
			break
		}
	}
	if total > 0 {
		s.logger.Info("Expiry sweep finished", zap.Int("closed", total))
	}
	return total
}
