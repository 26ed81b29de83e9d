package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const lockKeyPrefix = "settlement:lock:"

// RedisDocumentLocker takes per-draft locks in Redis so that two instances
// never finalize the same draft at once.
type RedisDocumentLocker struct {
	client  *redislock.Client
	retry   redislock.RetryStrategy
	logger  *zap.Logger
	timeout time.Duration
}

// LockerOption configures a RedisDocumentLocker
type LockerOption func(*RedisDocumentLocker)

// WithLockRetry retries a busy lock up to attempts times, interval apart
func WithLockRetry(interval time.Duration, attempts int) LockerOption {
	return func(l *RedisDocumentLocker) {
		l.retry = redislock.LimitRetry(redislock.LinearBackoff(interval), attempts)
	}
}

// WithLockLogger sets the logger used for release failures
func WithLockLogger(logger *zap.Logger) LockerOption {
	return func(l *RedisDocumentLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisDocumentLocker creates a locker on client. By default a busy lock
// fails immediately.
func NewRedisDocumentLocker(client *redis.Client, opts ...LockerOption) *RedisDocumentLocker {
	l := &RedisDocumentLocker{
		client:  redislock.New(client),
		retry:   redislock.NoRetry(),
		logger:  zap.NewNop(),
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock obtains key for ttl. A lock held elsewhere yields shared.ErrConcurrencyConflict.
func (l *RedisDocumentLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, lockKeyPrefix+key, ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, shared.NewDomainError(shared.CodeConcurrencyConflict,
			"document is being processed by another request")
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %q: %w", key, err)
	}

	return func() {
		// release must still run when the request context is already cancelled
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("failed to release document lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// InMemoryDocumentLocker is the single-instance DocumentLocker used when
// Redis is disabled. It never waits: a held key fails at once.
type InMemoryDocumentLocker struct {
	held *expiringSet
}

// NewInMemoryDocumentLocker creates an empty locker
func NewInMemoryDocumentLocker() *InMemoryDocumentLocker {
	return &InMemoryDocumentLocker{held: newExpiringSet()}
}

// Lock takes key for ttl, failing with shared.ErrConcurrencyConflict when it is held
func (l *InMemoryDocumentLocker) Lock(_ context.Context, key string, ttl time.Duration) (func(), error) {
	exp, ok := l.held.claim(key, ttl)
	if !ok {
		return nil, shared.NewDomainError(shared.CodeConcurrencyConflict,
			"document is being processed by another request")
	}
	return func() { l.held.removeOwned(key, exp) }, nil
}

var (
	_ settlement.DocumentLocker = (*RedisDocumentLocker)(nil)
	_ settlement.DocumentLocker = (*InMemoryDocumentLocker)(nil)
)
