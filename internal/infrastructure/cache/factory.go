package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KeyStore is an idempotency store whose keys can be released again, so a
// request that failed can be retried with the same Idempotency-Key.
type KeyStore interface {
	shared.IdempotencyStore
	Forget(ctx context.Context, key string) error
}

// Backends bundles the request de-duplication store and the draft locker,
// both on Redis or both in process.
type Backends struct {
	Store  KeyStore
	Locker settlement.DocumentLocker
	Redis  *redis.Client
}

// BackendsOption configures NewBackends
type BackendsOption func(*backendsOptions)

type backendsOptions struct {
	logger        *zap.Logger
	allowFallback bool
	lockRetry     time.Duration
	lockAttempts  int
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) BackendsOption {
	return func(o *backendsOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// in-process backends instead of failing startup. Default is true.
func WithInMemoryFallback(allow bool) BackendsOption {
	return func(o *backendsOptions) {
		o.allowFallback = allow
	}
}

// WithDraftLockRetry makes the Redis locker wait for a busy draft
func WithDraftLockRetry(interval time.Duration, attempts int) BackendsOption {
	return func(o *backendsOptions) {
		o.lockRetry, o.lockAttempts = interval, attempts
	}
}

// NewBackends builds Redis-backed store and locker when cfg.Enabled, and
// in-process ones otherwise. In-process backends do not coordinate between
// instances, so duplicate Idempotency-Keys are only caught per instance.
func NewBackends(ctx context.Context, cfg config.RedisConfig, opts ...BackendsOption) (*Backends, error) {
	o := backendsOptions{logger: zap.NewNop(), allowFallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		o.logger.Info("redis disabled, using in-process idempotency store and draft locks")
		return inMemoryBackends(), nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		if !o.allowFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		o.logger.Warn("redis unavailable, falling back to in-process idempotency store and draft locks",
			zap.String("addr", cfg.Addr()), zap.Error(err))
		return inMemoryBackends(), nil
	}

	lockerOpts := []LockerOption{WithLockLogger(o.logger)}
	if o.lockAttempts > 0 {
		lockerOpts = append(lockerOpts, WithLockRetry(o.lockRetry, o.lockAttempts))
	}
	o.logger.Info("using redis idempotency store and draft locks", zap.String("addr", cfg.Addr()))
	return &Backends{
		Store:  NewRedisIdempotencyStore(client, ""),
		Locker: NewRedisDocumentLocker(client, lockerOpts...),
		Redis:  client,
	}, nil
}

func inMemoryBackends() *Backends {
	return &Backends{
		Store:  NewInMemoryIdempotencyStore(),
		Locker: NewInMemoryDocumentLocker(),
	}
}

// Close releases the store and the Redis connection
func (b *Backends) Close() error {
	var errs []error
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	if b.Redis != nil {
		errs = append(errs, b.Redis.Close())
	}
	return errors.Join(errs...)
}
