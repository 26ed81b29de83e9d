package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxIdempotencyKeyLength = 255

// RequestKeyStore remembers Idempotency-Key values for a while
type RequestKeyStore interface {
	// MarkProcessed records key and reports whether it was new
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget drops key so the request can be retried
	Forget(ctx context.Context, key string) error
}

// Idempotency rejects a replayed mutating request carrying an
// Idempotency-Key that already succeeded, or is still in flight, for the
// same tenant and path. Failed requests release their key. Requests without
// the header pass through untouched.
func Idempotency(store RequestKeyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abortWithError(c, dto.ErrCodeBadRequest, "Idempotency-Key is too long")
			return
		}

		ctx := c.Request.Context()
		storeKey := "http:" + GetTenantUUID(c).String() + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
		fresh, err := store.MarkProcessed(ctx, storeKey, ttl)
		if err != nil {
			logger.L(ctx).Warn("idempotency store unavailable, processing request anyway",
				zap.String("idempotency_key", key), zap.Error(err))
			c.Next()
			return
		}
		if !fresh {
			abortWithError(c, dto.ErrCodeDuplicateRequest, "A request with this Idempotency-Key was already processed")
			return
		}

		c.Next()

		if status := c.Writer.Status(); status < 200 || status >= 300 {
			if err := store.Forget(context.WithoutCancel(ctx), storeKey); err != nil {
				logger.L(ctx).Warn("failed to release idempotency key",
					zap.String("idempotency_key", key), zap.Error(err))
			}
		}
	}
}
