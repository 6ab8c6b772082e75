package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/itam/backend/internal/domain/shared"
	"github.com/itam/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the client chosen key of a submit
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyMiddlewareConfig configures duplicate submit detection
type IdempotencyMiddlewareConfig struct {
	Store  shared.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// Idempotency rejects a request whose Idempotency-Key was already used by the
// same user within the TTL. Requests without the header pass through. A key
// is released again when the request does not succeed, so a corrected
// request can reuse it.
func Idempotency(cfg IdempotencyMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}

	return func(c *gin.Context) {
		raw := c.GetHeader(IdempotencyKeyHeader)
		if raw == "" || cfg.Store == nil {
			c.Next()
			return
		}
		if len(raw) > MaxRequestIDLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency key is too long", requestIDOf(c)))
			return
		}

		ctx := c.Request.Context()
		key := idempotencyKey(c, raw)
		claimed, err := cfg.Store.Claim(ctx, key, ttl)
		if err != nil {
			log.Error("Failed to claim idempotency key", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeConflict, "This request was already submitted", requestIDOf(c)))
			return
		}

		c.Next()

		if status := c.Writer.Status(); status < 200 || status >= 300 {
			if err := cfg.Store.Release(ctx, key); err != nil {
				log.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

// idempotencyKey scopes the key to the route and the acting user
func idempotencyKey(c *gin.Context, raw string) string {
	user := c.GetString(JWTUserIDKey)
	if user == "" {
		user = "anonymous"
	}
	return c.Request.Method + ":" + c.FullPath() + ":" + user + ":" + raw
}
