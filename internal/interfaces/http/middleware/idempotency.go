package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/domain/shared"
	"github.com/safee-analytics/odoo/internal/interfaces/http/dto"
)

// IdempotencyKeyHeader lets clients retry a POST without creating twice
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 255

// Idempotency rejects a POST whose Idempotency-Key the same caller already
// used on the same path within ttl. Keys of failed requests are released.
// Store errors let the request through.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponseWithStatus(http.StatusBadRequest, dto.ErrCodeBadRequest,
					"Idempotency-Key is too long", c.GetString(RequestIDKey)))
			return
		}

		scoped := idempotencyScope(c) + ":" + key
		ok, err := store.Claim(c.Request.Context(), scoped, ttl)
		if err != nil {
			log.Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusConflict,
				dto.NewErrorResponseWithStatus(http.StatusConflict, dto.ErrCodeConflict,
					"A request with this Idempotency-Key was already submitted", c.GetString(RequestIDKey)))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Release(context.WithoutCancel(c.Request.Context()), scoped); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}
}

// idempotencyScope ties a key to the caller's credentials and the route
func idempotencyScope(c *gin.Context) string {
	h := sha256.New()
	h.Write([]byte(c.GetHeader("Authorization")))
	h.Write([]byte{0})
	h.Write([]byte(c.GetHeader(APIKeyHeader)))
	h.Write([]byte{0})
	h.Write([]byte(c.Request.URL.Path))
	return hex.EncodeToString(h.Sum(nil))[:32]
}
