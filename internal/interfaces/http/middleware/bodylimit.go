package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itam/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects bodies larger than maxBytes. Requests without a
// Content-Length are cut off while the handler reads them.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", requestIDOf(c)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
