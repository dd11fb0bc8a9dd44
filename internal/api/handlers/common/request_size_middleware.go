package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodySize bounds widget request bodies
const DefaultMaxBodySize = 1 << 20 // 1 MiB

// MaxRequestBodySizeMiddleware limits request bodies to maxBytes (DefaultMaxBodySize when zero).
func MaxRequestBodySizeMiddleware(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
