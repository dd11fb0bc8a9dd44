package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meagent/meagent_service/internal/api/handlers/common"
)

// DefaultRequestTimeout bounds non-streaming widget requests
const DefaultRequestTimeout = 30 * time.Second

// TimeoutMiddleware puts a deadline on the request context. A handler that
// returns without writing after the deadline gets a 504.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.RespondError(c, http.StatusGatewayTimeout, "REQUEST_TIMEOUT", "Request processing timeout", nil)
			c.Abort()
		}
	}
}
