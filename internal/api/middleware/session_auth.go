package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/meagent/meagent_service/internal/api/handlers/common"
	"github.com/meagent/meagent_service/internal/domain/services/widget"
)

const sessionContextKey = "widget_session"

// SessionAuthenticator resolves a session id and token to a live session
type SessionAuthenticator interface {
	Authenticate(id, token string) (*widget.Session, error)
}

// WidgetSession requires the session token issued at creation. The token is
// read from the Authorization header, or the token query parameter for
// EventSource clients that cannot set headers.
func WidgetSession(auth SessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			common.RespondUnauthorized(c, "Session token required")
			c.Abort()
			return
		}

		session, err := auth.Authenticate(c.Param("id"), token)
		switch {
		case errors.Is(err, widget.ErrUnauthorized):
			common.RespondUnauthorized(c, "Invalid session token")
			c.Abort()
			return
		case errors.Is(err, widget.ErrSessionNotFound):
			common.RespondNotFound(c, "Session not found")
			c.Abort()
			return
		case err != nil:
			common.RespondInternalError(c, "Failed to resolve session")
			c.Abort()
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// GetWidgetSession returns the session WidgetSession stored on the context
func GetWidgetSession(c *gin.Context) (*widget.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*widget.Session)
	return session, ok
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
