package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meagent/meagent_service/internal/domain/entities"
)

// GetRequestID returns the id set by the request id middleware
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// RespondError writes an ErrorResponse carrying the request id
func RespondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, entities.ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: GetRequestID(c),
	})
}

func RespondUnauthorized(c *gin.Context, message string) {
	RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

// RespondBadRequest takes at most one details map
func RespondBadRequest(c *gin.Context, message string, details ...map[string]interface{}) {
	var det map[string]interface{}
	if len(details) > 0 {
		det = details[0]
	}
	RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", message, det)
}

func RespondPayloadTooLarge(c *gin.Context, limit int64) {
	RespondError(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large",
		map[string]interface{}{"limit_bytes": limit})
}

func RespondInternalError(c *gin.Context, message string) {
	RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

func RespondNotFound(c *gin.Context, message string) {
	RespondError(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// RespondTooManyRequests asks the caller to wait a minute
func RespondTooManyRequests(c *gin.Context, message string) {
	c.Header("Retry-After", "60")
	RespondError(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", message, nil)
}

func RespondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// RespondAccepted is used when the panel keeps working after the response
func RespondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
