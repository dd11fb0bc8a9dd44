package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondTooManyRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	RespondTooManyRequests(ctx, "slow down")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	var response entities.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", response.Code)
	assert.Equal(t, "slow down", response.Message)
}

func TestRespondError_IncludesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Set("request_id", "req-42")

	RespondNotFound(ctx, "Session not found")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var response entities.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "NOT_FOUND", response.Code)
	assert.Equal(t, "req-42", response.RequestID)
}

func TestRespondBadRequest_Details(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)

	RespondBadRequest(ctx, "unknown action", map[string]interface{}{"action": "fly"})

	var response entities.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "INVALID_REQUEST", response.Code)
	assert.Equal(t, "fly", response.Details["action"])
	assert.Empty(t, response.RequestID)
}
