package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from an upstream JSON API
type APIError struct {
	Upstream   string                 `json:"-"`
	StatusCode int                    `json:"status_code"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s API error [%d]: %s (code: %s, details: %v)", e.Upstream, e.StatusCode, e.Message, e.Code, e.Details)
	}
	return fmt.Sprintf("%s API error [%d]: %s (code: %s)", e.Upstream, e.StatusCode, e.Message, e.Code)
}

// IsNotFound returns true if the error is a 404 not found error
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized returns true if the error is a 401 unauthorized error
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsRateLimited returns true if the error is a 429 rate limit error
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsClientError reports a 4xx response, which says nothing about upstream health
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && !e.IsRateLimited()
}

// AsAPIError unwraps err to an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// parseAPIError builds an APIError from an error body. Upstreams disagree on the
// shape, so "message", "error" and "error.message" are all accepted.
func parseAPIError(upstream string, status int, body []byte) *APIError {
	apiErr := &APIError{Upstream: upstream, StatusCode: status}

	var payload struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Error   json.RawMessage        `json:"error"`
		Details map[string]interface{} `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		apiErr.Details = payload.Details
		if apiErr.Message == "" && len(payload.Error) > 0 {
			var s string
			if json.Unmarshal(payload.Error, &s) == nil {
				apiErr.Message = s
			} else {
				var nested struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				}
				if json.Unmarshal(payload.Error, &nested) == nil {
					apiErr.Message = nested.Message
					if apiErr.Code == "" {
						apiErr.Code = nested.Code
					}
				}
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	if apiErr.Code == "" {
		apiErr.Code = fmt.Sprintf("HTTP_%d", status)
	}
	return apiErr
}
