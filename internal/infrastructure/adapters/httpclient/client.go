// Package httpclient is the JSON-over-HTTP helper shared by every upstream client.
// Domain clients embed a *Client by composition and only describe their routes.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meagent/meagent_service/pkg/circuitbreaker"
	"github.com/meagent/meagent_service/pkg/metrics"
	"go.uber.org/zap"
)

const (
	maxErrorBody    = 64 << 10
	maxResponseBody = 8 << 20
)

// Config configures one upstream
type Config struct {
	Name    string
	BaseURL string
	// APIKey is sent as x-api-key when set
	APIKey  string
	Timeout time.Duration
}

// Client performs JSON requests against one upstream behind a circuit breaker
type Client struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// New creates a client for cfg
func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	breakerCfg := circuitbreaker.DefaultConfig(cfg.Name, logger)
	breakerCfg.Tripping = func(err error) bool {
		if apiErr, ok := AsAPIError(err); ok {
			return !apiErr.IsClientError()
		}
		return true
	}

	return &Client{
		name:       cfg.Name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuitbreaker.New(breakerCfg),
		logger:     logger.With(zap.String("upstream", cfg.Name)),
	}
}

// WithHTTPClient replaces the underlying transport client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Name returns the upstream name
func (c *Client) Name() string {
	return c.name
}

// Request describes one call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	// BearerToken is sent as Authorization: Bearer when set
	BearerToken string
	Headers     map[string]string
}

// Get issues a GET request and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, token string, out interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, BearerToken: token}, out)
}

// Post issues a POST request with a JSON body and decodes the response into out
func (c *Client) Post(ctx context.Context, path string, body interface{}, token string, out interface{}) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, BearerToken: token}, out)
}

// Do executes req through the circuit breaker. Non-2xx responses become *APIError.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) error {
	start := time.Now()
	var status int
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		status, err = c.do(ctx, req, out)
		return err
	})

	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(c.name, label).Inc()

	if err != nil {
		c.logger.Debug("Upstream request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, req Request, out interface{}) (int, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}
	if req.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.BearerToken)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, parseAPIError(c.name, resp.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	return resp.StatusCode, nil
}
