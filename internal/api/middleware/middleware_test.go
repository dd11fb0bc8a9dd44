package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meagent/meagent_service/internal/domain/services/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(id, token string) (*widget.Session, error) {
	args := m.Called(id, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*widget.Session), args.Error(1)
}

func newSessionRouter(auth SessionAuthenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/sessions/:id", WidgetSession(auth), func(c *gin.Context) {
		session, ok := GetWidgetSession(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": session.ID})
	})
	return router
}

func TestWidgetSession(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		query      string
		authErr    error
		wantStatus int
	}{
		{name: "bearer header", header: "Bearer tok", wantStatus: http.StatusOK},
		{name: "query token", query: "?token=tok", wantStatus: http.StatusOK},
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "rejected token", header: "Bearer tok", authErr: fmt.Errorf("%w: expired", widget.ErrUnauthorized), wantStatus: http.StatusUnauthorized},
		{name: "unknown session", header: "Bearer tok", authErr: widget.ErrSessionNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := new(MockAuthenticator)
			if tt.authErr != nil {
				auth.On("Authenticate", "sess-1", "tok").Return(nil, tt.authErr)
			} else {
				auth.On("Authenticate", "sess-1", "tok").Return(&widget.Session{ID: "sess-1"}, nil)
			}
			router := newSessionRouter(auth)

			req := httptest.NewRequest(http.MethodGet, "/sessions/sess-1"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), "sess-1")
			}
		})
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS([]string{"https://shop.example", ".partner.example"}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://shop.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("subdomain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://store.partner.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "https://store.partner.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "https://shop.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestTimeoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(TimeoutMiddleware(10 * time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	router.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "REQUEST_TIMEOUT")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
