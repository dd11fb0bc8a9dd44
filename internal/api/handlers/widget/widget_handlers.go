package widget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meagent/meagent_service/internal/api/handlers/common"
	"github.com/meagent/meagent_service/internal/api/middleware"
	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/domain/repositories"
	"github.com/meagent/meagent_service/internal/domain/services/functioncall"
	"github.com/meagent/meagent_service/internal/domain/services/navigation/views"
	widgetsvc "github.com/meagent/meagent_service/internal/domain/services/widget"
	"github.com/meagent/meagent_service/pkg/validation"
	"go.uber.org/zap"
)

const (
	defaultHeartbeat = 15 * time.Second
	redemptionsLimit = 20
)

// SessionRegistry creates and closes widget sessions
type SessionRegistry interface {
	Create(ctx context.Context, req widgetsvc.CreateRequest) (*widgetsvc.Session, string, error)
	Delete(id string) error
}

// RateLimiter takes a token for a key
type RateLimiter interface {
	Allow(key string) bool
}

// WidgetHandlers serves the embedding page: sessions, screens, actions and function calls
type WidgetHandlers struct {
	registry   SessionRegistry
	ledger     repositories.RedemptionLedgerRepository
	otpLimiter RateLimiter
	validator  *validation.Validator
	logger     *zap.Logger
	heartbeat  time.Duration
}

// NewWidgetHandlers creates widget handlers. ledger and otpLimiter may be nil.
func NewWidgetHandlers(registry SessionRegistry, ledger repositories.RedemptionLedgerRepository, otpLimiter RateLimiter, logger *zap.Logger) *WidgetHandlers {
	return &WidgetHandlers{
		registry:   registry,
		ledger:     ledger,
		otpLimiter: otpLimiter,
		validator:  validation.NewValidator(),
		logger:     logger,
		heartbeat:  defaultHeartbeat,
	}
}

type CreateSessionRequest struct {
	Email  string `json:"email" validate:"omitempty,email,max=254"`
	Origin string `json:"origin" validate:"omitempty,url,max=512"`
}

type CreateSessionResponse struct {
	SessionID string       `json:"session_id"`
	Token     string       `json:"token"`
	Screen    views.Screen `json:"screen"`
}

// CreateSession handles POST /widget/sessions
func (h *WidgetHandlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if !h.validator.ValidateJSON(c, &req) {
			return
		}
	}
	if req.Origin == "" {
		req.Origin = c.GetHeader("Origin")
	}

	session, token, err := h.registry.Create(c.Request.Context(), widgetsvc.CreateRequest{Email: req.Email, Origin: req.Origin})
	if err != nil {
		h.logger.Error("Failed to create widget session", zap.Error(err), zap.String("request_id", common.GetRequestID(c)))
		common.RespondInternalError(c, "Failed to create session")
		return
	}

	common.RespondCreated(c, CreateSessionResponse{
		SessionID: session.ID,
		Token:     token,
		Screen:    session.Controller.Screen(),
	})
}

// GetScreen handles GET /widget/sessions/:id/screen
func (h *WidgetHandlers) GetScreen(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	common.RespondSuccess(c, session.Controller.Screen())
}

// StreamEvents handles GET /widget/sessions/:id/events as server-sent events.
// Every screen the panel renders is sent as a "screen" event.
func (h *WidgetHandlers) StreamEvents(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	screens, unsubscribe, err := session.Publisher.Subscribe()
	switch {
	case errors.Is(err, widgetsvc.ErrTooManySubscribers):
		common.RespondTooManyRequests(c, "Too many open event streams for this session")
		return
	case err != nil:
		common.RespondNotFound(c, "Session not found")
		return
	}
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case screen, open := <-screens:
			if !open {
				c.SSEvent("closed", gin.H{"session_id": session.ID})
				c.Writer.Flush()
				return
			}
			session.Touch(time.Now())
			c.SSEvent("screen", screen)
		case now := <-heartbeat.C:
			session.Touch(now)
			c.SSEvent("ping", now.Unix())
		}
		c.Writer.Flush()
	}
}

type ActionRequest struct {
	Action string            `json:"action" validate:"required,max=64"`
	Params map[string]string `json:"params"`
}

type ScreenResponse struct {
	Screen views.Screen `json:"screen"`
}

// PostAction handles POST /widget/sessions/:id/actions
func (h *WidgetHandlers) PostAction(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var req ActionRequest
	if !h.validator.ValidateJSON(c, &req) {
		return
	}

	if rateLimitedAction(req.Action) && h.otpLimiter != nil && !h.otpLimiter.Allow(c.ClientIP()) {
		common.RespondTooManyRequests(c, "Too many passcode requests. Please try again later.")
		return
	}

	if err := h.applyAction(session, req); err != nil {
		common.RespondBadRequest(c, err.Error(), map[string]interface{}{"action": req.Action})
		return
	}
	common.RespondAccepted(c, ScreenResponse{Screen: session.Controller.Screen()})
}

type FunctionCallRequest struct {
	Name      string          `json:"name" validate:"required,max=128"`
	Arguments json.RawMessage `json:"arguments"`
}

type FunctionCallResponse struct {
	Dispatched bool         `json:"dispatched"`
	Screen     views.Screen `json:"screen"`
}

// PostFunctionCall handles POST /widget/sessions/:id/function-calls
func (h *WidgetHandlers) PostFunctionCall(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var req FunctionCallRequest
	if !h.validator.ValidateJSON(c, &req) {
		return
	}

	call, err := functioncall.Decode(req.Name, req.Arguments)
	if err != nil {
		common.RespondBadRequest(c, "Invalid function call arguments", map[string]interface{}{
			"name":  req.Name,
			"error": err.Error(),
		})
		return
	}

	dispatched := functioncall.Dispatch(call, session.Controller, h.logger.With(zap.String("session_id", session.ID)))
	common.RespondAccepted(c, FunctionCallResponse{Dispatched: dispatched, Screen: session.Controller.Screen()})
}

type RedemptionResponse struct {
	ID        string                           `json:"id"`
	Strategy  entities.RedemptionStrategy      `json:"strategy"`
	RewardID  string                           `json:"reward_id"`
	OfferID   string                           `json:"offer_id"`
	Amount    string                           `json:"amount"`
	Status    entities.RedemptionAttemptStatus `json:"status"`
	OrderID   string                           `json:"order_id,omitempty"`
	CreatedAt time.Time                        `json:"created_at"`
}

// ListRedemptions handles GET /widget/sessions/:id/redemptions
func (h *WidgetHandlers) ListRedemptions(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	out := []RedemptionResponse{}
	if h.ledger == nil {
		common.RespondSuccess(c, gin.H{"redemptions": out})
		return
	}

	attempts, err := h.ledger.ListBySession(c.Request.Context(), session.ID, redemptionsLimit)
	if err != nil {
		h.logger.Error("Failed to list redemptions", zap.Error(err), zap.String("session_id", session.ID))
		common.RespondInternalError(c, "Failed to list redemptions")
		return
	}
	for _, a := range attempts {
		r := RedemptionResponse{
			ID:        a.ID.String(),
			Strategy:  a.Strategy,
			RewardID:  a.RewardID,
			OfferID:   a.OfferID,
			Amount:    a.Amount.String(),
			Status:    a.Status,
			CreatedAt: a.CreatedAt,
		}
		if a.OrderID != nil {
			r.OrderID = *a.OrderID
		}
		out = append(out, r)
	}
	common.RespondSuccess(c, gin.H{"redemptions": out})
}

// DeleteSession handles DELETE /widget/sessions/:id
func (h *WidgetHandlers) DeleteSession(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.registry.Delete(session.ID); err != nil {
		if errors.Is(err, widgetsvc.ErrSessionNotFound) {
			common.RespondNotFound(c, "Session not found")
			return
		}
		common.RespondInternalError(c, "Failed to close session")
		return
	}
	common.RespondNoContent(c)
}

func requireSession(c *gin.Context) (*widgetsvc.Session, bool) {
	session, ok := middleware.GetWidgetSession(c)
	if !ok {
		common.RespondUnauthorized(c, "Session token required")
		return nil, false
	}
	return session, true
}
