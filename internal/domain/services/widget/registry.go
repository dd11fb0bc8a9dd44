// Package widget holds the live widget sessions: one redemption orchestrator,
// detail panel controller and screen broadcaster per embedding page.
package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meagent/meagent_service/internal/domain/repositories"
	"github.com/meagent/meagent_service/internal/domain/services/navigation"
	"github.com/meagent/meagent_service/internal/domain/services/redemption"
	"github.com/meagent/meagent_service/internal/pkg/util"
	"github.com/meagent/meagent_service/pkg/auth"
	"github.com/meagent/meagent_service/pkg/metrics"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("widget session not found")
	ErrUnauthorized    = errors.New("widget session token rejected")
)

// Dependencies are the shared upstream clients every session is built from
type Dependencies struct {
	NewWallet func() redemption.WalletSession
	Auth      redemption.AuthAPI
	Rewards   redemption.RewardAPI
	Runtime   redemption.RuntimeAPI
	Orders    redemption.OrderAPI
	Builder   redemption.TransactionBuilder
	Relayer   redemption.Relayer
	Ledger    repositories.RedemptionLedgerRepository
	Catalog   navigation.Catalog

	// Redemption is copied per session with SessionID and BootstrapEmail filled in
	Redemption redemption.Config
	Navigation navigation.Config
}

// Config controls session lifetime
type Config struct {
	IdleTimeout    time.Duration
	MaxSubscribers int
}

// Session is one embedding page's widget state
type Session struct {
	ID           string
	CreatedAt    time.Time
	Orchestrator *redemption.Service
	Controller   *navigation.Controller
	Publisher    *Broadcaster

	mu       sync.Mutex
	lastSeen time.Time
}

// Touch marks the session as used at t
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

// LastSeen returns the last time the page used the session
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.Controller.Close()
	s.Publisher.Close()
}

// CreateRequest carries what the page knows when it opens the widget
type CreateRequest struct {
	Email  string
	Origin string
}

// Registry owns the live sessions
type Registry struct {
	deps   Dependencies
	tokens *auth.SessionTokens
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. A zero IdleTimeout defaults to 30 minutes.
func NewRegistry(deps Dependencies, tokens *auth.SessionTokens, cfg Config, logger *zap.Logger) *Registry {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	return &Registry{
		deps:     deps,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create builds a session and returns it with the token the page must present
func (r *Registry) Create(_ context.Context, req CreateRequest) (*Session, string, error) {
	id := uuid.New().String()
	token, _, err := r.tokens.Issue(id, req.Origin)
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}

	var wallet redemption.WalletSession
	if r.deps.NewWallet != nil {
		wallet = r.deps.NewWallet()
	}
	rcfg := r.deps.Redemption
	rcfg.SessionID = id
	rcfg.BootstrapEmail = req.Email

	orch := redemption.NewService(wallet, r.deps.Auth, r.deps.Rewards, r.deps.Runtime, r.deps.Orders,
		r.deps.Builder, r.deps.Relayer, rcfg, r.logger)
	if r.deps.Ledger != nil {
		orch.SetLedger(r.deps.Ledger)
	}
	publisher := NewBroadcaster(r.cfg.MaxSubscribers)
	controller := navigation.NewController(orch, r.deps.Catalog, publisher, r.deps.Navigation,
		r.logger.With(zap.String("session_id", id)))

	now := r.now()
	session := &Session{
		ID:           id,
		CreatedAt:    now,
		Orchestrator: orch,
		Controller:   controller,
		Publisher:    publisher,
		lastSeen:     now,
	}

	r.mu.Lock()
	r.sessions[id] = session
	count := len(r.sessions)
	r.mu.Unlock()
	metrics.ActiveSessionsGauge.Set(float64(count))

	r.logger.Info("Widget session created",
		zap.String("session_id", id),
		zap.String("origin", req.Origin),
		zap.String("email_hash", util.RedactEmail(req.Email)))
	return session, token, nil
}

// Get returns the session and marks it used
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.Touch(r.now())
	return session, nil
}

// Authenticate validates token for session id and returns the session
func (r *Registry) Authenticate(id, token string) (*Session, error) {
	if _, err := r.tokens.Validate(token, id); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return r.Get(id)
}

// Delete closes and forgets a session
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	count := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	metrics.ActiveSessionsGauge.Set(float64(count))
	session.close()
	r.logger.Info("Widget session closed", zap.String("session_id", id))
	return nil
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdle closes sessions unused for longer than the idle timeout and
// returns how many were evicted. Sessions with an open event stream stay.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) && s.Publisher.Subscribers() == 0 {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	count := len(r.sessions)
	r.mu.Unlock()

	for _, s := range idle {
		s.close()
	}
	if len(idle) > 0 {
		metrics.SessionsEvictedTotal.Add(float64(len(idle)))
		r.logger.Info("Evicted idle widget sessions", zap.Int("evicted", len(idle)), zap.Int("remaining", count))
	}
	metrics.ActiveSessionsGauge.Set(float64(count))
	return len(idle)
}

// CloseAll closes every session
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	metrics.ActiveSessionsGauge.Set(0)
}
