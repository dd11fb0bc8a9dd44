// Package wallet adapts email OTP wallet providers to the redemption orchestrator
package wallet

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/infrastructure/adapters/httpclient"
	"go.uber.org/zap"
)

const sessionHeader = "X-Wallet-Session"

// HTTPSession talks to a hosted wallet provider on behalf of one widget session.
// The provider session is created lazily on first use.
type HTTPSession struct {
	http   *httpclient.Client
	logger *zap.Logger

	mu        sync.Mutex
	sessionID string
}

// NewHTTPSession creates an uninitialized provider session
func NewHTTPSession(client *httpclient.Client, logger *zap.Logger) *HTTPSession {
	return &HTTPSession{http: client, logger: logger}
}

// Init creates the provider session if it does not exist yet
func (s *HTTPSession) Init(ctx context.Context) error {
	_, err := s.ensureSession(ctx)
	return err
}

func (s *HTTPSession) ensureSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessionID != "" {
		return s.sessionID, nil
	}

	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := s.http.Post(ctx, "v1/sessions", struct{}{}, "", &out); err != nil {
		return "", fmt.Errorf("initialize wallet session: %w", err)
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("initialize wallet session: provider returned no session id")
	}
	s.sessionID = out.SessionID
	s.logger.Debug("Wallet provider session created")
	return s.sessionID, nil
}

func (s *HTTPSession) call(ctx context.Context, method, path string, body, out interface{}) error {
	id, err := s.ensureSession(ctx)
	if err != nil {
		return err
	}
	return s.http.Do(ctx, httpclient.Request{
		Method:  method,
		Path:    path,
		Body:    body,
		Headers: map[string]string{sessionHeader: id},
	}, out)
}

func (s *HTTPSession) IsLoggedIn(ctx context.Context) (bool, error) {
	var out struct {
		LoggedIn bool `json:"loggedIn"`
	}
	if err := s.call(ctx, http.MethodGet, "v1/user/logged-in", nil, &out); err != nil {
		return false, fmt.Errorf("check wallet login: %w", err)
	}
	return out.LoggedIn, nil
}

func (s *HTTPSession) UserMetadata(ctx context.Context) (*entities.UserMetadata, error) {
	var out entities.UserMetadata
	if err := s.call(ctx, http.MethodGet, "v1/user/metadata", nil, &out); err != nil {
		return nil, fmt.Errorf("fetch wallet user metadata: %w", err)
	}
	return &out, nil
}

// LoginWithEmailOTP asks the provider to email a one-time passcode and returns the login id
func (s *HTTPSession) LoginWithEmailOTP(ctx context.Context, email string) (string, error) {
	var out struct {
		LoginID string `json:"loginId"`
	}
	if err := s.call(ctx, http.MethodPost, "v1/auth/email-otp", map[string]string{"email": email}, &out); err != nil {
		return "", fmt.Errorf("send email otp: %w", err)
	}
	return out.LoginID, nil
}

// VerifyEmailOTP completes a login started by LoginWithEmailOTP
func (s *HTTPSession) VerifyEmailOTP(ctx context.Context, loginID, code string) error {
	body := map[string]string{"loginId": loginID, "code": code}
	if err := s.call(ctx, http.MethodPost, "v1/auth/email-otp/verify", body, nil); err != nil {
		return fmt.Errorf("verify email otp: %w", err)
	}
	return nil
}

func (s *HTTPSession) Logout(ctx context.Context) error {
	if err := s.call(ctx, http.MethodPost, "v1/user/logout", struct{}{}, nil); err != nil {
		return fmt.Errorf("wallet logout: %w", err)
	}
	return nil
}

func (s *HTTPSession) WalletAddress(ctx context.Context) (string, error) {
	meta, err := s.UserMetadata(ctx)
	if err != nil {
		return "", err
	}
	if meta.WalletAddress == "" {
		return "", fmt.Errorf("wallet provider returned no address")
	}
	return meta.WalletAddress, nil
}

// SigningProvider returns a signer that delegates to the provider's remote signing endpoint
func (s *HTTPSession) SigningProvider(ctx context.Context) (entities.Signer, error) {
	address, err := s.WalletAddress(ctx)
	if err != nil {
		return nil, err
	}
	return &remoteSigner{session: s, address: address}, nil
}

type remoteSigner struct {
	session *HTTPSession
	address string
}

func (r *remoteSigner) Address() string {
	return r.address
}

func (r *remoteSigner) SignHash(ctx context.Context, hash []byte) ([]byte, error) {
	var out struct {
		Signature string `json:"signature"`
	}
	body := map[string]string{"hash": hexutil.Encode(hash)}
	if err := r.session.call(ctx, http.MethodPost, "v1/wallet/sign", body, &out); err != nil {
		return nil, fmt.Errorf("remote sign: %w", err)
	}
	sig, err := hexutil.Decode(out.Signature)
	if err != nil {
		return nil, fmt.Errorf("remote sign: malformed signature: %w", err)
	}
	return sig, nil
}
