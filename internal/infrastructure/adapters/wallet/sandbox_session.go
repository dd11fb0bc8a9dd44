package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
)

var (
	ErrInvalidOTP      = errors.New("invalid one-time passcode")
	ErrUnknownLogin    = errors.New("unknown login id")
	ErrSandboxNotReady = errors.New("sandbox wallet is not logged in")
)

type sandboxLogin struct {
	email  string
	secret string
}

// SandboxSession is an in-memory wallet provider for development and tests.
// Passcodes are TOTP codes and the wallet is a locally generated secp256k1 key.
type SandboxSession struct {
	issuer string
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	logins   map[string]sandboxLogin
	email    string
	key      *ecdsa.PrivateKey
	lastCode string
}

// NewSandboxSession creates a logged out sandbox wallet
func NewSandboxSession(issuer string, logger *zap.Logger) *SandboxSession {
	return &SandboxSession{
		issuer: issuer,
		logger: logger,
		now:    time.Now,
		logins: make(map[string]sandboxLogin),
	}
}

func (s *SandboxSession) Init(context.Context) error {
	return nil
}

func (s *SandboxSession) IsLoggedIn(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key != nil, nil
}

func (s *SandboxSession) UserMetadata(context.Context) (*entities.UserMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, ErrSandboxNotReady
	}
	return &entities.UserMetadata{
		WalletAddress: crypto.PubkeyToAddress(s.key.PublicKey).Hex(),
		Email:         s.email,
	}, nil
}

// LoginWithEmailOTP issues a TOTP secret for email. The current code is logged
// since the sandbox sends no mail.
func (s *SandboxSession) LoginWithEmailOTP(_ context.Context, email string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.issuer, AccountName: email})
	if err != nil {
		return "", fmt.Errorf("generate otp secret: %w", err)
	}
	code, err := totp.GenerateCode(key.Secret(), s.now())
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}

	loginID := uuid.NewString()
	s.mu.Lock()
	s.logins[loginID] = sandboxLogin{email: email, secret: key.Secret()}
	s.lastCode = code
	s.mu.Unlock()

	s.logger.Info("Sandbox wallet passcode issued", zap.String("login_id", loginID), zap.String("code", code))
	return loginID, nil
}

// VerifyEmailOTP logs the sandbox wallet in when code matches the login's secret
func (s *SandboxSession) VerifyEmailOTP(_ context.Context, loginID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	login, ok := s.logins[loginID]
	if !ok {
		return ErrUnknownLogin
	}
	valid, err := totp.ValidateCustom(strings.TrimSpace(code), login.secret, s.now(), totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: 6,
	})
	if err != nil || !valid {
		return ErrInvalidOTP
	}

	if s.key == nil || !strings.EqualFold(s.email, login.email) {
		key, err := crypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("generate wallet key: %w", err)
		}
		s.key = key
	}
	s.email = login.email
	delete(s.logins, loginID)
	return nil
}

func (s *SandboxSession) Logout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = nil
	s.email = ""
	return nil
}

func (s *SandboxSession) WalletAddress(ctx context.Context) (string, error) {
	meta, err := s.UserMetadata(ctx)
	if err != nil {
		return "", err
	}
	return meta.WalletAddress, nil
}

func (s *SandboxSession) SigningProvider(context.Context) (entities.Signer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return nil, ErrSandboxNotReady
	}
	return &keySigner{key: s.key}, nil
}

// LastCode returns the most recently issued passcode
func (s *SandboxSession) LastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCode
}

type keySigner struct {
	key *ecdsa.PrivateKey
}

func (k *keySigner) Address() string {
	return crypto.PubkeyToAddress(k.key.PublicKey).Hex()
}

func (k *keySigner) SignHash(_ context.Context, hash []byte) ([]byte, error) {
	return crypto.Sign(hash, k.key)
}
