// Package redemption owns a widget session's credentials and runs the
// authentication, balance and redemption verbs against the wallet and backend.
package redemption

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/domain/repositories"
	"github.com/meagent/meagent_service/internal/pkg/util"
	"github.com/meagent/meagent_service/pkg/metrics"
	"github.com/meagent/meagent_service/pkg/tracing"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrNoPendingLogin is returned when a passcode is submitted before one was sent
var ErrNoPendingLogin = errors.New("no passcode has been sent for this session")

// Config holds the chain and retry settings of one session
type Config struct {
	SessionID         string
	BootstrapEmail    string
	ChainID           int64
	RPCURL            string
	RuntimeURL        string
	OpenRewardDiamond string
	RelayAPIKey       string

	WalletRetryAttempts int
	WalletRetryDelay    time.Duration
}

// Service is the redemption orchestrator of one widget session
type Service struct {
	wallet  WalletSession
	auth    AuthAPI
	rewards RewardAPI
	runtime RuntimeAPI
	orders  OrderAPI
	builder TransactionBuilder
	relayer Relayer
	ledger  repositories.RedemptionLedgerRepository
	cfg     Config
	logger  *zap.Logger
	tracer  trace.Tracer
	sleep   func(ctx context.Context, d time.Duration) error

	mu           sync.Mutex
	creds        entities.SessionCredentials
	email        string
	loginID      string
	balances     []entities.RewardBalance
	currentOrder *entities.RedemptionOrder
}

// NewService creates a new redemption orchestrator
func NewService(
	wallet WalletSession,
	auth AuthAPI,
	rewards RewardAPI,
	runtime RuntimeAPI,
	orders OrderAPI,
	builder TransactionBuilder,
	relayer Relayer,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.WalletRetryAttempts <= 0 {
		cfg.WalletRetryAttempts = 3
	}
	return &Service{
		wallet:  wallet,
		auth:    auth,
		rewards: rewards,
		runtime: runtime,
		orders:  orders,
		builder: builder,
		relayer: relayer,
		cfg:     cfg,
		logger:  logger.With(zap.String("session_id", cfg.SessionID)),
		tracer:  tracing.Tracer("redemption"),
		sleep:   sleepContext,
	}
}

// SetLedger enables recording of redemption attempts
func (s *Service) SetLedger(ledger repositories.RedemptionLedgerRepository) {
	s.ledger = ledger
}

// Email returns the explicitly set email, else the bootstrap email, else ""
func (s *Service) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.email != "" {
		return s.email
	}
	return s.cfg.BootstrapEmail
}

// IsAuthenticated reports the wallet login state. Adapter errors read as false.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	if s.wallet == nil {
		return false
	}
	ok, err := s.wallet.IsLoggedIn(ctx)
	if err != nil {
		s.logger.Debug("Wallet login check failed", zap.Error(err))
		return false
	}
	return ok
}

// WalletAddress returns the cached address unless forceRefresh is set. On a
// miss it requires a logged in wallet, then retries the fetch with a fixed delay.
func (s *Service) WalletAddress(ctx context.Context, forceRefresh bool) (string, error) {
	if s.wallet == nil {
		return "", entities.ErrWalletNotConfigured
	}
	if !forceRefresh {
		s.mu.Lock()
		cached := s.creds.WalletAddress
		s.mu.Unlock()
		if cached != "" {
			return cached, nil
		}
	}

	loggedIn, err := s.wallet.IsLoggedIn(ctx)
	if err != nil {
		return "", fmt.Errorf("check wallet login: %w", err)
	}
	if !loggedIn {
		return "", entities.ErrWalletNotLoggedIn
	}

	attempts := s.cfg.WalletRetryAttempts
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		address, err := s.wallet.WalletAddress(ctx)
		if err == nil && address != "" {
			s.mu.Lock()
			s.creds.WalletAddress = address
			s.mu.Unlock()
			return address, nil
		}
		if err == nil {
			err = errors.New("wallet returned an empty address")
		}
		lastErr = err

		if attempt < attempts {
			metrics.WalletAddressRetriesTotal.Inc()
			s.logger.Debug("Wallet address not ready, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if err := s.sleep(ctx, s.cfg.WalletRetryDelay); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", entities.ErrWalletAddressUnavailable, attempts, lastErr)
}

// SendOTP records email as the session email and asks the wallet to send a passcode
func (s *Service) SendOTP(ctx context.Context, email string) error {
	if s.wallet == nil {
		return entities.ErrWalletNotConfigured
	}
	s.mu.Lock()
	s.email = email
	s.mu.Unlock()

	loginID, err := s.wallet.LoginWithEmailOTP(ctx, email)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.loginID = loginID
	s.mu.Unlock()
	s.logger.Info("Passcode sent", zap.String("email_hash", util.RedactEmail(email)))
	return nil
}

// VerifyOTP submits the passcode for the pending login
func (s *Service) VerifyOTP(ctx context.Context, code string) error {
	verifier, ok := s.wallet.(OTPVerifier)
	if !ok {
		return entities.ErrWalletNotConfigured
	}
	s.mu.Lock()
	loginID := s.loginID
	s.mu.Unlock()
	if loginID == "" {
		return ErrNoPendingLogin
	}

	if err := verifier.VerifyEmailOTP(ctx, loginID, code); err != nil {
		return err
	}

	s.mu.Lock()
	s.loginID = ""
	s.creds.WalletAddress = ""
	s.mu.Unlock()
	return nil
}

// LoginToProtocol exchanges email and the freshest wallet address for a protocol
// token. It may create a backend account, so it is never retried.
func (s *Service) LoginToProtocol(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "redemption.LoginToProtocol")
	defer func() { tracing.EndSpan(span, err) }()

	email := s.Email()
	if email == "" {
		return entities.ErrEmailRequired
	}
	address, err := s.WalletAddress(ctx, true)
	if err != nil {
		return err
	}

	res, err := s.auth.Login(ctx, entities.LoginRequest{Email: email, WalletAddress: address})
	if err != nil {
		return fmt.Errorf("%w: %w", entities.ErrLoginFailed, err)
	}
	if res == nil || res.User == nil || res.Token == "" {
		return fmt.Errorf("%w: response missing user or token", entities.ErrLoginFailed)
	}

	s.mu.Lock()
	s.creds.ProtocolToken = res.Token
	s.creds.IsProtocolAuthenticated = true
	s.creds.LoggedInEmail = email
	s.mu.Unlock()

	s.logger.Info("Logged in to reward protocol",
		zap.String("email_hash", util.RedactEmail(email)),
		zap.String("wallet", util.RedactAddress(address)))
	return nil
}

// FetchBalances loads and caches the wallet's reward balances
func (s *Service) FetchBalances(ctx context.Context) (balances []entities.RewardBalance, err error) {
	token, err := s.requireToken()
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "redemption.FetchBalances")
	defer func() { tracing.EndSpan(span, err) }()

	address, err := s.WalletAddress(ctx, false)
	if err != nil {
		return nil, err
	}
	balances, err = s.rewards.Balances(ctx, token, address)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("balances", len(balances)))

	s.mu.Lock()
	s.balances = balances
	s.mu.Unlock()
	return balances, nil
}

// CachedBalances returns the balances of the last successful fetch
func (s *Service) CachedBalances() []entities.RewardBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.RewardBalance, len(s.balances))
	copy(out, s.balances)
	return out
}

// CalculateSwapAmount prices offer in units of the selected reward. The variant
// is the explicit one, else the offer's first product variant, else none.
func (s *Service) CalculateSwapAmount(ctx context.Context, selectedRewardAddress string, offer *entities.OfferDetail, variantID string) (result *entities.SwapAmountResult, err error) {
	token, err := s.requireToken()
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, errors.New("offer detail is required")
	}
	ctx, span := s.tracer.Start(ctx, "redemption.CalculateSwapAmount")
	defer func() { tracing.EndSpan(span, err) }()

	address, err := s.WalletAddress(ctx, false)
	if err != nil {
		return nil, err
	}
	if variantID == "" {
		variantID = offer.DefaultProductVariantID()
	}

	return s.rewards.SwapAmount(ctx, token, entities.SwapAmountRequest{
		WalletAddress:       address,
		InputRewardAddress:  selectedRewardAddress,
		OutputRewardAddress: offer.Reward.ContractAddress,
		RedemptionMethodID:  offer.RedemptionMethod.ID,
		OfferID:             offer.ID,
		BrandID:             offer.Brand.ID,
		ProductVariantID:    variantID,
	})
}

// CanAffordOffer reports whether reward covers amountNeeded. Equal is affordable.
func (s *Service) CanAffordOffer(reward entities.RewardBalance, amountNeeded decimal.Decimal) bool {
	return reward.Balance.GreaterThanOrEqual(amountNeeded)
}

func (s *Service) ClearWalletAddressCache() {
	s.mu.Lock()
	s.creds.WalletAddress = ""
	s.mu.Unlock()
}

// ClearCache drops the wallet address, balances and current order
func (s *Service) ClearCache() {
	s.mu.Lock()
	s.creds.WalletAddress = ""
	s.balances = nil
	s.currentOrder = nil
	s.mu.Unlock()
}

// Logout does nothing: users stay signed in to the wallet provider across
// sessions. Use VerifyEmailBinding to force a re-login.
func (s *Service) Logout(context.Context) error {
	s.logger.Debug("Logout requested; wallet session kept")
	return nil
}

// Credentials returns a snapshot of the session credentials
func (s *Service) Credentials() entities.SessionCredentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// CurrentOrder returns the order created by the last successful redemption
func (s *Service) CurrentOrder() *entities.RedemptionOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentOrder == nil {
		return nil
	}
	order := *s.currentOrder
	return &order
}

// VerifyEmailBinding compares the wallet's email with the session email. On a
// mismatch the wallet is logged out and credentials cleared so the user logs in again.
func (s *Service) VerifyEmailBinding(ctx context.Context) error {
	if s.wallet == nil {
		return entities.ErrWalletNotConfigured
	}
	expected := util.NormalizeEmail(s.Email())
	if expected == "" {
		return nil
	}
	meta, err := s.wallet.UserMetadata(ctx)
	if err != nil {
		return fmt.Errorf("fetch wallet user: %w", err)
	}
	if util.NormalizeEmail(meta.Email) == expected {
		return nil
	}

	s.logger.Warn("Wallet email does not match session email",
		zap.String("wallet_email_hash", util.RedactEmail(meta.Email)),
		zap.String("session_email_hash", util.RedactEmail(expected)))
	if err := s.wallet.Logout(ctx); err != nil {
		s.logger.Error("Failed to log out mismatched wallet", zap.Error(err))
	}

	s.mu.Lock()
	s.creds = entities.SessionCredentials{}
	s.balances = nil
	s.currentOrder = nil
	s.mu.Unlock()
	return entities.ErrEmailMismatch
}

func (s *Service) requireToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.creds.HasProtocolToken() {
		return "", entities.ErrProtocolTokenMissing
	}
	return s.creds.ProtocolToken, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
