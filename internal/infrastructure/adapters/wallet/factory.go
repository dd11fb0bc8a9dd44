package wallet

import (
	"context"
	"fmt"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/internal/infrastructure/adapters/httpclient"
	"github.com/meagent/meagent_service/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Session is the wallet capability each widget session owns
type Session interface {
	Init(ctx context.Context) error
	IsLoggedIn(ctx context.Context) (bool, error)
	UserMetadata(ctx context.Context) (*entities.UserMetadata, error)
	LoginWithEmailOTP(ctx context.Context, email string) (string, error)
	VerifyEmailOTP(ctx context.Context, loginID, code string) error
	Logout(ctx context.Context) error
	WalletAddress(ctx context.Context) (string, error)
	SigningProvider(ctx context.Context) (entities.Signer, error)
}

// Factory creates a fresh wallet session for a new widget session
type Factory func() Session

// NewFactory selects the provider named in cfg. HTTP sessions share one client and breaker.
func NewFactory(cfg config.WalletConfig, logger *zap.Logger) (Factory, error) {
	switch cfg.Provider {
	case "http":
		client := httpclient.New(httpclient.Config{
			Name:    "wallet",
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}, logger)
		return func() Session { return NewHTTPSession(client, logger) }, nil
	case "sandbox":
		logger.Warn("Using sandbox wallet provider; passcodes are written to the log")
		return func() Session { return NewSandboxSession(cfg.SandboxIssuer, logger) }, nil
	default:
		return nil, fmt.Errorf("unknown wallet provider %q", cfg.Provider)
	}
}
