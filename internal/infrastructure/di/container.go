package di

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/meagent/meagent_service/internal/api/handlers"
	"github.com/meagent/meagent_service/internal/api/middleware"
	"github.com/meagent/meagent_service/internal/domain/repositories"
	"github.com/meagent/meagent_service/internal/domain/services/catalog"
	"github.com/meagent/meagent_service/internal/domain/services/navigation"
	"github.com/meagent/meagent_service/internal/domain/services/redemption"
	"github.com/meagent/meagent_service/internal/domain/services/widget"
	"github.com/meagent/meagent_service/internal/infrastructure/adapters/backend"
	"github.com/meagent/meagent_service/internal/infrastructure/adapters/chain"
	"github.com/meagent/meagent_service/internal/infrastructure/adapters/httpclient"
	"github.com/meagent/meagent_service/internal/infrastructure/adapters/wallet"
	"github.com/meagent/meagent_service/internal/infrastructure/cache"
	"github.com/meagent/meagent_service/internal/infrastructure/config"
	infraRepos "github.com/meagent/meagent_service/internal/infrastructure/repositories"
	"github.com/meagent/meagent_service/pkg/auth"
	"github.com/meagent/meagent_service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container holds the shared clients and services of the widget service
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Redis  *redis.Client
	Logger *logger.Logger
	ZapLog *zap.Logger

	// Upstreams
	Gateway       *backend.Gateway
	Builder       *chain.Builder
	Relay         *chain.Relay
	WalletFactory wallet.Factory

	// Domain
	LedgerRepo     repositories.RedemptionLedgerRepository
	CatalogService *catalog.Service
	SessionTokens  *auth.SessionTokens
	Registry       *widget.Registry

	// HTTP
	SessionRateLimiter *middleware.IPRateLimiter
	OTPRateLimiter     *middleware.IPRateLimiter
	WidgetHandlers     *handlers.WidgetHandlers
	HealthHandler      *handlers.HealthHandler
}

// NewContainer wires the service. db may be nil when no ledger database is configured.
func NewContainer(cfg *config.Config, db *sqlx.DB, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		DB:     db,
		Logger: log,
		ZapLog: log.Zap(),
	}

	if err := c.initializeUpstreams(); err != nil {
		return nil, err
	}
	c.initializeStorage()
	c.initializeDomain()
	c.initializeHTTP()

	return c, nil
}

func (c *Container) initializeUpstreams() error {
	cfg := c.Config

	c.Gateway = backend.NewGateway(httpclient.Config{
		Name:    "backend",
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout,
	}, c.ZapLog)

	builder, err := chain.NewBuilder()
	if err != nil {
		return fmt.Errorf("failed to create transaction builder: %w", err)
	}
	c.Builder = builder

	gelato := httpclient.New(httpclient.Config{
		Name:    "relay",
		BaseURL: cfg.Relay.BaseURL,
		APIKey:  cfg.Relay.APIKey,
		Timeout: cfg.Relay.Timeout,
	}, c.ZapLog)
	var hedera *httpclient.Client
	if cfg.Relay.HederaBaseURL != "" {
		hedera = httpclient.New(httpclient.Config{
			Name:    "hedera_relay",
			BaseURL: cfg.Relay.HederaBaseURL,
			APIKey:  cfg.Relay.APIKey,
			Timeout: cfg.Relay.Timeout,
		}, c.ZapLog)
	}
	c.Relay = chain.NewRelay(gelato, hedera)

	factory, err := wallet.NewFactory(cfg.Wallet, c.ZapLog)
	if err != nil {
		return fmt.Errorf("failed to create wallet factory: %w", err)
	}
	c.WalletFactory = factory
	return nil
}

// initializeStorage enables the ledger and the catalog cache when configured
func (c *Container) initializeStorage() {
	if c.DB != nil {
		c.LedgerRepo = infraRepos.NewRedemptionLedgerRepository(c.DB)
	} else {
		c.Logger.Warn("No database configured; redemption ledger disabled")
	}

	var catalogCache repositories.CatalogCache
	if c.Config.Redis.Addr != "" {
		c.Redis = cache.NewRedisClient(c.Config.Redis)
		catalogCache = cache.NewCatalogCache(c.Redis, c.Config.Redis.TTL)
	}
	c.CatalogService = catalog.NewService(c.Gateway.Catalog, catalogCache, c.ZapLog)
}

func (c *Container) initializeDomain() {
	cfg := c.Config
	c.SessionTokens = auth.NewSessionTokens(cfg.Session.JWTSecret, cfg.Session.TokenTTL)

	factory := c.WalletFactory
	deps := widget.Dependencies{
		NewWallet: func() redemption.WalletSession { return factory() },
		Auth:      c.Gateway.Auth,
		Rewards:   c.Gateway.Rewards,
		Runtime:   c.Gateway.Runtime,
		Orders:    c.Gateway.Orders,
		Builder:   c.Builder,
		Relayer:   c.Relay,
		Catalog:   c.CatalogService,
		Redemption: redemption.Config{
			ChainID:             cfg.Chain.ChainID,
			RPCURL:              cfg.Chain.RPCURL,
			RuntimeURL:          cfg.Chain.RuntimeURL,
			OpenRewardDiamond:   cfg.Chain.OpenRewardDiamond,
			RelayAPIKey:         cfg.Relay.APIKey,
			WalletRetryAttempts: cfg.Widget.WalletRetryAttempts,
			WalletRetryDelay:    cfg.Widget.WalletRetryDelay,
		},
		Navigation: navigation.Config{
			OTPPollInterval: cfg.Widget.OTPPollInterval,
			OTPPollTimeout:  cfg.Widget.OTPPollTimeout,
		},
	}
	if c.LedgerRepo != nil {
		deps.Ledger = c.LedgerRepo
	}

	c.Registry = widget.NewRegistry(deps, c.SessionTokens, widget.Config{
		IdleTimeout:    cfg.Session.IdleTimeout,
		MaxSubscribers: cfg.Session.MaxSubscriber,
	}, c.ZapLog)
}

func (c *Container) initializeHTTP() {
	c.SessionRateLimiter = middleware.NewIPRateLimiter(c.Config.Server.SessionRatePerMin)
	c.OTPRateLimiter = middleware.NewIPRateLimiter(c.Config.Server.OTPRatePerMin)
	c.WidgetHandlers = handlers.NewWidgetHandlers(c.Registry, c.LedgerRepo, c.OTPRateLimiter, c.ZapLog)
	c.HealthHandler = handlers.NewHealthHandler(c.healthChecks())
}

func (c *Container) healthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{}
	if c.DB != nil {
		checks["database"] = func(ctx context.Context) error { return c.DB.PingContext(ctx) }
	}
	if c.Redis != nil {
		checks["cache"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases the storage clients
func (c *Container) Close() {
	c.Registry.CloseAll()
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Failed to close redis client", "error", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Logger.Warn("Failed to close database", "error", err)
		}
	}
}
