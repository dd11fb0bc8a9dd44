package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the widget service
type Config struct {
	Environment string         `mapstructure:"environment" validate:"required,oneof=development staging production test"`
	LogLevel    string         `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	Server      ServerConfig   `mapstructure:"server"`
	Backend     BackendConfig  `mapstructure:"backend"`
	Wallet      WalletConfig   `mapstructure:"wallet"`
	Chain       ChainConfig    `mapstructure:"chain"`
	Relay       RelayConfig    `mapstructure:"relay"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Session     SessionConfig  `mapstructure:"session"`
	Widget      WidgetConfig   `mapstructure:"widget"`
	Tracing     TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout       int           `mapstructure:"read_timeout" validate:"min=1"`
	WriteTimeout      int           `mapstructure:"write_timeout" validate:"min=0"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	OTPRatePerMin     int           `mapstructure:"otp_rate_per_minute" validate:"min=1"`
	SessionRatePerMin int           `mapstructure:"session_rate_per_minute" validate:"min=1"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// BackendConfig points at the reward protocol REST API
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WalletConfig selects the wallet session provider
type WalletConfig struct {
	Provider string        `mapstructure:"provider" validate:"required,oneof=http sandbox"`
	BaseURL  string        `mapstructure:"base_url" validate:"required_if=Provider http,omitempty,url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// SandboxIssuer labels sandbox TOTP secrets
	SandboxIssuer string `mapstructure:"sandbox_issuer"`
}

type ChainConfig struct {
	ChainID           int64  `mapstructure:"chain_id" validate:"required,min=1"`
	RPCURL            string `mapstructure:"rpc_url" validate:"required,url"`
	RuntimeURL        string `mapstructure:"runtime_url" validate:"required,url"`
	OpenRewardDiamond string `mapstructure:"open_reward_diamond" validate:"required,evm_address"`
}

type RelayConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	HederaBaseURL string        `mapstructure:"hedera_base_url" validate:"omitempty,url"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig configures the optional redemption ledger
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig configures the optional catalog cache
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SessionConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	JanitorSpec   string        `mapstructure:"janitor_spec" validate:"required"`
	MaxSubscriber int           `mapstructure:"max_subscribers" validate:"min=1"`
}

// WidgetConfig holds the timings of the redemption flow
type WidgetConfig struct {
	OTPPollInterval     time.Duration `mapstructure:"otp_poll_interval"`
	OTPPollTimeout      time.Duration `mapstructure:"otp_poll_timeout"`
	WalletRetryAttempts int           `mapstructure:"wallet_retry_attempts" validate:"min=1"`
	WalletRetryDelay    time.Duration `mapstructure:"wallet_retry_delay"`
}

type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	CollectorURL string `mapstructure:"collector_url"`
}

// Load reads .env, an optional config.yaml and MEAGENT_* environment overrides
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("MEAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and cross-field rules
func (c *Config) Validate() error {
	validate := validator.New()
	_ = validate.RegisterValidation("evm_address", func(fl validator.FieldLevel) bool {
		return common.IsHexAddress(fl.Field().String())
	})
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Environment == "production" && c.Wallet.Provider == "sandbox" {
		return errors.New("invalid configuration: sandbox wallet provider is not allowed in production")
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15)
	v.SetDefault("server.write_timeout", 0)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.otp_rate_per_minute", 5)
	v.SetDefault("server.session_rate_per_minute", 30)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("backend.base_url", "http://localhost:3000/api")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.timeout", 20*time.Second)

	v.SetDefault("wallet.provider", "sandbox")
	v.SetDefault("wallet.base_url", "")
	v.SetDefault("wallet.api_key", "")
	v.SetDefault("wallet.timeout", 15*time.Second)
	v.SetDefault("wallet.sandbox_issuer", "MeAgent")

	v.SetDefault("chain.chain_id", 84532)
	v.SetDefault("chain.rpc_url", "https://sepolia.base.org")
	v.SetDefault("chain.runtime_url", "http://localhost:3000/api/runtime")
	v.SetDefault("chain.open_reward_diamond", "0x0000000000000000000000000000000000000000")

	v.SetDefault("relay.base_url", "https://api.gelato.digital")
	v.SetDefault("relay.hedera_base_url", "")
	v.SetDefault("relay.api_key", "")
	v.SetDefault("relay.timeout", 20*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("session.jwt_secret", "")
	v.SetDefault("session.token_ttl", 12*time.Hour)
	v.SetDefault("session.idle_timeout", 30*time.Minute)
	v.SetDefault("session.janitor_spec", "@every 1m")
	v.SetDefault("session.max_subscribers", 4)

	v.SetDefault("widget.otp_poll_interval", 2*time.Second)
	v.SetDefault("widget.otp_poll_timeout", 5*time.Minute)
	v.SetDefault("widget.wallet_retry_attempts", 3)
	v.SetDefault("widget.wallet_retry_delay", time.Second)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.collector_url", "localhost:4317")
}
