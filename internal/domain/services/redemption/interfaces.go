package redemption

import (
	"context"

	"github.com/meagent/meagent_service/internal/domain/entities"
)

// WalletSession is the email OTP wallet provider of one widget session
type WalletSession interface {
	Init(ctx context.Context) error
	IsLoggedIn(ctx context.Context) (bool, error)
	UserMetadata(ctx context.Context) (*entities.UserMetadata, error)
	LoginWithEmailOTP(ctx context.Context, email string) (string, error)
	Logout(ctx context.Context) error
	WalletAddress(ctx context.Context) (string, error)
	SigningProvider(ctx context.Context) (entities.Signer, error)
}

// OTPVerifier is implemented by wallet sessions that accept the passcode server side
type OTPVerifier interface {
	VerifyEmailOTP(ctx context.Context, loginID, code string) error
}

type AuthAPI interface {
	Login(ctx context.Context, req entities.LoginRequest) (*entities.LoginResult, error)
}

type RewardAPI interface {
	Balances(ctx context.Context, token, walletAddress string) ([]entities.RewardBalance, error)
	SwapAmount(ctx context.Context, token string, req entities.SwapAmountRequest) (*entities.SwapAmountResult, error)
}

type RuntimeAPI interface {
	PushTransaction(ctx context.Context, token string, tx entities.SignedTransaction) (entities.PushTransactionResult, error)
	RefundTask(ctx context.Context, token string, spend entities.SpendData) error
}

type OrderAPI interface {
	ProcessOrder(ctx context.Context, token string, req entities.ProcessOrderRequest) (*entities.ProcessOrderResult, error)
	CheckoutURL(ctx context.Context, token string, req entities.CheckoutURLRequest) (string, error)
}

// TransactionBuilder produces the signed artifacts of both redemption paths
type TransactionBuilder interface {
	SameBrandRedemption(ctx context.Context, p entities.SameBrandRedemptionParams) (entities.SignedTransaction, error)
	SpendReward(ctx context.Context, p entities.SpendRewardParams) (entities.SignedTransaction, error)
	VaultPermit(ctx context.Context, p entities.VaultPermitParams) (string, error)
}

// Relayer submits permit call data and returns the relay task id
type Relayer interface {
	Relay(ctx context.Context, req entities.RelayRequest) (string, error)
}
