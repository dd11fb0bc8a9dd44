package redemption

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockWallet implements WalletSession and OTPVerifier
type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) Init(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockWallet) IsLoggedIn(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockWallet) UserMetadata(ctx context.Context) (*entities.UserMetadata, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UserMetadata), args.Error(1)
}

func (m *MockWallet) LoginWithEmailOTP(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockWallet) VerifyEmailOTP(ctx context.Context, loginID, code string) error {
	return m.Called(ctx, loginID, code).Error(0)
}

func (m *MockWallet) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockWallet) WalletAddress(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockWallet) SigningProvider(ctx context.Context) (entities.Signer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entities.Signer), args.Error(1)
}

type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) Login(ctx context.Context, req entities.LoginRequest) (*entities.LoginResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LoginResult), args.Error(1)
}

type MockRewardAPI struct {
	mock.Mock
}

func (m *MockRewardAPI) Balances(ctx context.Context, token, walletAddress string) ([]entities.RewardBalance, error) {
	args := m.Called(ctx, token, walletAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.RewardBalance), args.Error(1)
}

func (m *MockRewardAPI) SwapAmount(ctx context.Context, token string, req entities.SwapAmountRequest) (*entities.SwapAmountResult, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SwapAmountResult), args.Error(1)
}

type MockRuntimeAPI struct {
	mock.Mock
}

func (m *MockRuntimeAPI) PushTransaction(ctx context.Context, token string, tx entities.SignedTransaction) (entities.PushTransactionResult, error) {
	args := m.Called(ctx, token, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entities.PushTransactionResult), args.Error(1)
}

func (m *MockRuntimeAPI) RefundTask(ctx context.Context, token string, spend entities.SpendData) error {
	return m.Called(ctx, token, spend).Error(0)
}

type MockOrderAPI struct {
	mock.Mock
}

func (m *MockOrderAPI) ProcessOrder(ctx context.Context, token string, req entities.ProcessOrderRequest) (*entities.ProcessOrderResult, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProcessOrderResult), args.Error(1)
}

func (m *MockOrderAPI) CheckoutURL(ctx context.Context, token string, req entities.CheckoutURLRequest) (string, error) {
	args := m.Called(ctx, token, req)
	return args.String(0), args.Error(1)
}

type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) SameBrandRedemption(ctx context.Context, p entities.SameBrandRedemptionParams) (entities.SignedTransaction, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entities.SignedTransaction), args.Error(1)
}

func (m *MockBuilder) SpendReward(ctx context.Context, p entities.SpendRewardParams) (entities.SignedTransaction, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entities.SignedTransaction), args.Error(1)
}

func (m *MockBuilder) VaultPermit(ctx context.Context, p entities.VaultPermitParams) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

type MockRelayer struct {
	mock.Mock
}

func (m *MockRelayer) Relay(ctx context.Context, req entities.RelayRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Create(ctx context.Context, attempt *entities.RedemptionAttempt) error {
	args := m.Called(ctx, attempt)
	if args.Error(0) == nil {
		attempt.ID = uuid.New()
		attempt.Status = entities.RedemptionStatusPending
	}
	return args.Error(0)
}

func (m *MockLedger) UpdateStatus(ctx context.Context, id uuid.UUID, update entities.RedemptionStatusUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

func (m *MockLedger) GetByID(ctx context.Context, id uuid.UUID) (*entities.RedemptionAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RedemptionAttempt), args.Error(1)
}

func (m *MockLedger) ListBySession(ctx context.Context, sessionID string, limit int) ([]*entities.RedemptionAttempt, error) {
	args := m.Called(ctx, sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RedemptionAttempt), args.Error(1)
}

type stubSigner struct {
	address string
}

func (s stubSigner) Address() string { return s.address }

func (s stubSigner) SignHash(context.Context, []byte) ([]byte, error) {
	return make([]byte, 65), nil
}

type testDeps struct {
	wallet  *MockWallet
	auth    *MockAuthAPI
	rewards *MockRewardAPI
	runtime *MockRuntimeAPI
	orders  *MockOrderAPI
	builder *MockBuilder
	relayer *MockRelayer
	sleeps  int
}

const (
	testWallet  = "0x1111111111111111111111111111111111111111"
	testDiamond = "0x2222222222222222222222222222222222222222"
	testToken   = "protocol-token"
)

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		wallet:  new(MockWallet),
		auth:    new(MockAuthAPI),
		rewards: new(MockRewardAPI),
		runtime: new(MockRuntimeAPI),
		orders:  new(MockOrderAPI),
		builder: new(MockBuilder),
		relayer: new(MockRelayer),
	}
	svc := NewService(deps.wallet, deps.auth, deps.rewards, deps.runtime, deps.orders, deps.builder, deps.relayer, Config{
		SessionID:           "session-1",
		BootstrapEmail:      "a@x.com",
		ChainID:             8453,
		RPCURL:              "https://rpc.example",
		RuntimeURL:          "https://runtime.example",
		OpenRewardDiamond:   testDiamond,
		RelayAPIKey:         "relay-key",
		WalletRetryAttempts: 3,
		WalletRetryDelay:    0,
	}, zap.NewNop())
	svc.sleep = func(ctx context.Context, _ time.Duration) error {
		deps.sleeps++
		return ctx.Err()
	}
	return svc, deps
}

// authenticate puts the service in the state reached after LoginToProtocol
func authenticate(svc *Service) {
	svc.mu.Lock()
	svc.creds = entities.SessionCredentials{
		WalletAddress:           testWallet,
		ProtocolToken:           testToken,
		LoggedInEmail:           "a@x.com",
		IsProtocolAuthenticated: true,
	}
	svc.mu.Unlock()
}

func (d *testDeps) assertExpectations(t *testing.T) {
	d.wallet.AssertExpectations(t)
	d.auth.AssertExpectations(t)
	d.rewards.AssertExpectations(t)
	d.runtime.AssertExpectations(t)
	d.orders.AssertExpectations(t)
	d.builder.AssertExpectations(t)
	d.relayer.AssertExpectations(t)
}

func zapNop() *zap.Logger { return zap.NewNop() }
