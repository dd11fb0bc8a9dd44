package redemption

import (
	"context"
	"errors"
	"testing"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	svc, deps := newTestService(t)
	assert.Equal(t, "a@x.com", svc.Email())

	deps.wallet.On("LoginWithEmailOTP", mock.Anything, "b@y.com").Return("login-1", nil).Once()
	require.NoError(t, svc.SendOTP(context.Background(), "b@y.com"))
	assert.Equal(t, "b@y.com", svc.Email())

	svc.cfg.BootstrapEmail = ""
	svc.email = ""
	assert.Equal(t, "", svc.Email())
}

func TestIsAuthenticated(t *testing.T) {
	t.Run("delegates to wallet", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.wallet.On("IsLoggedIn", mock.Anything).Return(true, nil).Once()
		assert.True(t, svc.IsAuthenticated(context.Background()))
	})

	t.Run("adapter error reads as false", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.wallet.On("IsLoggedIn", mock.Anything).Return(false, errors.New("provider down")).Once()
		assert.False(t, svc.IsAuthenticated(context.Background()))
	})

	t.Run("no wallet", func(t *testing.T) {
		svc := NewService(nil, nil, nil, nil, nil, nil, nil, Config{}, zapNop())
		assert.False(t, svc.IsAuthenticated(context.Background()))
	})
}

func TestWalletAddress_CachedUntilForced(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()
	deps.wallet.On("IsLoggedIn", mock.Anything).Return(true, nil)
	deps.wallet.On("WalletAddress", mock.Anything).Return(testWallet, nil)

	for i := 0; i < 3; i++ {
		address, err := svc.WalletAddress(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, testWallet, address)
	}
	deps.wallet.AssertNumberOfCalls(t, "WalletAddress", 1)

	_, err := svc.WalletAddress(ctx, true)
	require.NoError(t, err)
	deps.wallet.AssertNumberOfCalls(t, "WalletAddress", 2)

	svc.ClearWalletAddressCache()
	_, err = svc.WalletAddress(ctx, false)
	require.NoError(t, err)
	deps.wallet.AssertNumberOfCalls(t, "WalletAddress", 3)
}

func TestWalletAddress_NotLoggedIn(t *testing.T) {
	svc, deps := newTestService(t)
	deps.wallet.On("IsLoggedIn", mock.Anything).Return(false, nil).Once()

	_, err := svc.WalletAddress(context.Background(), false)
	assert.ErrorIs(t, err, entities.ErrWalletNotLoggedIn)
	deps.wallet.AssertNotCalled(t, "WalletAddress", mock.Anything)
}

func TestWalletAddress_RetriesThenWrapsLastCause(t *testing.T) {
	svc, deps := newTestService(t)
	lastCause := errors.New("provider still warming up")
	deps.wallet.On("IsLoggedIn", mock.Anything).Return(true, nil).Once()
	deps.wallet.On("WalletAddress", mock.Anything).Return("", errors.New("not ready")).Twice()
	deps.wallet.On("WalletAddress", mock.Anything).Return("", lastCause).Once()

	_, err := svc.WalletAddress(context.Background(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrWalletAddressUnavailable)
	assert.ErrorIs(t, err, lastCause)
	assert.Equal(t, 2, deps.sleeps)
	deps.wallet.AssertNumberOfCalls(t, "WalletAddress", 3)
}

func TestWalletAddress_SucceedsOnRetry(t *testing.T) {
	svc, deps := newTestService(t)
	deps.wallet.On("IsLoggedIn", mock.Anything).Return(true, nil).Once()
	deps.wallet.On("WalletAddress", mock.Anything).Return("", nil).Once()
	deps.wallet.On("WalletAddress", mock.Anything).Return(testWallet, nil).Once()

	address, err := svc.WalletAddress(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, testWallet, address)
	assert.Equal(t, 1, deps.sleeps)
}

func TestSendOTP_SurfacesAdapterError(t *testing.T) {
	svc, deps := newTestService(t)
	sendErr := errors.New("rate limited by provider")
	deps.wallet.On("LoginWithEmailOTP", mock.Anything, "c@z.com").Return("", sendErr).Once()

	err := svc.SendOTP(context.Background(), "c@z.com")
	assert.Equal(t, sendErr, err)
	assert.Equal(t, "c@z.com", svc.Email())
}

func TestVerifyOTP(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.VerifyOTP(ctx, "123456"), ErrNoPendingLogin)

	deps.wallet.On("LoginWithEmailOTP", mock.Anything, "a@x.com").Return("login-1", nil).Once()
	deps.wallet.On("VerifyEmailOTP", mock.Anything, "login-1", "123456").Return(nil).Once()
	require.NoError(t, svc.SendOTP(ctx, "a@x.com"))
	require.NoError(t, svc.VerifyOTP(ctx, "123456"))

	assert.ErrorIs(t, svc.VerifyOTP(ctx, "123456"), ErrNoPendingLogin)
	deps.assertExpectations(t)
}

func TestLoginToProtocol(t *testing.T) {
	t.Run("stores token with fresh address", func(t *testing.T) {
		svc, deps := newTestService(t)
		svc.creds.WalletAddress = "0xstale"
		deps.wallet.On("IsLoggedIn", mock.Anything).Return(true, nil).Once()
		deps.wallet.On("WalletAddress", mock.Anything).Return(testWallet, nil).Once()
		deps.auth.On("Login", mock.Anything, entities.LoginRequest{Email: "a@x.com", WalletAddress: testWallet}).
			Return(&entities.LoginResult{User: &entities.ProtocolUser{ID: "u1"}, Token: testToken}, nil).Once()

		require.NoError(t, svc.LoginToProtocol(context.Background()))
		creds := svc.Credentials()
		assert.Equal(t, testToken, creds.ProtocolToken)
		assert.True(t, creds.IsProtocolAuthenticated)
		assert.Equal(t, testWallet, creds.WalletAddress)
		deps.assertExpectations(t)
	})

	t.Run("missing token fails", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.wallet.On("IsLoggedIn", mock.Anything).Return(true, nil).Once()
		deps.wallet.On("WalletAddress", mock.Anything).Return(testWallet, nil).Once()
		deps.auth.On("Login", mock.Anything, mock.Anything).
			Return(&entities.LoginResult{User: &entities.ProtocolUser{ID: "u1"}}, nil).Once()

		err := svc.LoginToProtocol(context.Background())
		assert.ErrorIs(t, err, entities.ErrLoginFailed)
		assert.False(t, svc.Credentials().IsProtocolAuthenticated)
	})

	t.Run("backend error is not retried", func(t *testing.T) {
		svc, deps := newTestService(t)
		loginErr := errors.New("boom")
		deps.wallet.On("IsLoggedIn", mock.Anything).Return(true, nil).Once()
		deps.wallet.On("WalletAddress", mock.Anything).Return(testWallet, nil).Once()
		deps.auth.On("Login", mock.Anything, mock.Anything).Return(nil, loginErr).Once()

		err := svc.LoginToProtocol(context.Background())
		assert.ErrorIs(t, err, entities.ErrLoginFailed)
		assert.ErrorIs(t, err, loginErr)
		deps.auth.AssertNumberOfCalls(t, "Login", 1)
	})

	t.Run("requires email", func(t *testing.T) {
		svc, deps := newTestService(t)
		svc.cfg.BootstrapEmail = ""
		assert.ErrorIs(t, svc.LoginToProtocol(context.Background()), entities.ErrEmailRequired)
		deps.wallet.AssertNotCalled(t, "WalletAddress", mock.Anything)
	})
}

func TestTokenPreconditionsMakeNoNetworkCalls(t *testing.T) {
	svc, deps := newTestService(t)
	ctx := context.Background()

	_, err := svc.FetchBalances(ctx)
	assert.ErrorIs(t, err, entities.ErrProtocolTokenMissing)

	_, err = svc.CalculateSwapAmount(ctx, "0xreward", &entities.OfferDetail{ID: "offer-1"}, "")
	assert.ErrorIs(t, err, entities.ErrProtocolTokenMissing)

	deps.wallet.AssertNotCalled(t, "IsLoggedIn", mock.Anything)
	deps.wallet.AssertNotCalled(t, "WalletAddress", mock.Anything)
	deps.rewards.AssertNotCalled(t, "Balances", mock.Anything, mock.Anything, mock.Anything)
	deps.rewards.AssertNotCalled(t, "SwapAmount", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchBalances_Caches(t *testing.T) {
	svc, deps := newTestService(t)
	authenticate(svc)
	balances := []entities.RewardBalance{{Reward: entities.Reward{ID: "r1"}, Balance: decimal.NewFromInt(100)}}
	deps.rewards.On("Balances", mock.Anything, testToken, testWallet).Return(balances, nil).Once()

	got, err := svc.FetchBalances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, balances, got)
	assert.Equal(t, balances, svc.CachedBalances())

	svc.ClearCache()
	assert.Empty(t, svc.CachedBalances())
	assert.Empty(t, svc.Credentials().WalletAddress)
}

func TestCalculateSwapAmount_VariantResolution(t *testing.T) {
	offer := &entities.OfferDetail{
		ID:               "offer-1",
		Reward:           entities.Reward{ContractAddress: "0xbrand"},
		RedemptionMethod: entities.RedemptionMethod{ID: "rm-1"},
		Brand:            entities.Brand{ID: "brand-1"},
		Variants: []entities.OfferVariant{
			{ID: "v1", ProductVariantID: "pv-1"},
			{ID: "v2", ProductVariantID: "pv-2"},
		},
	}

	tests := []struct {
		name     string
		offer    *entities.OfferDetail
		explicit string
		want     string
	}{
		{name: "explicit wins", offer: offer, explicit: "pv-2", want: "pv-2"},
		{name: "first variant", offer: offer, want: "pv-1"},
		{name: "no variants", offer: &entities.OfferDetail{ID: "offer-2"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService(t)
			authenticate(svc)
			result := &entities.SwapAmountResult{AmountNeeded: decimal.NewFromInt(60)}
			deps.rewards.On("SwapAmount", mock.Anything, testToken, mock.MatchedBy(func(req entities.SwapAmountRequest) bool {
				return req.ProductVariantID == tt.want &&
					req.WalletAddress == testWallet &&
					req.InputRewardAddress == "0xselected" &&
					req.OfferID == tt.offer.ID
			})).Return(result, nil).Once()

			got, err := svc.CalculateSwapAmount(context.Background(), "0xselected", tt.offer, tt.explicit)
			require.NoError(t, err)
			assert.Equal(t, result, got)
			deps.rewards.AssertExpectations(t)
		})
	}
}

func TestCanAffordOffer(t *testing.T) {
	svc, _ := newTestService(t)
	tests := []struct {
		balance string
		needed  string
		want    bool
	}{
		{"100", "60", true},
		{"100", "100", true},
		{"100", "150", false},
		{"0", "0", true},
		{"99.999999999999999999", "100", false},
		{"0.000000000000000001", "0.000000000000000001", true},
	}
	for _, tt := range tests {
		reward := entities.RewardBalance{Balance: decimal.RequireFromString(tt.balance)}
		assert.Equal(t, tt.want, svc.CanAffordOffer(reward, decimal.RequireFromString(tt.needed)), "%s >= %s", tt.balance, tt.needed)
	}
}

func TestLogoutKeepsWalletSession(t *testing.T) {
	svc, deps := newTestService(t)
	authenticate(svc)

	require.NoError(t, svc.Logout(context.Background()))
	deps.wallet.AssertNotCalled(t, "Logout", mock.Anything)
	assert.Equal(t, testToken, svc.Credentials().ProtocolToken)
}

func TestVerifyEmailBinding(t *testing.T) {
	t.Run("normalized match", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.wallet.On("UserMetadata", mock.Anything).
			Return(&entities.UserMetadata{Email: "  A@X.com "}, nil).Once()
		assert.NoError(t, svc.VerifyEmailBinding(context.Background()))
	})

	t.Run("mismatch logs out and clears credentials", func(t *testing.T) {
		svc, deps := newTestService(t)
		authenticate(svc)
		deps.wallet.On("UserMetadata", mock.Anything).
			Return(&entities.UserMetadata{Email: "other@x.com"}, nil).Once()
		deps.wallet.On("Logout", mock.Anything).Return(nil).Once()

		err := svc.VerifyEmailBinding(context.Background())
		assert.ErrorIs(t, err, entities.ErrEmailMismatch)
		assert.Equal(t, entities.SessionCredentials{}, svc.Credentials())
		deps.wallet.AssertExpectations(t)
	})
}
