package wallet

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSandboxLoginFlow(t *testing.T) {
	ctx := context.Background()
	s := NewSandboxSession("MeAgent", zap.NewNop())

	loggedIn, err := s.IsLoggedIn(ctx)
	require.NoError(t, err)
	assert.False(t, loggedIn)

	loginID, err := s.LoginWithEmailOTP(ctx, "a@x.com")
	require.NoError(t, err)

	assert.ErrorIs(t, s.VerifyEmailOTP(ctx, loginID, "000000x"), ErrInvalidOTP)
	require.NoError(t, s.VerifyEmailOTP(ctx, loginID, s.LastCode()))

	loggedIn, err = s.IsLoggedIn(ctx)
	require.NoError(t, err)
	assert.True(t, loggedIn)

	meta, err := s.UserMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", meta.Email)
	assert.True(t, common.IsHexAddress(meta.WalletAddress))

	// login ids are single use
	assert.ErrorIs(t, s.VerifyEmailOTP(ctx, loginID, s.LastCode()), ErrUnknownLogin)
}

func TestSandboxSignerRecoversToAddress(t *testing.T) {
	ctx := context.Background()
	s := NewSandboxSession("MeAgent", zap.NewNop())
	loginID, err := s.LoginWithEmailOTP(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, s.VerifyEmailOTP(ctx, loginID, s.LastCode()))

	signer, err := s.SigningProvider(ctx)
	require.NoError(t, err)

	hash := crypto.Keccak256([]byte("redeem"))
	sig, err := signer.SignHash(ctx, hash)
	require.NoError(t, err)

	pub, err := crypto.SigToPub(hash, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub).Hex())
}

func TestSandboxLogout(t *testing.T) {
	ctx := context.Background()
	s := NewSandboxSession("MeAgent", zap.NewNop())
	loginID, _ := s.LoginWithEmailOTP(ctx, "a@x.com")
	require.NoError(t, s.VerifyEmailOTP(ctx, loginID, s.LastCode()))

	require.NoError(t, s.Logout(ctx))
	_, err := s.WalletAddress(ctx)
	assert.ErrorIs(t, err, ErrSandboxNotReady)
}
