package entities

import (
	"context"
	"math/big"
)

// Signer signs 32-byte digests on behalf of the logged in wallet
type Signer interface {
	Address() string
	SignHash(ctx context.Context, hash []byte) ([]byte, error)
}

// SameBrandRedemptionParams feeds the same-brand redemption builder
type SameBrandRedemptionParams struct {
	RewardAddress string
	Amount        *big.Int
	ChainID       int64
	Signer        Signer
	RuntimeURL    string
}

// SpendDescriptor describes a cross-brand swap. Amounts are in base units.
type SpendDescriptor struct {
	RewardAtHand                   string
	TargettedReward                string
	AmountOfRewardAtHand           *big.Int
	ExpectedAmountOfTargetedReward *big.Int
}

// SpendRewardParams feeds the cross-brand spend builder
type SpendRewardParams struct {
	Spend             SpendDescriptor
	OpenRewardDiamond string
	ChainID           int64
	Signer            Signer
	RuntimeURL        string
	TargetReward      string
	TargetAmount      *big.Int
}

// VaultPermitParams are derived from the push-transaction response
type VaultPermitParams struct {
	Owner             string
	Reward            string
	Amount            *big.Int
	SpendHash         string
	Signature         string
	OpenRewardDiamond string
	RPCURL            string
}

// RelayRequest asks the relay service to submit permit call data
type RelayRequest struct {
	APIKey   string
	RPCURL   string
	ChainID  int64
	BrandID  string
	IsHedera bool
	Target   string
	Data     string
}
