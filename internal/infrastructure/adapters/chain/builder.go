// Package chain builds and relays the signed transactions of the two redemption paths
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/meagent/meagent_service/internal/domain/entities"
)

const (
	domainName    = "OpenReward"
	domainVersion = "1"
	defaultTTL    = 15 * time.Minute
)

const vaultPermitABI = `[
	{
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "reward", "type": "address"},
			{"name": "amount", "type": "uint256"},
			{"name": "spendHash", "type": "bytes32"},
			{"name": "signature", "type": "bytes"}
		],
		"name": "permitVault",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var domainTypes = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// Builder produces EIP-712 signed redemption artifacts and vault permit call data
type Builder struct {
	permit abi.ABI
	ttl    time.Duration
	now    func() time.Time
}

// NewBuilder parses the permit ABI once
func NewBuilder() (*Builder, error) {
	parsed, err := abi.JSON(strings.NewReader(vaultPermitABI))
	if err != nil {
		return nil, fmt.Errorf("parse vault permit abi: %w", err)
	}
	return &Builder{permit: parsed, ttl: defaultTTL, now: time.Now}, nil
}

// WithClock replaces the clock used for nonces and deadlines
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// SameBrandRedemption signs a direct redemption of amount units of reward
func (b *Builder) SameBrandRedemption(ctx context.Context, p entities.SameBrandRedemptionParams) (entities.SignedTransaction, error) {
	if p.Signer == nil {
		return nil, entities.ErrWalletNotConfigured
	}
	if !common.IsHexAddress(p.RewardAddress) {
		return nil, fmt.Errorf("invalid reward address %q", p.RewardAddress)
	}
	nonce, deadline := b.nonceAndDeadline()
	owner := common.HexToAddress(p.Signer.Address())
	reward := common.HexToAddress(p.RewardAddress)

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"RedeemReward": {
				{Name: "owner", Type: "address"},
				{Name: "reward", Type: "address"},
				{Name: "amount", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "RedeemReward",
		Domain:      typedDomain(p.ChainID, reward),
		Message: apitypes.TypedDataMessage{
			"owner":    owner.Hex(),
			"reward":   reward.Hex(),
			"amount":   p.Amount.String(),
			"nonce":    nonce.String(),
			"deadline": deadline.String(),
		},
	}

	sig, err := signTypedData(ctx, p.Signer, td)
	if err != nil {
		return nil, err
	}
	return entities.SignedTransaction{
		"kind":      "redeem",
		"owner":     owner.Hex(),
		"reward":    reward.Hex(),
		"amount":    p.Amount.String(),
		"nonce":     nonce.String(),
		"deadline":  deadline.String(),
		"chainId":   p.ChainID,
		"runtime":   p.RuntimeURL,
		"signature": hexutil.Encode(sig),
	}, nil
}

// SpendReward signs a cross-brand spend of one reward for another, verified by the diamond
func (b *Builder) SpendReward(ctx context.Context, p entities.SpendRewardParams) (entities.SignedTransaction, error) {
	if p.Signer == nil {
		return nil, entities.ErrWalletNotConfigured
	}
	for _, addr := range []string{p.OpenRewardDiamond, p.Spend.RewardAtHand, p.Spend.TargettedReward} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid address %q", addr)
		}
	}
	nonce, deadline := b.nonceAndDeadline()
	owner := common.HexToAddress(p.Signer.Address())
	diamond := common.HexToAddress(p.OpenRewardDiamond)
	atHand := common.HexToAddress(p.Spend.RewardAtHand)
	target := common.HexToAddress(p.Spend.TargettedReward)

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainTypes,
			"SpendReward": {
				{Name: "owner", Type: "address"},
				{Name: "rewardAtHand", Type: "address"},
				{Name: "targettedReward", Type: "address"},
				{Name: "amountOfRewardAtHand", Type: "uint256"},
				{Name: "expectedAmountOfTargetedReward", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "SpendReward",
		Domain:      typedDomain(p.ChainID, diamond),
		Message: apitypes.TypedDataMessage{
			"owner":                          owner.Hex(),
			"rewardAtHand":                   atHand.Hex(),
			"targettedReward":                target.Hex(),
			"amountOfRewardAtHand":           p.Spend.AmountOfRewardAtHand.String(),
			"expectedAmountOfTargetedReward": p.Spend.ExpectedAmountOfTargetedReward.String(),
			"nonce":                          nonce.String(),
			"deadline":                       deadline.String(),
		},
	}

	sig, err := signTypedData(ctx, p.Signer, td)
	if err != nil {
		return nil, err
	}
	return entities.SignedTransaction{
		"kind": "spend",
		"spend": map[string]any{
			"rewardAtHand":                   atHand.Hex(),
			"targettedReward":                target.Hex(),
			"amountOfRewardAtHand":           p.Spend.AmountOfRewardAtHand.String(),
			"expectedAmountOfTargetedReward": p.Spend.ExpectedAmountOfTargetedReward.String(),
		},
		"owner":        owner.Hex(),
		"diamond":      diamond.Hex(),
		"targetReward": target.Hex(),
		"targetAmount": p.TargetAmount.String(),
		"nonce":        nonce.String(),
		"deadline":     deadline.String(),
		"chainId":      p.ChainID,
		"runtime":      p.RuntimeURL,
		"signature":    hexutil.Encode(sig),
	}, nil
}

// VaultPermit ABI-encodes the permitVault call that releases the target reward
func (b *Builder) VaultPermit(_ context.Context, p entities.VaultPermitParams) (string, error) {
	if p.SpendHash == "" || p.Signature == "" {
		return "", entities.ErrPermitDataMissing
	}
	if !common.IsHexAddress(p.Owner) || !common.IsHexAddress(p.Reward) {
		return "", fmt.Errorf("invalid permit addresses owner=%q reward=%q", p.Owner, p.Reward)
	}
	sig, err := hexutil.Decode(p.Signature)
	if err != nil {
		return "", fmt.Errorf("invalid permit signature: %w", err)
	}
	amount := p.Amount
	if amount == nil {
		amount = new(big.Int)
	}

	data, err := b.permit.Pack("permitVault",
		common.HexToAddress(p.Owner),
		common.HexToAddress(p.Reward),
		amount,
		[32]byte(common.HexToHash(p.SpendHash)),
		sig,
	)
	if err != nil {
		return "", fmt.Errorf("pack vault permit: %w", err)
	}
	if len(data) == 0 {
		return "", entities.ErrPermitDataMissing
	}
	return hexutil.Encode(data), nil
}

func (b *Builder) nonceAndDeadline() (*big.Int, *big.Int) {
	now := b.now()
	return big.NewInt(now.UnixNano()), big.NewInt(now.Add(b.ttl).Unix())
}

func typedDomain(chainID int64, verifyingContract common.Address) apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              domainName,
		Version:           domainVersion,
		ChainId:           (*math.HexOrDecimal256)(big.NewInt(chainID)),
		VerifyingContract: verifyingContract.Hex(),
	}
}

func signTypedData(ctx context.Context, signer entities.Signer, td apitypes.TypedData) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	sig, err := signer.SignHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("sign typed data: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("sign typed data: unexpected signature length %d", len(sig))
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}
