package entities

import "github.com/shopspring/decimal"

// Reward is a brand's on-chain reward token
type Reward struct {
	ID              string          `json:"id"`
	ContractAddress string          `json:"contractAddress"`
	Image           string          `json:"image"`
	Name            string          `json:"name"`
	Symbol          string          `json:"symbol"`
	BrandID         string          `json:"brandId"`
	BrandNetwork    string          `json:"brandNetwork"`
	DollarPrice     decimal.Decimal `json:"dollarPrice"`
	OriginalValue   decimal.Decimal `json:"originalValue"`
}

// RewardBalance is a wallet's holding of one reward
type RewardBalance struct {
	Reward          Reward          `json:"reward"`
	Balance         decimal.Decimal `json:"balance"`
	TotalSavingsUSD decimal.Decimal `json:"totalSavingsUsd"`
	ChainID         int64           `json:"chainId"`
}

// SwapAmountRequest is sent to reward/swap-amount
type SwapAmountRequest struct {
	WalletAddress       string `json:"walletAddress"`
	InputRewardAddress  string `json:"inputRewardAddress"`
	OutputRewardAddress string `json:"outputRewardAddress"`
	RedemptionMethodID  string `json:"redemptionMethodId"`
	OfferID             string `json:"offerId"`
	BrandID             string `json:"brandId"`
	ProductVariantID    string `json:"productVariantId,omitempty"`
}

// SwapAmountResult tells how much of the selected reward an offer costs.
// AmountNeeded is the affordability threshold.
type SwapAmountResult struct {
	Amount             decimal.Decimal `json:"amount"`
	AmountNeeded       decimal.Decimal `json:"amountNeeded"`
	CheckAffordability bool            `json:"checkAffordability"`
	USDDiscount        decimal.Decimal `json:"usdDiscount"`
}
