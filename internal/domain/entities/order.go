package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpendData is the opaque artifact returned by runtime/push-transaction. It is
// passed through unmodified to process-order and refund-task.
type SpendData map[string]any

// PushTransactionResult is the push-transaction response
type PushTransactionResult = SpendData

// Hash returns the pushed transaction hash, used as the runtime task id and permit spend hash
func (s SpendData) Hash() string {
	return s.stringField("hash")
}

// Signature returns the runtime signature over the spend, used by the vault permit
func (s SpendData) Signature() string {
	return s.stringField("signature")
}

func (s SpendData) stringField(key string) string {
	if s == nil {
		return ""
	}
	v, _ := s[key].(string)
	return v
}

// SignedTransaction is the opaque output of a transaction builder
type SignedTransaction map[string]any

// VerifierKind names who confirms the on-chain task of an order
type VerifierKind string

const (
	VerifierRuntime VerifierKind = "RUNTIME"
	VerifierGelato  VerifierKind = "GELATO"
)

type Coupon struct {
	Code          string          `json:"code"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	DiscountType  string          `json:"discountType,omitempty"`
	IsUsed        bool            `json:"isUsed"`
	IsExpired     bool            `json:"isExpired"`
	ExpiresAt     *time.Time      `json:"expiresAt,omitempty"`
}

// RedemptionOrder is created once by process-order and held as the session's current order
type RedemptionOrder struct {
	ID         string     `json:"id"`
	OrderCode  string     `json:"orderCode"`
	Status     string     `json:"status"`
	IsRedeemed bool       `json:"isRedeemed"`
	IsRefunded bool       `json:"isRefunded"`
	Coupon     Coupon     `json:"coupon"`
	SpendData  SpendData  `json:"spendData,omitempty"`
	OfferID    string     `json:"offerId,omitempty"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
}

// ProcessOrderRequest is sent to orders/process-order
type ProcessOrderRequest struct {
	TaskID             string       `json:"task_id"`
	RewardID           string       `json:"reward_id"`
	TargetRewardID     string       `json:"target_reward_id"`
	Verifier           VerifierKind `json:"verifier"`
	SpendData          SpendData    `json:"spend_data"`
	OfferID            string       `json:"offer_id"`
	Amount             string       `json:"amount"`
	RedemptionMethodID string       `json:"redemption_method_id"`
	OfferVariants      []string     `json:"offer_variants"`
}

// ProcessOrderResult is the process-order response
type ProcessOrderResult struct {
	Task  map[string]any   `json:"task"`
	Order *RedemptionOrder `json:"order"`
}

// CheckoutURLRequest is sent to order/checkout-url
type CheckoutURLRequest struct {
	BrandID          string `json:"brandId"`
	DiscountCode     string `json:"discountCode"`
	ProductVariantID string `json:"productVariantId"`
}

// RefundRequest is sent to runtime/refund-task
type RefundRequest struct {
	SpendData SpendData `json:"spend_data"`
}
