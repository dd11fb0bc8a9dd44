package redemption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/meagent/meagent_service/pkg/metrics"
	"github.com/meagent/meagent_service/pkg/tracing"
	"github.com/meagent/meagent_service/pkg/units"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SameBrandRequest redeems a reward of the offer's own brand
type SameBrandRequest struct {
	RewardAddress      string
	RewardID           string
	Amount             string
	OfferID            string
	RedemptionMethodID string
	BrandID            string
	VariantID          string
}

// CrossBrandRequest swaps a reward of another brand into the offer brand's reward
type CrossBrandRequest struct {
	RewardAddress      string
	RewardID           string
	Amount             string
	NeededAmount       string
	BrandRewardAddress string
	OfferID            string
	RedemptionMethodID string
	BrandID            string
	BrandNetwork       string
	VariantID          string
}

// RedeemRequest is what the confirm screen holds
type RedeemRequest struct {
	Selected  entities.RewardBalance
	Offer     *entities.OfferDetail
	Swap      *entities.SwapAmountResult
	VariantID string
}

// IsSameBrand reports whether the selected reward belongs to the offer's brand
func (r RedeemRequest) IsSameBrand() bool {
	return r.Offer != nil && r.Selected.Reward.BrandID == r.Offer.Brand.ID
}

// Redeem runs the strategy matching the selected reward's brand
func (s *Service) Redeem(ctx context.Context, req RedeemRequest) (*entities.RedemptionOrder, error) {
	if req.Offer == nil || req.Swap == nil {
		return nil, fmt.Errorf("%w: offer and swap amount are required", entities.ErrInvalidAmount)
	}
	if req.IsSameBrand() {
		return s.ExecuteSameBrandRedemption(ctx, SameBrandRequest{
			RewardAddress:      req.Selected.Reward.ContractAddress,
			RewardID:           req.Selected.Reward.ID,
			Amount:             req.Swap.AmountNeeded.String(),
			OfferID:            req.Offer.ID,
			RedemptionMethodID: req.Offer.RedemptionMethod.ID,
			BrandID:            req.Offer.Brand.ID,
			VariantID:          req.VariantID,
		})
	}

	network := req.Offer.Reward.BrandNetwork
	if network == "" {
		network = req.Offer.Brand.Network
	}
	return s.ExecuteCrossBrandRedemption(ctx, CrossBrandRequest{
		RewardAddress:      req.Selected.Reward.ContractAddress,
		RewardID:           req.Selected.Reward.ID,
		Amount:             req.Swap.AmountNeeded.String(),
		NeededAmount:       req.Swap.Amount.String(),
		BrandRewardAddress: req.Offer.Reward.ContractAddress,
		OfferID:            req.Offer.ID,
		RedemptionMethodID: req.Offer.RedemptionMethod.ID,
		BrandID:            req.Offer.Brand.ID,
		BrandNetwork:       network,
		VariantID:          req.VariantID,
	})
}

// ExecuteSameBrandRedemption signs a direct redemption, pushes it and creates the
// order verified by the runtime. A failure after the push triggers one refund.
func (s *Service) ExecuteSameBrandRedemption(ctx context.Context, req SameBrandRequest) (order *entities.RedemptionOrder, err error) {
	if s.wallet == nil {
		return nil, entities.ErrWalletNotConfigured
	}
	token, err := s.requireToken()
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	owner := s.Credentials().WalletAddress
	if owner == "" {
		return nil, entities.ErrWalletAddressNotCached
	}

	ctx, span := s.tracer.Start(ctx, "redemption.ExecuteSameBrandRedemption")
	span.SetAttributes(attribute.String("offer_id", req.OfferID), attribute.String("reward_id", req.RewardID))
	start := time.Now()
	defer func() {
		s.observe(entities.StrategySameBrand, start, err)
		tracing.EndSpan(span, err)
	}()

	attempt := s.beginAttempt(ctx, entities.StrategySameBrand, owner, req.RewardID, req.OfferID, amount)

	signer, err := s.wallet.SigningProvider(ctx)
	if err != nil {
		s.failAttempt(ctx, attempt, err)
		return nil, fmt.Errorf("get signing provider: %w", err)
	}
	tx, err := s.builder.SameBrandRedemption(ctx, entities.SameBrandRedemptionParams{
		RewardAddress: req.RewardAddress,
		Amount:        units.ToBaseUnits(amount),
		ChainID:       s.cfg.ChainID,
		Signer:        signer,
		RuntimeURL:    s.cfg.RuntimeURL,
	})
	if err != nil {
		s.failAttempt(ctx, attempt, err)
		return nil, fmt.Errorf("build redemption transaction: %w", err)
	}

	pushed, err := s.runtime.PushTransaction(ctx, token, tx)
	if err != nil {
		s.failAttempt(ctx, attempt, err)
		return nil, err
	}
	s.markPushed(ctx, attempt, pushed.Hash())

	order, err = s.processOrder(ctx, token, processOrderInput{
		taskID:             pushed.Hash(),
		rewardID:           req.RewardID,
		verifier:           entities.VerifierRuntime,
		spend:              pushed,
		offerID:            req.OfferID,
		amount:             amount.String(),
		redemptionMethodID: req.RedemptionMethodID,
		variantID:          req.VariantID,
	})
	if err != nil {
		return nil, s.compensate(ctx, token, attempt, pushed, err)
	}
	s.completeAttempt(ctx, attempt, order)
	return order, nil
}

// ExecuteCrossBrandRedemption spends the reward at hand for the offer brand's
// reward, relays the vault permit and creates the order verified by the relay.
// A failure after the push triggers one refund.
func (s *Service) ExecuteCrossBrandRedemption(ctx context.Context, req CrossBrandRequest) (order *entities.RedemptionOrder, err error) {
	if s.wallet == nil {
		return nil, entities.ErrWalletNotConfigured
	}
	token, err := s.requireToken()
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	needed, err := parseAmount("neededAmount", req.NeededAmount)
	if err != nil {
		return nil, err
	}
	owner := s.Credentials().WalletAddress
	if owner == "" {
		return nil, entities.ErrWalletAddressNotCached
	}

	ctx, span := s.tracer.Start(ctx, "redemption.ExecuteCrossBrandRedemption")
	span.SetAttributes(
		attribute.String("offer_id", req.OfferID),
		attribute.String("reward_id", req.RewardID),
		attribute.String("brand_network", req.BrandNetwork))
	start := time.Now()
	defer func() {
		s.observe(entities.StrategyCrossBrand, start, err)
		tracing.EndSpan(span, err)
	}()

	attempt := s.beginAttempt(ctx, entities.StrategyCrossBrand, owner, req.RewardID, req.OfferID, amount)

	signer, err := s.wallet.SigningProvider(ctx)
	if err != nil {
		s.failAttempt(ctx, attempt, err)
		return nil, fmt.Errorf("get signing provider: %w", err)
	}
	amountUnits := units.ToBaseUnits(amount)
	neededUnits := units.ToBaseUnits(needed)

	tx, err := s.builder.SpendReward(ctx, entities.SpendRewardParams{
		Spend: entities.SpendDescriptor{
			RewardAtHand:                   req.RewardAddress,
			TargettedReward:                req.BrandRewardAddress,
			AmountOfRewardAtHand:           amountUnits,
			ExpectedAmountOfTargetedReward: neededUnits,
		},
		OpenRewardDiamond: s.cfg.OpenRewardDiamond,
		ChainID:           s.cfg.ChainID,
		Signer:            signer,
		RuntimeURL:        s.cfg.RuntimeURL,
		TargetReward:      req.BrandRewardAddress,
		TargetAmount:      neededUnits,
	})
	if err != nil {
		s.failAttempt(ctx, attempt, err)
		return nil, fmt.Errorf("build spend transaction: %w", err)
	}

	pushed, err := s.runtime.PushTransaction(ctx, token, tx)
	if err != nil {
		s.failAttempt(ctx, attempt, err)
		return nil, err
	}
	s.markPushed(ctx, attempt, pushed.Hash())

	permitData, err := s.builder.VaultPermit(ctx, entities.VaultPermitParams{
		Owner:             owner,
		Reward:            req.BrandRewardAddress,
		Amount:            neededUnits,
		SpendHash:         pushed.Hash(),
		Signature:         pushed.Signature(),
		OpenRewardDiamond: s.cfg.OpenRewardDiamond,
		RPCURL:            s.cfg.RPCURL,
	})
	if err == nil && permitData == "" {
		err = entities.ErrPermitDataMissing
	}
	if err != nil {
		return nil, s.compensate(ctx, token, attempt, pushed, fmt.Errorf("build vault permit: %w", err))
	}

	taskID, err := s.relayer.Relay(ctx, entities.RelayRequest{
		APIKey:   s.cfg.RelayAPIKey,
		RPCURL:   s.cfg.RPCURL,
		ChainID:  s.cfg.ChainID,
		BrandID:  req.BrandID,
		IsHedera: entities.IsHederaNetwork(req.BrandNetwork),
		Target:   s.cfg.OpenRewardDiamond,
		Data:     permitData,
	})
	if err != nil {
		return nil, s.compensate(ctx, token, attempt, pushed, err)
	}

	order, err = s.processOrder(ctx, token, processOrderInput{
		taskID:             taskID,
		rewardID:           req.RewardID,
		verifier:           entities.VerifierGelato,
		spend:              pushed,
		offerID:            req.OfferID,
		amount:             amount.String(),
		redemptionMethodID: req.RedemptionMethodID,
		variantID:          req.VariantID,
	})
	if err != nil {
		return nil, s.compensate(ctx, token, attempt, pushed, err)
	}
	s.completeAttempt(ctx, attempt, order)
	return order, nil
}

// GetCheckoutURL builds the brand checkout link carrying the current order's coupon
func (s *Service) GetCheckoutURL(ctx context.Context, brandID, productVariantID string) (string, error) {
	order := s.CurrentOrder()
	if order == nil {
		return "", entities.ErrNoCurrentOrder
	}
	token, err := s.requireToken()
	if err != nil {
		return "", err
	}
	return s.orders.CheckoutURL(ctx, token, entities.CheckoutURLRequest{
		BrandID:          brandID,
		DiscountCode:     order.Coupon.Code,
		ProductVariantID: productVariantID,
	})
}

type processOrderInput struct {
	taskID             string
	rewardID           string
	verifier           entities.VerifierKind
	spend              entities.SpendData
	offerID            string
	amount             string
	redemptionMethodID string
	variantID          string
}

func (s *Service) processOrder(ctx context.Context, token string, in processOrderInput) (*entities.RedemptionOrder, error) {
	variants := []string{}
	if in.variantID != "" {
		variants = []string{in.variantID}
	}
	res, err := s.orders.ProcessOrder(ctx, token, entities.ProcessOrderRequest{
		TaskID:             in.taskID,
		RewardID:           in.rewardID,
		TargetRewardID:     in.rewardID,
		Verifier:           in.verifier,
		SpendData:          in.spend,
		OfferID:            in.offerID,
		Amount:             in.amount,
		RedemptionMethodID: in.redemptionMethodID,
		OfferVariants:      variants,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Order == nil {
		return nil, errors.New("process order returned no order")
	}

	order := *res.Order
	s.mu.Lock()
	s.currentOrder = &order
	s.mu.Unlock()
	return res.Order, nil
}

// compensate refunds a pushed spend after a later step failed. The refund is
// best effort and cause is always what the caller gets back.
func (s *Service) compensate(ctx context.Context, token string, attempt *attemptRef, pushed entities.SpendData, cause error) error {
	refundCtx := context.WithoutCancel(ctx)
	if err := s.runtime.RefundTask(refundCtx, token, pushed); err != nil {
		metrics.RefundsTotal.WithLabelValues("failed").Inc()
		s.logger.Error("Refund after failed redemption failed",
			zap.String("task_hash", pushed.Hash()),
			zap.NamedError("cause", cause),
			zap.Error(err))
		s.finishAttempt(refundCtx, attempt, entities.RedemptionStatusRefundFailed, "", cause)
		return cause
	}

	metrics.RefundsTotal.WithLabelValues("succeeded").Inc()
	s.logger.Warn("Redemption failed after push; spend refunded",
		zap.String("task_hash", pushed.Hash()),
		zap.Error(cause))
	s.finishAttempt(refundCtx, attempt, entities.RedemptionStatusRefunded, "", cause)
	return cause
}

func (s *Service) observe(strategy entities.RedemptionStrategy, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.RedemptionsTotal.WithLabelValues(string(strategy), outcome).Inc()
	metrics.RedemptionDuration.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := units.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q", entities.ErrInvalidAmount, field, raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive, got %s", entities.ErrInvalidAmount, field, d.String())
	}
	return d, nil
}
