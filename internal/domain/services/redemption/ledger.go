package redemption

import (
	"context"

	"github.com/google/uuid"
	"github.com/meagent/meagent_service/internal/domain/entities"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// attemptRef tracks the ledger row of an in-flight redemption. A nil ref means
// no ledger is configured or the row could not be created.
type attemptRef struct {
	id     uuid.UUID
	status entities.RedemptionAttemptStatus
}

func (s *Service) beginAttempt(ctx context.Context, strategy entities.RedemptionStrategy, wallet, rewardID, offerID string, amount decimal.Decimal) *attemptRef {
	if s.ledger == nil {
		return nil
	}
	attempt := &entities.RedemptionAttempt{
		SessionID:     s.cfg.SessionID,
		WalletAddress: wallet,
		Strategy:      strategy,
		RewardID:      rewardID,
		OfferID:       offerID,
		Amount:        amount,
	}
	if err := s.ledger.Create(ctx, attempt); err != nil {
		s.logger.Warn("Failed to record redemption attempt", zap.Error(err))
		return nil
	}
	return &attemptRef{id: attempt.ID, status: entities.RedemptionStatusPending}
}

func (s *Service) markPushed(ctx context.Context, ref *attemptRef, taskHash string) {
	s.transition(ctx, ref, entities.RedemptionAttemptStatusUpdateTo(entities.RedemptionStatusPushed, taskHash, "", ""))
}

func (s *Service) completeAttempt(ctx context.Context, ref *attemptRef, order *entities.RedemptionOrder) {
	orderID := ""
	if order != nil {
		orderID = order.ID
	}
	s.transition(ctx, ref, entities.RedemptionAttemptStatusUpdateTo(entities.RedemptionStatusCompleted, "", orderID, ""))
}

func (s *Service) failAttempt(ctx context.Context, ref *attemptRef, cause error) {
	s.finishAttempt(ctx, ref, entities.RedemptionStatusFailed, "", cause)
}

func (s *Service) finishAttempt(ctx context.Context, ref *attemptRef, status entities.RedemptionAttemptStatus, taskID string, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	s.transition(ctx, ref, entities.RedemptionAttemptStatusUpdateTo(status, taskID, "", msg))
}

func (s *Service) transition(ctx context.Context, ref *attemptRef, update entities.RedemptionStatusUpdate) {
	if ref == nil || s.ledger == nil {
		return
	}
	update.From = ref.status
	if err := s.ledger.UpdateStatus(context.WithoutCancel(ctx), ref.id, update); err != nil {
		s.logger.Warn("Failed to update redemption attempt",
			zap.String("attempt_id", ref.id.String()),
			zap.String("to", string(update.To)),
			zap.Error(err))
		return
	}
	ref.status = update.To
}
