package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RedemptionAttemptStatus tracks a redemption through push, order and refund
type RedemptionAttemptStatus string

const (
	RedemptionStatusPending      RedemptionAttemptStatus = "pending"       // Preconditions passed
	RedemptionStatusPushed       RedemptionAttemptStatus = "pushed"        // Transaction accepted by the runtime
	RedemptionStatusCompleted    RedemptionAttemptStatus = "completed"     // Terminal: order created
	RedemptionStatusRefunded     RedemptionAttemptStatus = "refunded"      // Terminal: failed after push, refund accepted
	RedemptionStatusRefundFailed RedemptionAttemptStatus = "refund_failed" // Terminal: failed after push, refund rejected
	RedemptionStatusFailed       RedemptionAttemptStatus = "failed"        // Terminal: failed before push
)

// ValidRedemptionTransitions defines allowed status transitions
var ValidRedemptionTransitions = map[RedemptionAttemptStatus][]RedemptionAttemptStatus{
	RedemptionStatusPending:      {RedemptionStatusPushed, RedemptionStatusFailed},
	RedemptionStatusPushed:       {RedemptionStatusCompleted, RedemptionStatusRefunded, RedemptionStatusRefundFailed},
	RedemptionStatusCompleted:    {},
	RedemptionStatusRefunded:     {},
	RedemptionStatusRefundFailed: {},
	RedemptionStatusFailed:       {},
}

// CanTransitionTo checks if transition to new status is allowed
func (s RedemptionAttemptStatus) CanTransitionTo(next RedemptionAttemptStatus) bool {
	for _, allowed := range ValidRedemptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s RedemptionAttemptStatus) IsTerminal() bool {
	allowed, ok := ValidRedemptionTransitions[s]
	return ok && len(allowed) == 0
}

// RedemptionStrategy names the transaction path used
type RedemptionStrategy string

const (
	StrategySameBrand  RedemptionStrategy = "same_brand"
	StrategyCrossBrand RedemptionStrategy = "cross_brand"
)

// RedemptionAttempt is one row of the redemption ledger
type RedemptionAttempt struct {
	ID            uuid.UUID               `db:"id"`
	SessionID     string                  `db:"session_id"`
	WalletAddress string                  `db:"wallet_address"`
	Strategy      RedemptionStrategy      `db:"strategy"`
	RewardID      string                  `db:"reward_id"`
	OfferID       string                  `db:"offer_id"`
	Amount        decimal.Decimal         `db:"amount"`
	Status        RedemptionAttemptStatus `db:"status"`
	TaskID        *string                 `db:"task_id"`
	OrderID       *string                 `db:"order_id"`
	ErrorMessage  *string                 `db:"error_message"`
	CreatedAt     time.Time               `db:"created_at"`
	UpdatedAt     time.Time               `db:"updated_at"`
}

// RedemptionStatusUpdate carries the fields written on a status transition.
// Empty optional fields keep their stored value.
type RedemptionStatusUpdate struct {
	From         RedemptionAttemptStatus
	To           RedemptionAttemptStatus
	TaskID       string
	OrderID      string
	ErrorMessage string
}

// RedemptionAttemptStatusUpdateTo builds an update to status; From is filled by the caller
func RedemptionAttemptStatusUpdateTo(to RedemptionAttemptStatus, taskID, orderID, errorMessage string) RedemptionStatusUpdate {
	return RedemptionStatusUpdate{To: to, TaskID: taskID, OrderID: orderID, ErrorMessage: errorMessage}
}
