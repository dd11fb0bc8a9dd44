package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/meagent/meagent_service/internal/domain/entities"
)

var (
	ErrAttemptNotFound   = errors.New("redemption attempt not found")
	ErrInvalidTransition = errors.New("invalid redemption status transition")
)

// RedemptionLedgerRepository persists redemption attempts
type RedemptionLedgerRepository struct {
	db *sqlx.DB
}

// NewRedemptionLedgerRepository creates a new redemption ledger repository
func NewRedemptionLedgerRepository(db *sqlx.DB) *RedemptionLedgerRepository {
	return &RedemptionLedgerRepository{db: db}
}

// Create inserts a new attempt in pending state
func (r *RedemptionLedgerRepository) Create(ctx context.Context, a *entities.RedemptionAttempt) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.Status = entities.RedemptionStatusPending
	a.CreatedAt, a.UpdatedAt = now, now

	query := `
		INSERT INTO redemption_attempts (id, session_id, wallet_address, strategy, reward_id, offer_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.SessionID, a.WalletAddress, a.Strategy, a.RewardID, a.OfferID, a.Amount, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert redemption attempt: %w", err)
	}
	return nil
}

// UpdateStatus moves an attempt from u.From to u.To. Empty optional fields keep their stored value.
func (r *RedemptionLedgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, u entities.RedemptionStatusUpdate) error {
	if !u.From.CanTransitionTo(u.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, u.From, u.To)
	}
	query := `
		UPDATE redemption_attempts
		SET status = $1,
			task_id = COALESCE($2, task_id),
			order_id = COALESCE($3, order_id),
			error_message = COALESCE($4, error_message),
			updated_at = $5
		WHERE id = $6 AND status = $7`
	res, err := r.db.ExecContext(ctx, query,
		u.To, nullString(u.TaskID), nullString(u.OrderID), nullString(u.ErrorMessage), time.Now().UTC(), id, u.From)
	if err != nil {
		return fmt.Errorf("update redemption attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update redemption attempt: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: attempt %s is not %s", ErrInvalidTransition, id, u.From)
	}
	return nil
}

// GetByID returns one attempt
func (r *RedemptionLedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.RedemptionAttempt, error) {
	query := `
		SELECT id, session_id, wallet_address, strategy, reward_id, offer_id, amount, status, task_id, order_id, error_message, created_at, updated_at
		FROM redemption_attempts
		WHERE id = $1`
	var a entities.RedemptionAttempt
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListBySession returns a session's attempts, newest first
func (r *RedemptionLedgerRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]*entities.RedemptionAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, session_id, wallet_address, strategy, reward_id, offer_id, amount, status, task_id, order_id, error_message, created_at, updated_at
		FROM redemption_attempts
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	var attempts []*entities.RedemptionAttempt
	if err := r.db.SelectContext(ctx, &attempts, query, sessionID, limit); err != nil {
		return nil, err
	}
	return attempts, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
