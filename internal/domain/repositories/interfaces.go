package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/meagent/meagent_service/internal/domain/entities"
)

// RedemptionLedgerRepository defines the interface for redemption attempt persistence
type RedemptionLedgerRepository interface {
	Create(ctx context.Context, attempt *entities.RedemptionAttempt) error
	UpdateStatus(ctx context.Context, id uuid.UUID, update entities.RedemptionStatusUpdate) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.RedemptionAttempt, error)
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*entities.RedemptionAttempt, error)
}

// ErrCacheMiss is returned by a CatalogCache when nothing is stored
var ErrCacheMiss = errors.New("cache miss")

// CatalogCache defines the interface for the brand and category list cache
type CatalogCache interface {
	Brands(ctx context.Context) ([]entities.Brand, error)
	SetBrands(ctx context.Context, brands []entities.Brand) error
	Categories(ctx context.Context) ([]entities.Category, error)
	SetCategories(ctx context.Context, categories []entities.Category) error
}
