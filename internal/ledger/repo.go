package ledger

import (
	"context"

	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for cash movements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.CashMovement) error
	ListBySessionID(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error)
	ListBySessionIDs(ctx context.Context, sessionIDs []uuid.UUID) ([]models.CashMovement, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a movement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, movement *models.CashMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) ListBySessionID(ctx context.Context, sessionID uuid.UUID) ([]models.CashMovement, error) {
	var movements []models.CashMovement
	if err := r.db.WithContext(ctx).
		Where("cash_session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) ListBySessionIDs(ctx context.Context, sessionIDs []uuid.UUID) ([]models.CashMovement, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	var movements []models.CashMovement
	if err := r.db.WithContext(ctx).
		Where("cash_session_id IN ?", sessionIDs).
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}
