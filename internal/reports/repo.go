package reports

import (
	"context"
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// saleRow is the slice of a sale header the dashboard aggregates.
type saleRow struct {
	CreatedAt     time.Time           `gorm:"column:created_at"`
	Total         decimal.Decimal     `gorm:"column:total"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method"`
	Voided        bool                `gorm:"column:voided"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SalesSince loads sale headers created at or after from, oldest first.
func (r *Repository) SalesSince(ctx context.Context, from time.Time) ([]saleRow, error) {
	var rows []saleRow
	err := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Select("created_at", "total", "payment_method", "voided").
		Where("created_at >= ?", from).
		Order("created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
