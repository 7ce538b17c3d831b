package sales

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/angelmondragon/puntoventa-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository persists sales, their lines, and their version history.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListFilters narrows sale listings.
type ListFilters struct {
	Status enums.SaleStatusFilter
	UserID *uuid.UUID
	From   *time.Time
	To     *time.Time
}

func (r *Repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Omit("User").Create(sale).Error
}

// FindByID loads a sale with its seller and lines (products included).
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Lines.Product").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// MarkVoided flips the voided flag only if the sale is still active.
func (r *Repository) MarkVoided(ctx context.Context, id, actorID uuid.UUID, reason *string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND voided = ?", id, false).
		Updates(map[string]any{
			"voided":       true,
			"voided_by_id": actorID,
			"void_reason":  reason,
			"voided_at":    at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateHeader writes the payment and total columns of an active sale.
func (r *Repository) UpdateHeader(ctx context.Context, sale *models.Sale) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND voided = ?", sale.ID, false).
		Updates(map[string]any{
			"total":          sale.Total,
			"payment_method": sale.PaymentMethod,
			"mixed_cash":     sale.MixedCash,
			"mixed_other":    sale.MixedOther,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) CreateLine(ctx context.Context, line *models.SaleLine) error {
	return r.db.WithContext(ctx).Omit("Product").Create(line).Error
}

func (r *Repository) UpdateLine(ctx context.Context, line *models.SaleLine) error {
	return r.db.WithContext(ctx).
		Model(&models.SaleLine{}).
		Where("id = ?", line.ID).
		Updates(map[string]any{
			"product_id": line.ProductID,
			"quantity":   line.Quantity,
			"unit_price": line.UnitPrice,
			"subtotal":   line.Subtotal,
		}).Error
}

func (r *Repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.SaleLine{}, "id = ?", lineID).Error
}

// Lines returns the persisted lines of a sale.
func (r *Repository) Lines(ctx context.Context, saleID uuid.UUID) ([]models.SaleLine, error) {
	var lines []models.SaleLine
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// SumLines is the exact sum of the persisted line subtotals.
func (r *Repository) SumLines(ctx context.Context, saleID uuid.UUID) (decimal.Decimal, error) {
	lines, err := r.Lines(ctx, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal)
	}
	return total, nil
}

func (r *Repository) List(ctx context.Context, filters ListFilters, cursor *pagination.Cursor, limit int) ([]models.Sale, *pagination.Cursor, error) {
	var sales []models.Sale
	query := r.filtered(ctx, filters).Preload("User")
	if err := pagination.Apply(query, "created_at", cursor, limit).Find(&sales).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(sales, limit, func(s models.Sale) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.CreatedAt, ID: s.ID}
	})
	return page, next, nil
}

// ListAll returns every sale matching filters with lines and products, newest
// first. Used by exports and reports.
func (r *Repository) ListAll(ctx context.Context, filters ListFilters) ([]models.Sale, error) {
	var sales []models.Sale
	if err := r.filtered(ctx, filters).
		Preload("User").
		Preload("Lines").
		Preload("Lines.Product").
		Order("created_at DESC").
		Order("id DESC").
		Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *Repository) filtered(ctx context.Context, filters ListFilters) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Sale{})
	switch filters.Status {
	case enums.SaleStatusActive:
		query = query.Where("voided = ?", false)
	case enums.SaleStatusVoided:
		query = query.Where("voided = ?", true)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.From != nil {
		query = query.Where("created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("created_at < ?", *filters.To)
	}
	return query
}

// AppendVersion stores the next version number for the sale.
func (r *Repository) AppendVersion(ctx context.Context, version *models.SaleVersion) error {
	var latest models.SaleVersion
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", version.SaleID).
		Order("version DESC").
		First(&latest).Error
	switch {
	case err == nil:
		version.Version = latest.Version + 1
	case errors.Is(err, gorm.ErrRecordNotFound):
		version.Version = 1
	default:
		return err
	}
	return r.db.WithContext(ctx).Create(version).Error
}

// Versions lists a sale's versions newest first.
func (r *Repository) Versions(ctx context.Context, saleID uuid.UUID) ([]models.SaleVersion, error) {
	var versions []models.SaleVersion
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("version DESC").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *Repository) FindVersion(ctx context.Context, saleID uuid.UUID, version int) (*models.SaleVersion, error) {
	var out models.SaleVersion
	if err := r.db.WithContext(ctx).
		Where("sale_id = ? AND version = ?", saleID, version).
		First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// UsernamesByID resolves actor ids for history listings.
func (r *Repository) UsernamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Select("id", "username").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Username
	}
	return out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
