package cashregister

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/puntoventa-backend/internal/repo"
	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository persists cash sessions.
type Repository struct {
	base repo.Base
}

// NewRepository binds a session repository to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// FindOpenByUser returns the open session of a user, or nil when none is open.
func (r *Repository) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*models.CashSession, error) {
	var session models.CashSession
	ok, err := r.base.First(ctx, &session, "user_id = ? AND is_open = ?", userID, true)
	if err != nil || !ok {
		return nil, err
	}
	return &session, nil
}

// FindByID loads a session; gorm.ErrRecordNotFound is returned untouched.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CashSession, error) {
	var session models.CashSession
	if err := r.base.DB(ctx).Preload("User").First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *Repository) Create(ctx context.Context, session *models.CashSession) error {
	return r.base.DB(ctx).Create(session).Error
}

// MarkClosed flips an open session to closed. It reports false when the
// session was already closed.
func (r *Repository) MarkClosed(ctx context.Context, id uuid.UUID, closing decimal.Decimal, closedAt time.Time) (bool, error) {
	res := r.base.DB(ctx).
		Model(&models.CashSession{}).
		Where("id = ? AND is_open = ?", id, true).
		Updates(map[string]any{
			"is_open":         false,
			"closing_balance": closing,
			"closed_at":       closedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List returns sessions newest first using opened_at/id cursors.
func (r *Repository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.CashSession, *pagination.Cursor, error) {
	var sessions []models.CashSession
	query := r.base.DB(ctx).Preload("User")
	if err := pagination.Apply(query, "opened_at", cursor, limit).Find(&sessions).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(sessions, limit, func(s models.CashSession) pagination.Cursor {
		return pagination.Cursor{CreatedAt: s.OpenedAt, ID: s.ID}
	})
	return page, next, nil
}

// ListOpenedBefore returns sessions still open that were opened before cutoff.
func (r *Repository) ListOpenedBefore(ctx context.Context, cutoff time.Time) ([]models.CashSession, error) {
	var sessions []models.CashSession
	if err := r.base.DB(ctx).
		Preload("User").
		Where("is_open = ? AND opened_at < ?", true, cutoff).
		Order("opened_at ASC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
