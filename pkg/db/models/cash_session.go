package models

import (
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashSession is a cash drawer shift. A user holds at most one open session,
// enforced by the partial unique index on user_id.
type CashSession struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:idx_cash_sessions_user_open,where:is_open = true"`
	User           *User               `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	OpenedAt       time.Time           `gorm:"column:opened_at;not null"`
	ClosedAt       *time.Time          `gorm:"column:closed_at"`
	OpeningBalance decimal.Decimal     `gorm:"column:opening_balance;type:numeric(10,2);not null"`
	ClosingBalance decimal.NullDecimal `gorm:"column:closing_balance;type:numeric(10,2)"`
	IsOpen         bool                `gorm:"column:is_open;not null;default:true"`
	Movements      []CashMovement      `gorm:"foreignKey:CashSessionID;constraint:OnDelete:CASCADE"`
}

func (s *CashSession) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// CashMovement is an append-only entry in a session's drawer log. Amount is
// always positive; Kind carries the sign.
type CashMovement struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	CashSessionID uuid.UUID          `gorm:"column:cash_session_id;type:uuid;not null;index"`
	Kind          enums.MovementKind `gorm:"column:kind;type:text;not null"`
	Amount        decimal.Decimal    `gorm:"column:amount;type:numeric(10,2);not null"`
	Description   string             `gorm:"column:description;type:text;not null"`
	SaleID        *uuid.UUID         `gorm:"column:sale_id;type:uuid;index"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (m *CashMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Signed returns the amount with the movement direction applied.
func (m CashMovement) Signed() decimal.Decimal {
	if m.Kind == enums.MovementKindExpense {
		return m.Amount.Neg()
	}
	return m.Amount
}
