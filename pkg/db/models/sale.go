package models

import (
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale is a recorded counter sale. Voided sales stay in the table.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	User          *User               `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(10,2);not null;default:0"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	MixedCash     decimal.NullDecimal `gorm:"column:mixed_cash;type:numeric(10,2)"`
	MixedOther    decimal.NullDecimal `gorm:"column:mixed_other;type:numeric(10,2)"`
	Voided        bool                `gorm:"column:voided;not null;default:false;index"`
	VoidedByID    *uuid.UUID          `gorm:"column:voided_by_id;type:uuid"`
	VoidReason    *string             `gorm:"column:void_reason"`
	VoidedAt      *time.Time          `gorm:"column:voided_at"`
	Lines         []SaleLine          `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SaleLine is one product entry of a sale. UnitPrice is the catalog price
// captured when the line was last saved.
type SaleLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	Quantity  int             `gorm:"column:quantity;not null;check:chk_sale_lines_quantity_positive,quantity > 0"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (l *SaleLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
