package sales

import (
	"fmt"
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineDTO is a sale line with its product name resolved.
type LineDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleDTO is the full read model of a sale.
type SaleDTO struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	Seller        string              `json:"seller"`
	CreatedAt     time.Time           `json:"created_at"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaymentLabel  string              `json:"payment_label"`
	MixedCash     decimal.NullDecimal `json:"mixed_cash"`
	MixedOther    decimal.NullDecimal `json:"mixed_other"`
	Voided        bool                `json:"voided"`
	VoidedByID    *uuid.UUID          `json:"voided_by_id,omitempty"`
	VoidReason    *string             `json:"void_reason,omitempty"`
	VoidedAt      *time.Time          `json:"voided_at,omitempty"`
	Lines         []LineDTO           `json:"lines,omitempty"`
}

// RecordResult is returned by RecordSale.
type RecordResult struct {
	Sale SaleDTO `json:"sale"`
	// Change owed to the customer for cash and mixed payments.
	Change decimal.Decimal `json:"change"`
	// CashRegistered is false when a cash portion could not be posted because
	// the seller had no open session.
	CashRegistered bool `json:"cash_registered"`
}

type SaleList struct {
	Sales      []SaleDTO `json:"sales"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type TicketLine struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// TicketDTO carries what the counter printer needs, already localized.
type TicketDTO struct {
	StoreName     string       `json:"store_name"`
	SaleID        uuid.UUID    `json:"sale_id"`
	Date          string       `json:"date"`
	Seller        string       `json:"seller"`
	PaymentMethod string       `json:"payment_method"`
	Total         string       `json:"total"`
	Voided        bool         `json:"voided"`
	Lines         []TicketLine `json:"lines"`
	PrintedAt     string       `json:"printed_at"`
}

// VersionDTO is one entry in a sale's history.
type VersionDTO struct {
	Version   int                     `json:"version"`
	Action    enums.SaleVersionAction `json:"action"`
	ActorID   uuid.UUID               `json:"actor_id"`
	Actor     string                  `json:"actor"`
	Reason    *string                 `json:"reason,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	Sale      Snapshot                `json:"sale"`
	// Changes against the previous version; nil for the first one.
	Changes *Changes `json:"changes"`
}

type ComparisonDTO struct {
	From    VersionDTO `json:"from"`
	To      VersionDTO `json:"to"`
	Changes Changes    `json:"changes"`
}

// TicketTimeLayout is the day-first layout printed on tickets.
const TicketTimeLayout = "02/01/2006 15:04"

func NewSaleDTO(sale *models.Sale, withLines bool) SaleDTO {
	dto := SaleDTO{
		ID:            sale.ID,
		UserID:        sale.UserID,
		CreatedAt:     sale.CreatedAt,
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
		PaymentLabel:  PaymentLabel(sale),
		MixedCash:     sale.MixedCash,
		MixedOther:    sale.MixedOther,
		Voided:        sale.Voided,
		VoidedByID:    sale.VoidedByID,
		VoidReason:    sale.VoidReason,
		VoidedAt:      sale.VoidedAt,
	}
	if sale.User != nil {
		dto.Seller = sale.User.DisplayName()
	}
	if withLines {
		dto.Lines = make([]LineDTO, 0, len(sale.Lines))
		for _, line := range sale.Lines {
			entry := LineDTO{
				ID:        line.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Subtotal:  line.Subtotal,
			}
			if line.Product != nil {
				entry.ProductName = line.Product.Name
			}
			dto.Lines = append(dto.Lines, entry)
		}
	}
	return dto
}

// PaymentLabel renders the method for people, spelling out mixed splits.
func PaymentLabel(sale *models.Sale) string {
	if sale.PaymentMethod != enums.PaymentMethodMixed {
		return sale.PaymentMethod.Label()
	}
	return fmt.Sprintf("%s (Efectivo: $%s, Otros: $%s)",
		sale.PaymentMethod.Label(),
		nullOrZero(sale.MixedCash).StringFixed(2),
		nullOrZero(sale.MixedOther).StringFixed(2),
	)
}

func nullOrZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
