package sales

import (
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Snapshot is the sale as stored in a version row.
type Snapshot struct {
	SaleID        uuid.UUID           `json:"sale_id"`
	UserID        uuid.UUID           `json:"user_id"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	MixedCash     decimal.NullDecimal `json:"mixed_cash"`
	MixedOther    decimal.NullDecimal `json:"mixed_other"`
	Voided        bool                `json:"voided"`
	VoidedByID    *uuid.UUID          `json:"voided_by_id,omitempty"`
	VoidReason    *string             `json:"void_reason,omitempty"`
	Lines         []SnapshotLine      `json:"lines"`
}

// SnapshotLine records a line plus the product stock left after the mutation.
type SnapshotLine struct {
	LineID      uuid.UUID       `json:"line_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Stock       int             `json:"stock"`
}

// SnapshotOf captures a sale loaded with Lines.Product.
func SnapshotOf(sale *models.Sale) Snapshot {
	out := Snapshot{
		SaleID:        sale.ID,
		UserID:        sale.UserID,
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
		MixedCash:     sale.MixedCash,
		MixedOther:    sale.MixedOther,
		Voided:        sale.Voided,
		VoidedByID:    sale.VoidedByID,
		VoidReason:    sale.VoidReason,
		Lines:         make([]SnapshotLine, 0, len(sale.Lines)),
	}
	for _, line := range sale.Lines {
		entry := SnapshotLine{
			LineID:    line.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		}
		if line.Product != nil {
			entry.ProductName = line.Product.Name
			entry.Stock = line.Product.Stock
		}
		out.Lines = append(out.Lines, entry)
	}
	return out
}

func encodeSnapshot(s Snapshot) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(raw), nil
}

func decodeSnapshot(raw string) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
