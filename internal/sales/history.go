package sales

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line change statuses.
const (
	LineAdded    = "added"
	LineRemoved  = "removed"
	LineModified = "modified"
)

// FieldChange is a sale column that differs between two versions.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// LineState is one side of a line comparison.
type LineState struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Stock       int             `json:"stock"`
}

type LineChange struct {
	LineID  uuid.UUID  `json:"line_id"`
	Product string     `json:"product"`
	Status  string     `json:"status"`
	Old     *LineState `json:"old"`
	New     *LineState `json:"new"`
}

// Changes lists what moved from one version to another.
type Changes struct {
	Fields []FieldChange `json:"fields"`
	Lines  []LineChange  `json:"lines"`
}

// Empty reports whether the two versions were identical.
func (c Changes) Empty() bool {
	return len(c.Fields) == 0 && len(c.Lines) == 0
}

// Diff compares two snapshots of the same sale.
func Diff(from, to Snapshot) Changes {
	out := Changes{Fields: []FieldChange{}, Lines: []LineChange{}}

	if !from.Total.Equal(to.Total) {
		out.Fields = append(out.Fields, FieldChange{Field: "total", Old: from.Total.StringFixed(2), New: to.Total.StringFixed(2)})
	}
	if from.PaymentMethod != to.PaymentMethod {
		out.Fields = append(out.Fields, FieldChange{Field: "payment_method", Old: from.PaymentMethod, New: to.PaymentMethod})
	}
	if !nullDecimalEqual(from.MixedCash, to.MixedCash) {
		out.Fields = append(out.Fields, FieldChange{Field: "mixed_cash", Old: nullDecimalValue(from.MixedCash), New: nullDecimalValue(to.MixedCash)})
	}
	if !nullDecimalEqual(from.MixedOther, to.MixedOther) {
		out.Fields = append(out.Fields, FieldChange{Field: "mixed_other", Old: nullDecimalValue(from.MixedOther), New: nullDecimalValue(to.MixedOther)})
	}
	if from.Voided != to.Voided {
		out.Fields = append(out.Fields, FieldChange{Field: "voided", Old: from.Voided, New: to.Voided})
	}
	if stringValue(from.VoidReason) != stringValue(to.VoidReason) {
		out.Fields = append(out.Fields, FieldChange{Field: "void_reason", Old: from.VoidReason, New: to.VoidReason})
	}

	next := make(map[uuid.UUID]SnapshotLine, len(to.Lines))
	for _, line := range to.Lines {
		next[line.LineID] = line
	}
	seen := make(map[uuid.UUID]bool, len(from.Lines))
	for _, line := range from.Lines {
		seen[line.LineID] = true
		old := stateOf(line)
		after, ok := next[line.LineID]
		if !ok {
			out.Lines = append(out.Lines, LineChange{LineID: line.LineID, Product: line.ProductName, Status: LineRemoved, Old: &old})
			continue
		}
		if lineChanged(line, after) {
			updated := stateOf(after)
			out.Lines = append(out.Lines, LineChange{LineID: line.LineID, Product: after.ProductName, Status: LineModified, Old: &old, New: &updated})
		}
	}
	for _, line := range to.Lines {
		if seen[line.LineID] {
			continue
		}
		added := stateOf(line)
		out.Lines = append(out.Lines, LineChange{LineID: line.LineID, Product: line.ProductName, Status: LineAdded, New: &added})
	}
	return out
}

func lineChanged(a, b SnapshotLine) bool {
	return a.ProductID != b.ProductID ||
		a.Quantity != b.Quantity ||
		!a.UnitPrice.Equal(b.UnitPrice) ||
		!a.Subtotal.Equal(b.Subtotal)
}

func stateOf(line SnapshotLine) LineState {
	return LineState{
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice,
		Subtotal:    line.Subtotal,
		Stock:       line.Stock,
	}
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func nullDecimalValue(v decimal.NullDecimal) any {
	if !v.Valid {
		return nil
	}
	return v.Decimal.StringFixed(2)
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
