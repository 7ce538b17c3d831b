package reports

import (
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Series is a chart-ready pair of parallel label and value slices.
type Series struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

func (s *Series) add(label string, value decimal.Decimal) {
	s.Labels = append(s.Labels, label)
	s.Values = append(s.Values, value)
}

// SalesReport summarizes the last Days days of counter activity. Voided sales
// are counted but never added to revenue.
type SalesReport struct {
	Days        int             `json:"days"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Daily       Series          `json:"daily"`
	ByMethod    Series          `json:"by_method"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	ActiveCount int             `json:"active_count"`
	VoidedCount int             `json:"voided_count"`
}

// ExportFilters narrows the sales workbook.
type ExportFilters struct {
	Status enums.SaleStatusFilter
	From   *time.Time
	To     *time.Time
}
