package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// SalesMetrics counts ledger mutations at the counter.
type SalesMetrics struct {
	recorded *prometheus.CounterVec
	revenue  *prometheus.CounterVec
	voided   prometheus.Counter
	amended  prometheus.Counter
	rejected *prometheus.CounterVec
}

// NewSalesMetrics registers the sale ledger metrics on the provided registerer.
func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	if reg == nil {
		return &SalesMetrics{}
	}
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_recorded_total",
		Help: "Sales recorded, by payment method.",
	}, []string{"method"})
	revenue := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_revenue_total",
		Help: "Sum of recorded sale totals, by payment method.",
	}, []string{"method"})
	voided := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_voided_total",
		Help: "Sales voided.",
	})
	amended := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_sales_amended_total",
		Help: "Sales amended.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_sales_rejected_total",
		Help: "Ledger operations rejected, by error code.",
	}, []string{"code"})
	reg.MustRegister(recorded, revenue, voided, amended, rejected)
	return &SalesMetrics{
		recorded: recorded,
		revenue:  revenue,
		voided:   voided,
		amended:  amended,
		rejected: rejected,
	}
}

func (m *SalesMetrics) SaleRecorded(method string, total decimal.Decimal) {
	if m == nil || m.recorded == nil {
		return
	}
	label := normalizeLabel(method)
	m.recorded.WithLabelValues(label).Inc()
	m.revenue.WithLabelValues(label).Add(total.InexactFloat64())
}

func (m *SalesMetrics) SaleVoided() {
	if m == nil || m.voided == nil {
		return
	}
	m.voided.Inc()
}

func (m *SalesMetrics) SaleAmended() {
	if m == nil || m.amended == nil {
		return
	}
	m.amended.Inc()
}

// Rejected counts a ledger operation that failed with the given error code.
func (m *SalesMetrics) Rejected(code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(code)).Inc()
}
