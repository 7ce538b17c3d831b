package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/puntoventa-backend/internal/sales"
	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/angelmondragon/puntoventa-backend/pkg/export"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultDays = 7
	MaxDays     = 366

	dayLabelLayout = "02-Jan"
)

// saleSource is the read side of the sale ledger used by the exports.
type saleSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	ListAll(ctx context.Context, filters sales.ListFilters) ([]models.Sale, error)
}

// Service builds the dashboard figures and document exports.
type Service interface {
	SalesReport(ctx context.Context, days int) (*SalesReport, error)
	ExportSales(ctx context.Context, filters ExportFilters) ([]byte, error)
	SalePDF(ctx context.Context, saleID uuid.UUID) ([]byte, error)
}

type ServiceParams struct {
	Repo        *Repository
	Sales       saleSource
	Logger      *logger.Logger
	Location    *time.Location
	StoreName   string
	DefaultDays int
}

type service struct {
	repo        *Repository
	sales       saleSource
	logg        *logger.Logger
	loc         *time.Location
	storeName   string
	defaultDays int
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("sales source required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	days := params.DefaultDays
	if days <= 0 || days > MaxDays {
		days = DefaultDays
	}
	return &service{
		repo:        params.Repo,
		sales:       params.Sales,
		logg:        params.Logger,
		loc:         loc,
		storeName:   params.StoreName,
		defaultDays: days,
		now:         time.Now,
	}, nil
}

// SalesReport buckets sales per local calendar day, today included. Days
// without sales appear with a zero value so the series is contiguous.
func (s *service) SalesReport(ctx context.Context, days int) (*SalesReport, error) {
	if days == 0 {
		days = s.defaultDays
	}
	if days < 0 || days > MaxDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("days must be between 1 and %d", MaxDays)).
			WithDetails(map[string]any{"days": days})
	}

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	from := today.AddDate(0, 0, -(days - 1))
	to := today.AddDate(0, 0, 1)

	rows, err := s.repo.SalesSince(ctx, from.UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sales for report")
	}

	report := &SalesReport{Days: days, From: from, To: to, GrandTotal: decimal.Zero}
	daily := make(map[string]decimal.Decimal, days)
	perMethod := make(map[enums.PaymentMethod]decimal.Decimal)
	for _, row := range rows {
		if row.Voided {
			report.VoidedCount++
			continue
		}
		report.ActiveCount++
		key := row.CreatedAt.In(s.loc).Format(time.DateOnly)
		daily[key] = daily[key].Add(row.Total)
		perMethod[row.PaymentMethod] = perMethod[row.PaymentMethod].Add(row.Total)
		report.GrandTotal = report.GrandTotal.Add(row.Total)
	}

	report.Daily = Series{Labels: []string{}, Values: []decimal.Decimal{}}
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		report.Daily.add(day.Format(dayLabelLayout), daily[day.Format(time.DateOnly)])
	}
	report.ByMethod = Series{Labels: []string{}, Values: []decimal.Decimal{}}
	for _, method := range enums.PaymentMethods() {
		if total, ok := perMethod[method]; ok {
			report.ByMethod.add(method.Label(), total)
		}
	}
	return report, nil
}

func (s *service) ExportSales(ctx context.Context, filters ExportFilters) ([]byte, error) {
	list, err := s.sales.ListAll(ctx, sales.ListFilters{
		Status: filters.Status,
		From:   filters.From,
		To:     filters.To,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list sales for export")
	}

	var rows []export.SaleLineRow
	for i := range list {
		sale := &list[i]
		seller := ""
		if sale.User != nil {
			seller = sale.User.DisplayName()
		}
		for _, line := range sale.Lines {
			product := ""
			if line.Product != nil {
				product = line.Product.Name
			}
			rows = append(rows, export.SaleLineRow{
				SaleID:    sale.ID.String(),
				Date:      sale.CreatedAt,
				Seller:    seller,
				Method:    sale.PaymentMethod.Label(),
				Voided:    sale.Voided,
				Product:   product,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Subtotal:  line.Subtotal,
				SaleTotal: sale.Total,
			})
		}
	}

	data, err := export.SalesWorkbook(rows, s.loc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render sales workbook")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"sales": len(list), "lines": len(rows)})
	s.logg.Info(ctx, "report.sales_exported")
	return data, nil
}

func (s *service) SalePDF(ctx context.Context, saleID uuid.UUID) ([]byte, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load sale")
	}

	doc := export.SaleDocument{
		StoreName:     s.storeName,
		SaleID:        sale.ID.String(),
		Date:          sale.CreatedAt,
		PaymentMethod: sales.PaymentLabel(sale),
		Voided:        sale.Voided,
		Total:         sale.Total,
	}
	if sale.User != nil {
		doc.Seller = sale.User.DisplayName()
	}
	if sale.VoidReason != nil {
		doc.VoidReason = *sale.VoidReason
	}
	for _, line := range sale.Lines {
		name := ""
		if line.Product != nil {
			name = line.Product.Name
		}
		doc.Lines = append(doc.Lines, export.DocumentLine{
			Product:   name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}

	data, err := export.SalePDF(doc, s.loc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render sale pdf")
	}
	return data, nil
}
