package reports

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/puntoventa-backend/internal/sales"
	"github.com/angelmondragon/puntoventa-backend/pkg/db/dbtest"
	"github.com/angelmondragon/puntoventa-backend/pkg/db/models"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/angelmondragon/puntoventa-backend/pkg/export"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, now time.Time) (*service, *gorm.DB) {
	t.Helper()
	conn := dbtest.NewDB(t)
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		Sales:     sales.NewRepository(conn),
		Logger:    logger.New(logger.Options{Output: io.Discard}),
		Location:  loc,
		StoreName: "Abarrotes Lupita",
	})
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return now }
	return impl, conn
}

func insertSale(t *testing.T, conn *gorm.DB, user *models.User, at time.Time, method enums.PaymentMethod, total string, voided bool, lines ...models.SaleLine) *models.Sale {
	t.Helper()
	sale := &models.Sale{
		UserID:        user.ID,
		Total:         decimal.RequireFromString(total),
		PaymentMethod: method,
		Lines:         lines,
		CreatedAt:     at.UTC(),
	}
	require.NoError(t, conn.Omit("User").Create(sale).Error)
	if voided {
		reason := "cliente se arrepintió"
		require.NoError(t, conn.Model(&models.Sale{}).Where("id = ?", sale.ID).
			Updates(map[string]any{"voided": true, "void_reason": reason, "voided_by_id": user.ID}).Error)
	}
	return sale
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s got %s", want, got)
}

func TestSalesReportBucketsByLocalDay(t *testing.T) {
	now := time.Date(2024, 6, 10, 18, 0, 0, 0, time.UTC)
	svc, conn := newTestService(t, now)
	user := dbtest.MustCreateUser(t, conn, enums.UserRoleCashier)

	insertSale(t, conn, user, time.Date(2024, 6, 7, 23, 0, 0, 0, time.UTC), enums.PaymentMethodCash, "100", false)
	// still June 7th in Mexico City
	insertSale(t, conn, user, time.Date(2024, 6, 8, 5, 0, 0, 0, time.UTC), enums.PaymentMethodCash, "50", false)
	insertSale(t, conn, user, time.Date(2024, 6, 8, 7, 0, 0, 0, time.UTC), enums.PaymentMethodCash, "10.50", false)
	insertSale(t, conn, user, time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC), enums.PaymentMethodCredit, "20", false)
	insertSale(t, conn, user, time.Date(2024, 6, 10, 17, 0, 0, 0, time.UTC), enums.PaymentMethodCash, "5.25", false)
	insertSale(t, conn, user, time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC), enums.PaymentMethodCash, "99", true)

	report, err := svc.SalesReport(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Days)
	assert.Equal(t, []string{"08-Jun", "09-Jun", "10-Jun"}, report.Daily.Labels)
	require.Len(t, report.Daily.Values, 3)
	assertDecimal(t, "10.50", report.Daily.Values[0])
	assertDecimal(t, "20", report.Daily.Values[1])
	assertDecimal(t, "5.25", report.Daily.Values[2])

	assert.Equal(t, []string{"Efectivo", "Tarjeta de Crédito"}, report.ByMethod.Labels)
	assertDecimal(t, "15.75", report.ByMethod.Values[0])
	assertDecimal(t, "20", report.ByMethod.Values[1])

	assertDecimal(t, "35.75", report.GrandTotal)
	assert.Equal(t, 3, report.ActiveCount)
	assert.Equal(t, 1, report.VoidedCount)
}

func TestSalesReportDefaultsAndBounds(t *testing.T) {
	svc, _ := newTestService(t, time.Now())
	ctx := context.Background()

	report, err := svc.SalesReport(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDays, report.Days)
	assert.Len(t, report.Daily.Labels, DefaultDays)
	assert.Empty(t, report.ByMethod.Labels)
	assert.True(t, report.GrandTotal.IsZero())

	_, err = svc.SalesReport(ctx, MaxDays+1)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = svc.SalesReport(ctx, -2)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestExportSalesWritesOneRowPerLine(t *testing.T) {
	svc, conn := newTestService(t, time.Now())
	user := dbtest.MustCreateUser(t, conn, enums.UserRoleCashier)
	coffee := dbtest.MustCreateProduct(t, conn, "Café", "9.99", 10)
	bread := dbtest.MustCreateProduct(t, conn, "Pan", "4.27", 10)

	insertSale(t, conn, user, time.Now().Add(-time.Hour), enums.PaymentMethodCash, "24.25", false,
		models.SaleLine{ProductID: coffee.ID, Quantity: 2, UnitPrice: coffee.Price, Subtotal: decimal.RequireFromString("19.98")},
		models.SaleLine{ProductID: bread.ID, Quantity: 1, UnitPrice: bread.Price, Subtotal: bread.Price},
	)
	insertSale(t, conn, user, time.Now(), enums.PaymentMethodTransfer, "8.54", true,
		models.SaleLine{ProductID: bread.ID, Quantity: 2, UnitPrice: bread.Price, Subtotal: decimal.RequireFromString("8.54")},
	)

	data, err := svc.ExportSales(context.Background(), ExportFilters{})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SalesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	// newest sale first
	assert.Equal(t, "Anulada", rows[1][4])
	assert.Equal(t, "Transferencia", rows[1][3])
	assert.Equal(t, "24.25", rows[2][9])
	assert.Equal(t, "24.25", rows[3][9])

	data, err = svc.ExportSales(context.Background(), ExportFilters{Status: enums.SaleStatusActive})
	require.NoError(t, err)
	f2, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f2.Close()
	rows, err = f2.GetRows(export.SalesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSalePDF(t *testing.T) {
	svc, conn := newTestService(t, time.Now())
	user := dbtest.MustCreateUser(t, conn, enums.UserRoleCashier)
	coffee := dbtest.MustCreateProduct(t, conn, "Café", "9.99", 10)
	sale := insertSale(t, conn, user, time.Now(), enums.PaymentMethodCash, "9.99", false,
		models.SaleLine{ProductID: coffee.ID, Quantity: 1, UnitPrice: coffee.Price, Subtotal: coffee.Price},
	)

	data, err := svc.SalePDF(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, err = svc.SalePDF(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
