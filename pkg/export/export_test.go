package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readRows(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestUsersWorkbook(t *testing.T) {
	joined := time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)
	login := joined.Add(48 * time.Hour)
	data, err := UsersWorkbook([]UserRow{
		{Username: "ana", Email: "ana@example.com", FirstName: "Ana", Role: "cashier", Active: true, JoinedAt: joined, LastLogin: &login},
		{Username: "beto", Email: "beto@example.com", Role: "manager", Staff: true, JoinedAt: joined},
	}, time.UTC)
	require.NoError(t, err)

	rows := readRows(t, data, UsersSheet)
	require.Len(t, rows, 3)
	assert.Equal(t, "Usuario", rows[0][0])
	assert.Equal(t, []string{"ana", "ana@example.com", "Ana", "", "cashier", "Sí", "No", "05/03/2024 15:30", "07/03/2024 15:30"}, rows[1])
	assert.Equal(t, "No", rows[2][5])
	assert.Equal(t, "Sí", rows[2][6])
	assert.Len(t, rows[2], 8)
}

func TestSalesWorkbookOneRowPerLine(t *testing.T) {
	mx, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	at := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

	data, err := SalesWorkbook([]SaleLineRow{
		{SaleID: "s1", Date: at, Seller: "ana", Method: "Efectivo", Product: "Café", Quantity: 2, UnitPrice: decimal.RequireFromString("9.99"), Subtotal: decimal.RequireFromString("19.98"), SaleTotal: decimal.RequireFromString("24.25")},
		{SaleID: "s1", Date: at, Seller: "ana", Method: "Efectivo", Product: "Pan", Quantity: 1, UnitPrice: decimal.RequireFromString("4.27"), Subtotal: decimal.RequireFromString("4.27"), SaleTotal: decimal.RequireFromString("24.25")},
		{SaleID: "s2", Date: at, Seller: "beto", Method: "Transferencia", Voided: true, Product: "Pan", Quantity: 3, UnitPrice: decimal.NewFromInt(4), Subtotal: decimal.NewFromInt(12), SaleTotal: decimal.NewFromInt(12)},
	}, mx)
	require.NoError(t, err)

	rows := readRows(t, data, SalesSheet)
	require.Len(t, rows, 4)
	assert.Equal(t, "Total venta", rows[0][9])
	assert.Equal(t, "01/06/2024 12:00", rows[1][1])
	assert.Equal(t, "Activa", rows[1][4])
	assert.Equal(t, "19.98", rows[1][8])
	assert.Equal(t, "24.25", rows[2][9])
	assert.Equal(t, "Anulada", rows[3][4])
	assert.Equal(t, "3", rows[3][6])
}

func TestSalesWorkbookEmpty(t *testing.T) {
	data, err := SalesWorkbook(nil, nil)
	require.NoError(t, err)
	rows := readRows(t, data, SalesSheet)
	require.Len(t, rows, 1)
}

func TestSalePDF(t *testing.T) {
	data, err := SalePDF(SaleDocument{
		StoreName:     "Abarrotes Doña Lupe",
		SaleID:        "3f1c",
		Date:          time.Now(),
		Seller:        "ana",
		PaymentMethod: "Pago Mixto (Efectivo: $10.00, Otros: $14.25)",
		Voided:        true,
		Lines: []DocumentLine{
			{Product: "Café", Quantity: 2, UnitPrice: decimal.RequireFromString("9.99"), Subtotal: decimal.RequireFromString("19.98")},
		},
		Total: decimal.RequireFromString("19.98"),
	}, time.UTC)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "%%EOF")
}
