package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	UsersSheet = "Usuarios"
	SalesSheet = "Ventas"

	dateLayout = "02/01/2006 15:04"
)

// UserRow is one line of the user roster export.
type UserRow struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      string
	Active    bool
	Staff     bool
	JoinedAt  time.Time
	LastLogin *time.Time
}

// SaleLineRow is one sale line flattened with its sale header.
type SaleLineRow struct {
	SaleID    string
	Date      time.Time
	Seller    string
	Method    string
	Voided    bool
	Product   string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
	SaleTotal decimal.Decimal
}

var (
	usersHeader = []any{"Usuario", "Email", "Nombre", "Apellido", "Rol", "Activo", "Staff", "Alta", "Último acceso"}
	salesHeader = []any{"Venta", "Fecha", "Vendedor", "Método de pago", "Estado", "Producto", "Cantidad", "Precio unitario", "Subtotal", "Total venta"}
)

// UsersWorkbook renders the user roster as an xlsx document.
func UsersWorkbook(rows []UserRow, loc *time.Location) ([]byte, error) {
	body := make([][]any, 0, len(rows))
	for _, r := range rows {
		lastLogin := ""
		if r.LastLogin != nil {
			lastLogin = formatTime(*r.LastLogin, loc)
		}
		body = append(body, []any{
			r.Username,
			r.Email,
			r.FirstName,
			r.LastName,
			r.Role,
			yesNo(r.Active),
			yesNo(r.Staff),
			formatTime(r.JoinedAt, loc),
			lastLogin,
		})
	}
	return writeSheet(UsersSheet, usersHeader, body)
}

// SalesWorkbook renders one row per sale line.
func SalesWorkbook(rows []SaleLineRow, loc *time.Location) ([]byte, error) {
	body := make([][]any, 0, len(rows))
	for _, r := range rows {
		status := "Activa"
		if r.Voided {
			status = "Anulada"
		}
		body = append(body, []any{
			r.SaleID,
			formatTime(r.Date, loc),
			r.Seller,
			r.Method,
			status,
			r.Product,
			r.Quantity,
			r.UnitPrice.InexactFloat64(),
			r.Subtotal.InexactFloat64(),
			r.SaleTotal.InexactFloat64(),
		})
	}
	return writeSheet(SalesSheet, salesHeader, body)
}

func writeSheet(sheet string, header []any, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateLayout)
}

func yesNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}
