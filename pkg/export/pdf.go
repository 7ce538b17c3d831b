package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// SaleDocument is the printable form of a single sale.
type SaleDocument struct {
	StoreName     string
	SaleID        string
	Date          time.Time
	Seller        string
	PaymentMethod string
	Voided        bool
	VoidReason    string
	Lines         []DocumentLine
	Total         decimal.Decimal
}

type DocumentLine struct {
	Product   string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// SalePDF lays out the sale header, its line table and the total on one A4 page.
func SalePDF(doc SaleDocument, loc *time.Location) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Venta "+doc.SaleID), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(doc.StoreName), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, tr("Venta: "+doc.SaleID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Fecha: "+formatTime(doc.Date, loc), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr("Vendedor: "+doc.Seller), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr("Método de pago: "+doc.PaymentMethod), "", 1, "L", false, 0, "")
	if doc.Voided {
		reason := doc.VoidReason
		if reason == "" {
			reason = "sin motivo"
		}
		pdf.SetTextColor(180, 0, 0)
		pdf.CellFormat(0, 7, tr("ANULADA: "+reason), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(80, 8, "Producto", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 8, "Cantidad", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, "Precio", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 8, "Subtotal", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, line := range doc.Lines {
		pdf.CellFormat(80, 8, tr(line.Product), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d", line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 8, money(line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, money(line.Subtotal), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(145, 9, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 9, money(doc.Total), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render sale pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
