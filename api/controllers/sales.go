package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/puntoventa-backend/api/responses"
	"github.com/angelmondragon/puntoventa-backend/api/validators"
	"github.com/angelmondragon/puntoventa-backend/internal/reports"
	"github.com/angelmondragon/puntoventa-backend/internal/sales"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	"github.com/angelmondragon/puntoventa-backend/pkg/pagination"
)

type saleLineRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type recordSaleRequest struct {
	Lines         []saleLineRequest   `json:"lines" validate:"required,min=1,dive"`
	PaymentMethod string              `json:"payment_method" validate:"required"`
	Tendered      decimal.NullDecimal `json:"tendered" validate:"omitempty,gte=0"`
	Reference     string              `json:"reference" validate:"max=100"`
	MixedCash     decimal.NullDecimal `json:"mixed_cash" validate:"omitempty,gte=0"`
	MixedOther    decimal.NullDecimal `json:"mixed_other" validate:"omitempty,gte=0"`
}

type amendLineRequest struct {
	LineID    *string `json:"line_id,omitempty" validate:"omitempty,uuid"`
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
}

type amendSaleRequest struct {
	PaymentMethod *string             `json:"payment_method,omitempty"`
	MixedCash     decimal.NullDecimal `json:"mixed_cash" validate:"omitempty,gte=0"`
	MixedOther    decimal.NullDecimal `json:"mixed_other" validate:"omitempty,gte=0"`
	Lines         []amendLineRequest  `json:"lines" validate:"required,min=1,dive"`
	Reason        *string             `json:"reason,omitempty" validate:"omitempty,max=255"`
}

type voidSaleRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=255"`
}

func parsePaymentMethod(raw string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
			WithDetails(map[string]any{"field": "payment_method"})
	}
	return method, nil
}

func (req recordSaleRequest) toInput() (sales.RecordSaleInput, error) {
	method, err := parsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return sales.RecordSaleInput{}, err
	}
	lines := make([]sales.LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		// validated as uuid already
		lines = append(lines, sales.LineInput{ProductID: uuid.MustParse(line.ProductID), Quantity: line.Quantity})
	}
	return sales.RecordSaleInput{
		Lines: lines,
		Payment: sales.PaymentInput{
			Method:     method,
			Tendered:   req.Tendered,
			Reference:  req.Reference,
			MixedCash:  req.MixedCash,
			MixedOther: req.MixedOther,
		},
	}, nil
}

func (req amendSaleRequest) toInput() (sales.AmendSaleInput, error) {
	input := sales.AmendSaleInput{
		MixedCash:  req.MixedCash,
		MixedOther: req.MixedOther,
		Reason:     req.Reason,
	}
	if req.PaymentMethod != nil {
		method, err := parsePaymentMethod(*req.PaymentMethod)
		if err != nil {
			return input, err
		}
		input.PaymentMethod = &method
	}
	for _, line := range req.Lines {
		lineID, err := parseOptionalUUID(line.LineID, "line_id")
		if err != nil {
			return input, err
		}
		input.Lines = append(input.Lines, sales.AmendLineInput{
			LineID:    lineID,
			ProductID: uuid.MustParse(line.ProductID),
			Quantity:  line.Quantity,
		})
	}
	return input, nil
}

// hasBody reports whether the client sent a payload worth decoding.
func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}

// SalesRecord rings up a sale for the authenticated seller.
func SalesRecord(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body recordSaleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RecordSale(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func SalesList(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseSaleStatusFilter(strings.TrimSpace(r.URL.Query().Get("status")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
			return
		}
		sellerID, err := validators.ParseQueryUUID(r, "user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListSales(r.Context(), actor, sales.ListSalesInput{
			Status: status,
			UserID: sellerID,
			Params: pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func SalesGet(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales"))
			return
		}
		saleID, err := validators.ParseURLParamUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := svc.GetSale(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func SalesTicket(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales"))
			return
		}
		saleID, err := validators.ParseURLParamUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ticket, err := svc.Ticket(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ticket)
	}
}

func SalesAmend(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saleID, err := validators.ParseURLParamUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body amendSaleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.AmendSale(r.Context(), actor, saleID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

// SalesVoid voids a sale. The body with a reason is optional.
func SalesVoid(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales"))
			return
		}
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saleID, err := validators.ParseURLParamUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body voidSaleRequest
		if hasBody(r) {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				if !errors.Is(err, io.EOF) {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}
			}
		}
		if body.Reason != nil {
			reason := validators.SanitizeString(*body.Reason, 255)
			body.Reason = &reason
		}

		sale, err := svc.VoidSale(r.Context(), actor, saleID, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func SalesHistory(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales"))
			return
		}
		saleID, err := validators.ParseURLParamUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		versions, err := svc.History(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, versions)
	}
}

// SalesCompareVersions diffs versions a and b of one sale.
func SalesCompareVersions(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("sales"))
			return
		}
		saleID, err := validators.ParseURLParamUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryInt(r, "a", 0, 1, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryInt(r, "b", 0, 1, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if from == 0 || to == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query parameters a and b are required"))
			return
		}

		comparison, err := svc.CompareVersions(r.Context(), saleID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, comparison)
	}
}

// SalesExport renders the filtered sales as an Excel workbook. Dates are
// local calendar days; to is inclusive.
func SalesExport(svc reports.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reports"))
			return
		}
		status, err := enums.ParseSaleStatusFilter(strings.TrimSpace(r.URL.Query().Get("status")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
			return
		}
		from, err := validators.ParseQueryDate(r, "from", loc, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to", loc, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		data, err := svc.ExportSales(r.Context(), reports.ExportFilters{Status: status, From: from, To: to})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filename := "ventas_" + time.Now().In(loc).Format("20060102") + ".xlsx"
		responses.WriteFile(w, responses.ContentTypeXLSX, filename, data)
	}
}

func SalesPDF(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reports"))
			return
		}
		saleID, err := validators.ParseURLParamUUID(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		data, err := svc.SalePDF(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteFile(w, responses.ContentTypePDF, "venta_"+saleID.String()+".pdf", data)
	}
}
