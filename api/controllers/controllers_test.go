package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/puntoventa-backend/api/middleware"
	"github.com/angelmondragon/puntoventa-backend/api/responses"
	"github.com/angelmondragon/puntoventa-backend/internal/cashregister"
	"github.com/angelmondragon/puntoventa-backend/internal/reports"
	"github.com/angelmondragon/puntoventa-backend/internal/sales"
	"github.com/angelmondragon/puntoventa-backend/internal/users"
	"github.com/angelmondragon/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

// newRequest builds a request carrying an authenticated actor and chi URL params.
func newRequest(method, target, body string, actorID uuid.UUID, role enums.UserRole, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := req.Context()
	if actorID != uuid.Nil {
		ctx = middleware.WithActor(ctx, actorID, role)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) responses.APIError {
	t.Helper()
	var env responses.ErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env.Error
}

type stubSales struct {
	sales.Service
	recorded   *sales.RecordSaleInput
	voidReason *string
	voidActor  sales.Actor
	recordErr  error
}

func (s *stubSales) RecordSale(_ context.Context, actor sales.Actor, input sales.RecordSaleInput) (*sales.RecordResult, error) {
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	s.recorded = &input
	return &sales.RecordResult{
		Sale:           sales.SaleDTO{ID: uuid.New(), UserID: actor.UserID, PaymentMethod: input.Payment.Method, Total: decimal.RequireFromString("20")},
		Change:         decimal.RequireFromString("30"),
		CashRegistered: true,
	}, nil
}

func (s *stubSales) VoidSale(_ context.Context, actor sales.Actor, saleID uuid.UUID, reason *string) (*sales.SaleDTO, error) {
	s.voidActor = actor
	s.voidReason = reason
	return &sales.SaleDTO{ID: saleID, Voided: true, VoidReason: reason}, nil
}

func TestSalesRecord(t *testing.T) {
	svc := &stubSales{}
	actor := uuid.New()
	product := uuid.New()
	body := `{"lines":[{"product_id":"` + product.String() + `","quantity":2}],"payment_method":"ef","tendered":"50"}`

	resp := httptest.NewRecorder()
	SalesRecord(svc, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/sales", body, actor, enums.UserRoleCashier, nil))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.NotNil(t, svc.recorded)
	assert.Equal(t, enums.PaymentMethodCash, svc.recorded.Payment.Method)
	require.Len(t, svc.recorded.Lines, 1)
	assert.Equal(t, product, svc.recorded.Lines[0].ProductID)
	assert.Equal(t, 2, svc.recorded.Lines[0].Quantity)
	assert.True(t, svc.recorded.Payment.Tendered.Valid)
	assert.True(t, decimal.RequireFromString("50").Equal(svc.recorded.Payment.Tendered.Decimal))
	assert.Contains(t, resp.Body.String(), `"cash_registered":true`)
}

func TestSalesRecordRejectsBadInput(t *testing.T) {
	actor := uuid.New()
	product := uuid.New().String()

	cases := map[string]string{
		"unknown method": `{"lines":[{"product_id":"` + product + `","quantity":1}],"payment_method":"XX"}`,
		"empty lines":    `{"lines":[],"payment_method":"EF"}`,
		"zero quantity":  `{"lines":[{"product_id":"` + product + `","quantity":0}],"payment_method":"EF"}`,
		"bad product id": `{"lines":[{"product_id":"nope","quantity":1}],"payment_method":"EF"}`,
		"bad tendered":   `{"lines":[{"product_id":"` + product + `","quantity":1}],"payment_method":"EF","tendered":"abc"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubSales{}
			resp := httptest.NewRecorder()
			SalesRecord(svc, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/sales", body, actor, enums.UserRoleCashier, nil))
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Nil(t, svc.recorded)
		})
	}
}

func TestSalesRecordSurfacesStockShortage(t *testing.T) {
	product := uuid.New()
	svc := &stubSales{recordErr: pkgerrors.InsufficientStock(product, "Café", 5, 2)}
	body := `{"lines":[{"product_id":"` + product.String() + `","quantity":5}],"payment_method":"TC","reference":"1234"}`

	resp := httptest.NewRecorder()
	SalesRecord(svc, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/sales", body, uuid.New(), enums.UserRoleCashier, nil))

	assert.Equal(t, http.StatusConflict, resp.Code)
	apiErr := decodeError(t, resp)
	assert.Equal(t, string(pkgerrors.CodeInsufficientStock), apiErr.Code)
	details, ok := apiErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, product.String(), details["product_id"])
	assert.EqualValues(t, 2, details["available"])
}

func TestSalesRecordRequiresActor(t *testing.T) {
	resp := httptest.NewRecorder()
	SalesRecord(&stubSales{}, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/sales", `{}`, uuid.Nil, "", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSalesVoid(t *testing.T) {
	actor := uuid.New()
	saleID := uuid.New()

	t.Run("without body", func(t *testing.T) {
		svc := &stubSales{}
		resp := httptest.NewRecorder()
		req := newRequest(http.MethodPost, "/", "", actor, enums.UserRoleSupervisor, map[string]string{"saleId": saleID.String()})
		SalesVoid(svc, testLogger())(resp, req)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Nil(t, svc.voidReason)
		assert.Equal(t, actor, svc.voidActor.UserID)
		assert.Equal(t, enums.UserRoleSupervisor, svc.voidActor.Role)
	})

	t.Run("with reason", func(t *testing.T) {
		svc := &stubSales{}
		resp := httptest.NewRecorder()
		req := newRequest(http.MethodPost, "/", `{"reason":"  cliente se arrepintió "}`, actor, enums.UserRoleSupervisor, map[string]string{"saleId": saleID.String()})
		SalesVoid(svc, testLogger())(resp, req)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		require.NotNil(t, svc.voidReason)
		assert.Equal(t, "cliente se arrepintió", *svc.voidReason)
	})

	t.Run("bad id", func(t *testing.T) {
		resp := httptest.NewRecorder()
		req := newRequest(http.MethodPost, "/", "", actor, enums.UserRoleSupervisor, map[string]string{"saleId": "42"})
		SalesVoid(&stubSales{}, testLogger())(resp, req)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

type stubCash struct {
	cashregister.Service
	openedBy uuid.UUID
	balance  decimal.Decimal
	openErr  error
}

func (s *stubCash) Open(_ context.Context, userID uuid.UUID, opening decimal.Decimal) (*cashregister.SessionDTO, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.openedBy = userID
	s.balance = opening
	return &cashregister.SessionDTO{ID: uuid.New(), UserID: userID, IsOpen: true, OpeningBalance: opening, CurrentBalance: opening}, nil
}

func TestCashOpen(t *testing.T) {
	actor := uuid.New()
	svc := &stubCash{}
	resp := httptest.NewRecorder()
	CashOpen(svc, testLogger())(resp, newRequest(http.MethodPost, "/", `{"opening_balance":"500.00"}`, actor, enums.UserRoleCashier, nil))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, actor, svc.openedBy)
	assert.True(t, decimal.RequireFromString("500").Equal(svc.balance))
}

func TestCashOpenSurfacesDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
		code pkgerrors.Code
	}{
		{pkgerrors.SessionAlreadyOpen(uuid.New()), http.StatusConflict, pkgerrors.CodeSessionAlreadyOpen},
		{pkgerrors.InvalidAmount("opening_balance", decimal.RequireFromString("-1"), "must not be negative"), http.StatusBadRequest, pkgerrors.CodeInvalidAmount},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		CashOpen(&stubCash{openErr: tc.err}, testLogger())(resp, newRequest(http.MethodPost, "/", `{"opening_balance":"1"}`, uuid.New(), enums.UserRoleCashier, nil))
		assert.Equal(t, tc.want, resp.Code)
		assert.Equal(t, string(tc.code), decodeError(t, resp).Code)
	}
}

func TestCashOpenUnparsableAmount(t *testing.T) {
	svc := &stubCash{}
	resp := httptest.NewRecorder()
	CashOpen(svc, testLogger())(resp, newRequest(http.MethodPost, "/", `{"opening_balance":"abc"}`, uuid.New(), enums.UserRoleCashier, nil))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	apiErr := decodeError(t, resp)
	assert.Equal(t, string(pkgerrors.CodeInvalidAmount), apiErr.Code)
	details, ok := apiErr.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "opening_balance", details["field"])
}

type stubUsers struct {
	users.Service
	actor  uuid.UUID
	target uuid.UUID
}

func (s *stubUsers) Deactivate(_ context.Context, actorID, id uuid.UUID) (*users.UserDTO, error) {
	s.actor = actorID
	s.target = id
	if actorID == id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot deactivate your own account")
	}
	return &users.UserDTO{ID: id, IsActive: false}, nil
}

func TestUsersDeactivate(t *testing.T) {
	manager := uuid.New()
	target := uuid.New()

	svc := &stubUsers{}
	resp := httptest.NewRecorder()
	UsersDeactivate(svc, testLogger())(resp, newRequest(http.MethodPost, "/", "", manager, enums.UserRoleManager, map[string]string{"userId": target.String()}))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, manager, svc.actor)
	assert.Equal(t, target, svc.target)

	resp = httptest.NewRecorder()
	UsersDeactivate(svc, testLogger())(resp, newRequest(http.MethodPost, "/", "", manager, enums.UserRoleManager, map[string]string{"userId": manager.String()}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubReports struct {
	reports.Service
	days    int
	filters reports.ExportFilters
}

func (s *stubReports) SalesReport(_ context.Context, days int) (*reports.SalesReport, error) {
	s.days = days
	return &reports.SalesReport{Days: days}, nil
}

func (s *stubReports) ExportSales(_ context.Context, filters reports.ExportFilters) ([]byte, error) {
	s.filters = filters
	return []byte("PK"), nil
}

func TestReportsSalesDays(t *testing.T) {
	cases := []struct {
		query    string
		want     int
		wantDays int
	}{
		{"", http.StatusOK, 0},
		{"?days=30", http.StatusOK, 30},
		{"?days=0", http.StatusBadRequest, -1},
		{"?days=400", http.StatusBadRequest, -1},
		{"?days=abc", http.StatusBadRequest, -1},
	}
	for _, tc := range cases {
		svc := &stubReports{days: -1}
		resp := httptest.NewRecorder()
		ReportsSales(svc, testLogger())(resp, newRequest(http.MethodGet, "/api/v1/reports/sales"+tc.query, "", uuid.New(), enums.UserRoleSupervisor, nil))
		assert.Equal(t, tc.want, resp.Code, tc.query)
		assert.Equal(t, tc.wantDays, svc.days, tc.query)
	}
}

func TestSalesExportDateRange(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	svc := &stubReports{}

	resp := httptest.NewRecorder()
	SalesExport(svc, loc, testLogger())(resp, newRequest(http.MethodGet, "/api/v1/sales/export?status=active&from=2024-06-01&to=2024-06-30", "", uuid.New(), enums.UserRoleSupervisor, nil))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, responses.ContentTypeXLSX, resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "ventas_")
	assert.Equal(t, enums.SaleStatusActive, svc.filters.Status)
	require.NotNil(t, svc.filters.From)
	require.NotNil(t, svc.filters.To)
	assert.True(t, svc.filters.From.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, loc)))
	// to covers the whole last day
	assert.True(t, svc.filters.To.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, loc)))

	resp = httptest.NewRecorder()
	SalesExport(svc, loc, testLogger())(resp, newRequest(http.MethodGet, "/api/v1/sales/export?from=06/01/2024", "", uuid.New(), enums.UserRoleSupervisor, nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHandlersRejectMissingService(t *testing.T) {
	resp := httptest.NewRecorder()
	CashOpen(nil, testLogger())(resp, newRequest(http.MethodPost, "/", `{}`, uuid.New(), enums.UserRoleCashier, nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
