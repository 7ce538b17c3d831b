package controllers

import (
	"net/http"

	"github.com/angelmondragon/puntoventa-backend/api/responses"
	"github.com/angelmondragon/puntoventa-backend/api/validators"
	"github.com/angelmondragon/puntoventa-backend/internal/reports"
	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
)

// ReportsSales serves the dashboard series. Omitting days uses the configured default.
func ReportsSales(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("reports"))
			return
		}
		days, err := validators.ParseQueryInt(r, "days", 0, 1, reports.MaxDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.SalesReport(r.Context(), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
