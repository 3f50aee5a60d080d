package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/nannyexpress/booking-service/internal/service"
)

type PayrollHandler struct {
	svc service.PayrollService
}

func NewPayrollHandler(svc service.PayrollService) *PayrollHandler {
	return &PayrollHandler{svc: svc}
}

func (h *PayrollHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/payroll", h.GetPayroll)
}

// GetPayroll returns the per-nanny payroll rows, grand total and per-booking
// detail for a date range; the spreadsheet export downstream depends on the
// field order staying put.
func (h *PayrollHandler) GetPayroll(c echo.Context) error {
	from, err := time.Parse(time.DateOnly, c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
	}
	to, err := time.Parse(time.DateOnly, c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
	}
	if to.Before(from) {
		return echo.NewHTTPError(http.StatusBadRequest, "to must not be before from")
	}

	var nannyIDs []uint
	if raw := c.QueryParam("nanny_id"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid nanny_id")
			}
			nannyIDs = append(nannyIDs, uint(id))
		}
	}

	var status *models.BookingStatus
	if s := c.QueryParam("status"); s != "" {
		bs := models.BookingStatus(s)
		status = &bs
	}

	report, err := h.svc.Aggregate(c.Request().Context(), from, to, nannyIDs, status)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}
