package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nannyexpress/booking-service/internal/middleware"
	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/nannyexpress/booking-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPayrollService struct {
	aggregateFn func(ctx context.Context, from, to time.Time, nannyIDs []uint, status *models.BookingStatus) (*service.PayrollReport, error)
}

func (m *mockPayrollService) Aggregate(ctx context.Context, from, to time.Time, nannyIDs []uint, status *models.BookingStatus) (*service.PayrollReport, error) {
	if m.aggregateFn != nil {
		return m.aggregateFn(ctx, from, to, nannyIDs, status)
	}
	return nil, errNotWired
}

func setupPayrollEcho(svc service.PayrollService) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	NewPayrollHandler(svc).RegisterRoutes(e)
	return e
}

func TestGetPayroll_ParsesFilters(t *testing.T) {
	var gotIDs []uint
	var gotStatus *models.BookingStatus
	svc := &mockPayrollService{
		aggregateFn: func(ctx context.Context, from, to time.Time, nannyIDs []uint, status *models.BookingStatus) (*service.PayrollReport, error) {
			gotIDs = nannyIDs
			gotStatus = status
			return &service.PayrollReport{
				From: from,
				To:   to,
				Rows: []service.PayrollRow{{NannyID: 7, NannyName: "Alice", TotalPay: 64}},
				Total: service.PayrollRow{
					NannyName: "TOTAL", Bookings: 1, TotalPay: 64,
				},
			}, nil
		},
	}
	e := setupPayrollEcho(svc)

	rec := doJSON(e, http.MethodGet, "/api/v1/payroll?from=2024-06-01&to=2024-06-30&nanny_id=7,8&status=completed", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uint{7, 8}, gotIDs)
	require.NotNil(t, gotStatus)
	assert.Equal(t, models.StatusCompleted, *gotStatus)

	var report service.PayrollReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "Alice", report.Rows[0].NannyName)
	assert.Equal(t, "TOTAL", report.Total.NannyName)
}

func TestGetPayroll_RequiresRange(t *testing.T) {
	e := setupPayrollEcho(&mockPayrollService{})

	rec := doJSON(e, http.MethodGet, "/api/v1/payroll", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/payroll?from=2024-06-30&to=2024-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/payroll?from=2024-06-01&to=2024-06-30&nanny_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
