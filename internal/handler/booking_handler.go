package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nannyexpress/booking-service/internal/dto"
	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/nannyexpress/booking-service/internal/repository"
	"github.com/nannyexpress/booking-service/internal/service"
)

type BookingHandler struct {
	svc      service.BookingService
	batchSvc service.BatchService
}

func NewBookingHandler(svc service.BookingService, batchSvc service.BatchService) *BookingHandler {
	return &BookingHandler{svc: svc, batchSvc: batchSvc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	bookings := e.Group("/api/v1/bookings")
	bookings.POST("", h.CreateBooking)
	bookings.GET("", h.ListBookings)
	bookings.GET("/:id", h.GetBooking)
	bookings.DELETE("/:id", h.DeleteBooking)
	bookings.POST("/:id/restore", h.RestoreBooking)
	bookings.POST("/:id/confirm", h.ConfirmBooking)
	bookings.POST("/:id/cancel", h.CancelBooking)
	bookings.POST("/:id/complete", h.CompleteBooking)
	bookings.POST("/:id/clock-in", h.ClockIn)
	bookings.POST("/:id/clock-out", h.ClockOut)
	bookings.PUT("/:id/reassign", h.Reassign)
	bookings.PUT("/:id/extend", h.Extend)
	bookings.PUT("/:id/schedule", h.UpdateSchedule)
	bookings.POST("/batch/multi-date", h.BatchMultiDate)
	bookings.POST("/batch/recurring", h.BatchRecurring)

	e.GET("/api/v1/nannies/available", h.AvailableNannies)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	endDate, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
	}
	actor, err := parseActor(req.CreatedBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	booking, err := h.svc.CreateBooking(c.Request().Context(), service.CreateBookingInput{
		Date:          date,
		EndDate:       endDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		NannyID:       req.NannyID,
		ChildrenCount: req.ChildrenCount,
		Plan:          req.Plan,
		CreatedBy:     actor,
	})
	if err != nil {
		return mapServiceError(err)
	}

	resp := dto.ToBookingResponse(booking, time.Now())
	pay := h.svc.Pay(booking)
	resp.Pay = &pay
	return c.JSON(http.StatusCreated, resp)
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	resp := dto.ToBookingResponse(booking, time.Now())
	pay := h.svc.Pay(booking)
	resp.Pay = &pay
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) ListBookings(c echo.Context) error {
	var filter repository.BookingFilter

	if d := c.QueryParam("date"); d != "" {
		date, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		filter.Date = &date
	}
	if n := c.QueryParam("nanny_id"); n != "" {
		id, err := strconv.ParseUint(n, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid nanny_id")
		}
		nid := uint(id)
		filter.NannyID = &nid
	}
	if s := c.QueryParam("status"); s != "" {
		status := models.BookingStatus(s)
		filter.Status = &status
	}

	bookings, err := h.svc.ListBookings(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	now := time.Now()
	resp := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = dto.ToBookingResponse(&bookings[i], now)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.Confirm(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking, time.Now()))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	var req dto.CancelBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor, err := parseActor(req.CancelledBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	booking, err := h.svc.Cancel(c.Request().Context(), id, actor, req.Reason)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking, time.Now()))
}

func (h *BookingHandler) CompleteBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.Complete(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking, time.Now()))
}

func (h *BookingHandler) ClockIn(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.ClockIn(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking, time.Now()))
}

func (h *BookingHandler) ClockOut(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.ClockOut(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}

	resp := dto.ToBookingResponse(booking, time.Now())
	pay := h.svc.Pay(booking)
	resp.Pay = &pay
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) Reassign(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	var req dto.ReassignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.NannyID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "nanny_id is required")
	}

	booking, err := h.svc.Reassign(c.Request().Context(), id, req.NannyID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking, time.Now()))
}

func (h *BookingHandler) Extend(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	var req dto.ExtendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.EndTime == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "end_time is required")
	}

	booking, err := h.svc.Extend(c.Request().Context(), id, req.EndTime)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking, time.Now()))
}

func (h *BookingHandler) UpdateSchedule(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	in := service.ScheduleUpdateInput{
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		TotalPrice: req.TotalPrice,
	}
	if req.Date != nil {
		date, err := time.Parse(time.DateOnly, *req.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		in.Date = &date
	}
	if req.EndDate != nil {
		endDate, err := parseOptionalDate(*req.EndDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
		}
		in.EndDate = endDate
	}

	booking, err := h.svc.UpdateSchedule(c.Request().Context(), id, in)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking, time.Now()))
}

func (h *BookingHandler) DeleteBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	var req dto.DeleteBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor, err := parseActor(req.DeletedBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.Delete(c.Request().Context(), id, actor); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BookingHandler) RestoreBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	booking, err := h.svc.Restore(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking, time.Now()))
}

func (h *BookingHandler) BatchMultiDate(c echo.Context) error {
	var req dto.MultiDateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Dates) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "dates are required")
	}
	actor, err := parseActor(req.CreatedBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	dates := make([]time.Time, 0, len(req.Dates))
	for _, d := range req.Dates {
		date, err := time.Parse(time.DateOnly, d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		dates = append(dates, date)
	}

	result, err := h.batchSvc.ExpandMultiDate(c.Request().Context(), service.MultiDateInput{
		Dates:         dates,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		NannyID:       req.NannyID,
		ChildrenCount: req.ChildrenCount,
		Plan:          req.Plan,
		CreatedBy:     actor,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(batchStatus(result), dto.ToBatchResponse(result, time.Now()))
}

func (h *BookingHandler) BatchRecurring(c echo.Context) error {
	var req dto.RecurringRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	startDate, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
	}
	actor, err := parseActor(req.CreatedBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cadence := service.Cadence(req.Cadence)
	switch cadence {
	case service.CadenceWeekly, service.CadenceBiweekly, service.CadenceMonthly:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "cadence must be weekly, biweekly or monthly")
	}

	result, err := h.batchSvc.ExpandRecurring(c.Request().Context(), service.RecurringInput{
		StartDate:     startDate,
		Cadence:       cadence,
		Repeat:        req.Repeat,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		NannyID:       req.NannyID,
		ChildrenCount: req.ChildrenCount,
		Plan:          req.Plan,
		CreatedBy:     actor,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(batchStatus(result), dto.ToBatchResponse(result, time.Now()))
}

func (h *BookingHandler) AvailableNannies(c echo.Context) error {
	date, err := time.Parse(time.DateOnly, c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	start := c.QueryParam("start")
	end := c.QueryParam("end")
	if start == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "start is required")
	}

	nannies, err := h.svc.AvailableNannies(c.Request().Context(), date, start, end)
	if err != nil {
		return mapServiceError(err)
	}

	resp := make([]dto.NannyResponse, len(nannies))
	for i := range nannies {
		resp[i] = dto.ToNannyResponse(&nannies[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func bookingID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	return uint(id), nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseActor(s string) (models.Actor, error) {
	switch actor := models.Actor(s); actor {
	case models.ActorParent, models.ActorAdmin, models.ActorNanny:
		return actor, nil
	default:
		return "", errors.New("actor must be parent, admin or nanny")
	}
}

// batchStatus: a fully created batch is 201, a partially created one is
// still 201 with the failure in the body so the caller can see how far it
// got; a batch where nothing was created is a 502 from the store.
func batchStatus(r *service.BatchResult) int {
	if r.Created == 0 && r.Err != nil {
		return http.StatusBadGateway
	}
	return http.StatusCreated
}

// mapServiceError translates engine errors into HTTP codes: conflicts 409
// with resolution detail, guard failures 422, bad input 400.
func mapServiceError(err error) error {
	var conflict *service.ScheduleConflictError
	if errors.As(err, &conflict) {
		alternatives := make([]dto.NannyResponse, len(conflict.Alternatives))
		for i := range conflict.Alternatives {
			alternatives[i] = dto.ToNannyResponse(&conflict.Alternatives[i])
		}
		return echo.NewHTTPError(http.StatusConflict, dto.ConflictResponse{
			Message:          conflict.Error(),
			ConflictCount:    conflict.ConflictCount,
			AvailableNannies: alternatives,
		})
	}

	switch {
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrNannyNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTimeWindow),
		errors.Is(err, service.ErrInvalidDateRange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNannyInactive),
		errors.Is(err, service.ErrNannyUnavailable),
		errors.Is(err, service.ErrAlreadyConfirmed),
		errors.Is(err, service.ErrAlreadyCancelled),
		errors.Is(err, service.ErrAlreadyCompleted),
		errors.Is(err, service.ErrAlreadyCollected),
		errors.Is(err, service.ErrNotConfirmed),
		errors.Is(err, service.ErrNotToday),
		errors.Is(err, service.ErrUnassigned),
		errors.Is(err, service.ErrShiftStarted),
		errors.Is(err, service.ErrActiveShiftExists),
		errors.Is(err, service.ErrAlreadyClockedIn),
		errors.Is(err, service.ErrNotClockedIn),
		errors.Is(err, service.ErrAlreadyClockedOut),
		errors.Is(err, service.ErrEndNotLater),
		errors.Is(err, service.ErrPriceMismatch):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
