package dto

import (
	"time"

	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/nannyexpress/booking-service/internal/pricing"
	"github.com/nannyexpress/booking-service/internal/service"
)

type BookingResponse struct {
	ID                 uint                 `json:"id"`
	ReferenceCode      string               `json:"reference_code"`
	Date               string               `json:"date"`
	EndDate            *string              `json:"end_date,omitempty"`
	StartTime          string               `json:"start_time"`
	EndTime            string               `json:"end_time"`
	NannyID            *uint                `json:"nanny_id,omitempty"`
	NannyName          string               `json:"nanny_name,omitempty"`
	ChildrenCount      int                  `json:"children_count"`
	TotalPrice         float64              `json:"total_price"`
	Plan               string               `json:"plan,omitempty"`
	ClockIn            *time.Time           `json:"clock_in,omitempty"`
	ClockOut           *time.Time           `json:"clock_out,omitempty"`
	Status             models.BookingStatus `json:"status"`
	Urgency            service.Urgency      `json:"urgency"`
	CreatedBy          models.Actor         `json:"created_by"`
	CreatedAt          time.Time            `json:"created_at"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
	CancelledBy        *models.Actor        `json:"cancelled_by,omitempty"`
	CancellationReason *string              `json:"cancellation_reason,omitempty"`
	Pay                *pricing.Pay         `json:"pay,omitempty"`
}

type NannyResponse struct {
	ID     uint               `json:"id"`
	Name   string             `json:"name"`
	Rate   float64            `json:"rate"`
	Status models.NannyStatus `json:"status"`
}

type ConflictResponse struct {
	Message          string          `json:"message"`
	ConflictCount    int             `json:"conflict_count"`
	AvailableNannies []NannyResponse `json:"available_nannies"`
}

type BatchResponse struct {
	Requested int               `json:"requested"`
	Created   int               `json:"created"`
	Error     string            `json:"error,omitempty"`
	Bookings  []BookingResponse `json:"bookings"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToBookingResponse(b *models.Booking, now time.Time) BookingResponse {
	resp := BookingResponse{
		ID:                 b.ID,
		ReferenceCode:      b.ReferenceCode,
		Date:               b.Date.Format(time.DateOnly),
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		NannyID:            b.NannyID,
		NannyName:          b.NannyName,
		ChildrenCount:      b.ChildrenCount,
		TotalPrice:         b.TotalPrice,
		Plan:               b.Plan,
		ClockIn:            b.ClockIn,
		ClockOut:           b.ClockOut,
		Status:             b.Status,
		Urgency:            service.UrgencyOf(b, now),
		CreatedBy:          b.CreatedBy,
		CreatedAt:          b.CreatedAt,
		CancelledAt:        b.CancelledAt,
		CancelledBy:        b.CancelledBy,
		CancellationReason: b.CancellationReason,
	}
	if b.EndDate != nil {
		end := b.EndDate.Format(time.DateOnly)
		resp.EndDate = &end
	}
	return resp
}

func ToNannyResponse(n *models.Nanny) NannyResponse {
	return NannyResponse{ID: n.ID, Name: n.Name, Rate: n.Rate, Status: n.Status}
}

func ToBatchResponse(r *service.BatchResult, now time.Time) BatchResponse {
	resp := BatchResponse{Requested: r.Requested, Created: r.Created}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	resp.Bookings = make([]BookingResponse, len(r.Bookings))
	for i := range r.Bookings {
		resp.Bookings[i] = ToBookingResponse(&r.Bookings[i], now)
	}
	return resp
}
