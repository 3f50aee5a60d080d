package service

import (
	"errors"
	"fmt"

	"github.com/nannyexpress/booking-service/internal/models"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrNannyNotFound     = errors.New("nanny not found")
	ErrNannyInactive     = errors.New("nanny is not active")
	ErrNannyUnavailable  = errors.New("nanny is unavailable on a booked day")
	ErrInvalidTimeWindow = errors.New("start/end time labels could not be parsed")
	ErrInvalidDateRange  = errors.New("end date must not be before start date")

	ErrAlreadyConfirmed  = errors.New("booking is already confirmed")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
	ErrAlreadyCompleted  = errors.New("booking is already completed")
	ErrAlreadyCollected  = errors.New("booking is completed and already paid out")
	ErrNotConfirmed      = errors.New("booking must be confirmed first")
	ErrNotToday          = errors.New("clock-in is only allowed on the booking day")
	ErrUnassigned        = errors.New("booking has no nanny assigned")
	ErrShiftStarted      = errors.New("shift already started")
	ErrActiveShiftExists = errors.New("nanny already has an active shift")
	ErrAlreadyClockedIn  = errors.New("booking is already clocked in")
	ErrNotClockedIn      = errors.New("booking has not been clocked in")
	ErrAlreadyClockedOut = errors.New("booking is already clocked out")
	ErrEndNotLater       = errors.New("new end time must be later than the current end time")
	ErrPriceMismatch     = errors.New("total price does not match the recomputed price")
)

// ScheduleConflictError reports a double-booking with enough detail for the
// caller to suggest alternatives.
type ScheduleConflictError struct {
	NannyID       uint
	ConflictCount int
	Conflicts     []models.Booking
	Alternatives  []models.Nanny
}

func (e *ScheduleConflictError) Error() string {
	if len(e.Conflicts) > 0 {
		c := e.Conflicts[0]
		return fmt.Sprintf("nanny already booked %s-%s on %s",
			c.StartTime, c.EndTime, c.Date.Format("2006-01-02"))
	}
	return fmt.Sprintf("nanny has %d conflicting bookings", e.ConflictCount)
}
