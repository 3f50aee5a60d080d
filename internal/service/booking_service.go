package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nannyexpress/booking-service/internal/availability"
	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/nannyexpress/booking-service/internal/pricing"
	"github.com/nannyexpress/booking-service/internal/repository"
	"github.com/nannyexpress/booking-service/internal/schedule"
	"github.com/nannyexpress/booking-service/pkg/rabbitmq"
	"gorm.io/gorm"
)

type CreateBookingInput struct {
	Date          time.Time
	EndDate       *time.Time
	StartTime     string
	EndTime       string
	NannyID       *uint
	ChildrenCount int
	Plan          string
	CreatedBy     models.Actor
}

type ScheduleUpdateInput struct {
	Date      *time.Time
	EndDate   *time.Time
	StartTime *string
	EndTime   *string
	// TotalPrice, when supplied by the caller, must match the engine's own
	// recomputation or the update is rejected.
	TotalPrice *float64
}

type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
)

type BookingService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error)
	Confirm(ctx context.Context, id uint) (*models.Booking, error)
	Cancel(ctx context.Context, id uint, by models.Actor, reason string) (*models.Booking, error)
	Complete(ctx context.Context, id uint) (*models.Booking, error)
	ClockIn(ctx context.Context, id uint) (*models.Booking, error)
	ClockOut(ctx context.Context, id uint) (*models.Booking, error)
	Reassign(ctx context.Context, id, newNannyID uint) (*models.Booking, error)
	Extend(ctx context.Context, id uint, newEndTime string) (*models.Booking, error)
	UpdateSchedule(ctx context.Context, id uint, in ScheduleUpdateInput) (*models.Booking, error)
	Delete(ctx context.Context, id uint, by models.Actor) error
	Restore(ctx context.Context, id uint) (*models.Booking, error)
	AvailableNannies(ctx context.Context, date time.Time, startTime, endTime string) ([]models.Nanny, error)
	Pay(b *models.Booking) pricing.Pay
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	nannyRepo   repository.NannyRepository
	rates       pricing.Rates
	publisher   *rabbitmq.Publisher
	now         func() time.Time
}

func NewBookingService(bookingRepo repository.BookingRepository, nannyRepo repository.NannyRepository, rates pricing.Rates, publisher *rabbitmq.Publisher) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		nannyRepo:   nannyRepo,
		rates:       rates,
		publisher:   publisher,
		now:         time.Now,
	}
}

// UrgencyOf derives the operational priority of a booking: only pending,
// unassigned bookings escalate with age; everything else is normal. It is
// recomputed on every read and never stored.
func UrgencyOf(b *models.Booking, now time.Time) Urgency {
	if b.Status != models.StatusPending || b.Assigned() {
		return UrgencyNormal
	}
	age := now.Sub(b.CreatedAt)
	switch {
	case age < time.Hour:
		return UrgencyNormal
	case age <= 3*time.Hour:
		return UrgencyWarning
	default:
		return UrgencyCritical
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error) {
	if _, ok := schedule.ParseTimeLabel(in.StartTime); !ok {
		return nil, ErrInvalidTimeWindow
	}
	if _, ok := schedule.ParseTimeLabel(in.EndTime); !ok {
		return nil, ErrInvalidTimeWindow
	}
	if in.EndDate != nil && in.EndDate.Before(in.Date) {
		return nil, ErrInvalidDateRange
	}
	if in.ChildrenCount <= 0 {
		in.ChildrenCount = 1
	}

	booking := &models.Booking{
		ReferenceCode: uuid.NewString(),
		Date:          schedule.DateOnly(in.Date),
		EndDate:       dateOnlyPtr(in.EndDate),
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		ChildrenCount: in.ChildrenCount,
		Plan:          in.Plan,
		Status:        models.StatusPending,
		CreatedBy:     in.CreatedBy,
	}

	if in.NannyID != nil && *in.NannyID != 0 {
		nanny, err := s.guardAssignable(ctx, *in.NannyID, booking.Date, booking.EndDate, in.StartTime, in.EndTime, 0)
		if err != nil {
			return nil, err
		}
		booking.NannyID = &nanny.ID
		booking.NannyName = nanny.Name
		booking.TotalPrice = s.rates.PriceBooking(nanny.Rate, in.StartTime, in.EndTime, booking.Date, booking.EndDate)
		// Operator-created bookings with a nanny already picked skip the
		// pending queue.
		if in.CreatedBy == models.ActorAdmin {
			booking.Status = models.StatusConfirmed
		}
	}

	if err := s.bookingRepo.Create(ctx, s.bookingRepo.GetDB(), booking); err != nil {
		return nil, err
	}

	if booking.Status == models.StatusConfirmed {
		s.notify("booking.confirmed", booking, models.ActorParent, models.ActorNanny)
	}
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error) {
	return s.bookingRepo.Find(ctx, filter)
}

func (s *bookingService) Confirm(ctx context.Context, id uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return ErrBookingNotFound
		}
		switch booking.Status {
		case models.StatusConfirmed:
			return ErrAlreadyConfirmed
		case models.StatusCancelled:
			return ErrAlreadyCancelled
		case models.StatusCompleted:
			return ErrAlreadyCompleted
		}
		if err := s.bookingRepo.Updates(ctx, tx, id, map[string]interface{}{
			"status": models.StatusConfirmed,
		}); err != nil {
			return err
		}
		booking.Status = models.StatusConfirmed
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify("booking.confirmed", result, models.ActorParent, models.ActorNanny)
	return result, nil
}

func (s *bookingService) Cancel(ctx context.Context, id uint, by models.Actor, reason string) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return ErrBookingNotFound
		}
		if booking.Status == models.StatusCancelled {
			return ErrAlreadyCancelled
		}
		// A completed booking whose payment was already collected has
		// reached a terminal outcome.
		if booking.Status == models.StatusCompleted && booking.CollectedAt != nil {
			return ErrAlreadyCollected
		}

		now := s.now()
		fields := map[string]interface{}{
			"status":       models.StatusCancelled,
			"cancelled_at": now,
			"cancelled_by": by,
		}
		if reason != "" {
			fields["cancellation_reason"] = reason
		}
		if err := s.bookingRepo.Updates(ctx, tx, id, fields); err != nil {
			return err
		}

		booking.Status = models.StatusCancelled
		booking.CancelledAt = &now
		booking.CancelledBy = &by
		if reason != "" {
			booking.CancellationReason = &reason
		}
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify("booking.cancelled", result, models.ActorParent, models.ActorNanny, models.ActorAdmin)
	return result, nil
}

func (s *bookingService) Complete(ctx context.Context, id uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return ErrBookingNotFound
		}
		switch booking.Status {
		case models.StatusCompleted:
			return ErrAlreadyCompleted
		case models.StatusCancelled:
			return ErrAlreadyCancelled
		case models.StatusPending:
			return ErrNotConfirmed
		}
		if err := s.bookingRepo.Updates(ctx, tx, id, map[string]interface{}{
			"status": models.StatusCompleted,
		}); err != nil {
			return err
		}
		booking.Status = models.StatusCompleted
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *bookingService) ClockIn(ctx context.Context, id uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return ErrBookingNotFound
		}
		if booking.Status != models.StatusConfirmed {
			return ErrNotConfirmed
		}
		if !booking.Assigned() {
			return ErrUnassigned
		}
		now := s.now()
		if !schedule.SameDay(booking.Date, now) {
			return ErrNotToday
		}

		// Conditional write: only succeeds if this booking is unclocked and
		// the nanny has no other active shift.
		rows, err := s.bookingRepo.ClockInIfIdle(ctx, tx, id, *booking.NannyID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			if booking.ClockIn != nil {
				return ErrAlreadyClockedIn
			}
			if blocking, lookupErr := s.bookingRepo.FindActiveShift(ctx, tx, *booking.NannyID); lookupErr == nil {
				return fmt.Errorf("%w (booking %d, clocked in %s)",
					ErrActiveShiftExists, blocking.ID, blocking.ClockIn.Format(time.RFC3339))
			}
			return ErrActiveShiftExists
		}

		booking.ClockIn = &now
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *bookingService) ClockOut(ctx context.Context, id uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return ErrBookingNotFound
		}
		if booking.ClockIn == nil {
			return ErrNotClockedIn
		}
		if booking.ClockOut != nil {
			return ErrAlreadyClockedOut
		}

		now := s.now()
		if err := s.bookingRepo.Updates(ctx, tx, id, map[string]interface{}{
			"clock_out": now,
			"status":    models.StatusCompleted,
		}); err != nil {
			return err
		}

		booking.ClockOut = &now
		booking.Status = models.StatusCompleted
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *bookingService) Reassign(ctx context.Context, id, newNannyID uint) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return ErrBookingNotFound
		}
		if booking.Status != models.StatusPending && booking.Status != models.StatusConfirmed {
			return ErrAlreadyCompleted
		}
		if booking.ClockIn != nil {
			return ErrShiftStarted
		}

		nanny, err := s.guardAssignable(ctx, newNannyID, booking.Date, booking.EndDate, booking.StartTime, booking.EndTime, booking.ID)
		if err != nil {
			return err
		}

		price := s.rates.PriceBooking(nanny.Rate, booking.StartTime, booking.EndTime, booking.Date, booking.EndDate)
		if err := s.bookingRepo.Updates(ctx, tx, id, map[string]interface{}{
			"nanny_id":    nanny.ID,
			"nanny_name":  nanny.Name,
			"total_price": price,
		}); err != nil {
			return err
		}

		booking.NannyID = &nanny.ID
		booking.NannyName = nanny.Name
		booking.TotalPrice = price
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify("booking.reassigned", result, models.ActorParent, models.ActorNanny)
	return result, nil
}

func (s *bookingService) Extend(ctx context.Context, id uint, newEndTime string) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return ErrBookingNotFound
		}
		// Extension is allowed while pending, confirmed, or mid-shift; a
		// clocked-out or cancelled booking is frozen.
		switch booking.Status {
		case models.StatusCancelled:
			return ErrAlreadyCancelled
		case models.StatusCompleted:
			return ErrAlreadyCompleted
		}

		newEnd, ok := schedule.ParseTimeLabel(newEndTime)
		if !ok {
			return ErrInvalidTimeWindow
		}
		curEnd, ok := schedule.ParseTimeLabel(booking.EndTime)
		if !ok {
			return ErrInvalidTimeWindow
		}
		if newEnd <= curEnd {
			return ErrEndNotLater
		}

		price := booking.TotalPrice
		if booking.Assigned() {
			sameDay, err := s.bookingRepo.FindByNannyAndDate(ctx, *booking.NannyID, booking.Date)
			if err != nil {
				return err
			}
			if conflicts := availability.ConflictsWith(sameDay, booking.Date, booking.StartTime, newEndTime, booking.ID); len(conflicts) > 0 {
				return s.conflictError(ctx, *booking.NannyID, conflicts, booking.Date, booking.StartTime, newEndTime)
			}
			nanny, err := s.nannyRepo.FindByID(ctx, *booking.NannyID)
			if err != nil {
				return ErrNannyNotFound
			}
			price = s.rates.PriceBooking(nanny.Rate, booking.StartTime, newEndTime, booking.Date, booking.EndDate)
		}

		if err := s.bookingRepo.Updates(ctx, tx, id, map[string]interface{}{
			"end_time":    newEndTime,
			"total_price": price,
		}); err != nil {
			return err
		}

		booking.EndTime = newEndTime
		booking.TotalPrice = price
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify("booking.extended", result, models.ActorNanny)
	return result, nil
}

func (s *bookingService) UpdateSchedule(ctx context.Context, id uint, in ScheduleUpdateInput) (*models.Booking, error) {
	var result *models.Booking

	err := s.bookingRepo.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return ErrBookingNotFound
		}
		switch booking.Status {
		case models.StatusCancelled:
			return ErrAlreadyCancelled
		case models.StatusCompleted:
			return ErrAlreadyCompleted
		}

		if in.Date != nil {
			booking.Date = schedule.DateOnly(*in.Date)
		}
		if in.EndDate != nil {
			booking.EndDate = dateOnlyPtr(in.EndDate)
		}
		if in.StartTime != nil {
			booking.StartTime = *in.StartTime
		}
		if in.EndTime != nil {
			booking.EndTime = *in.EndTime
		}

		if _, ok := schedule.ParseTimeLabel(booking.StartTime); !ok {
			return ErrInvalidTimeWindow
		}
		if _, ok := schedule.ParseTimeLabel(booking.EndTime); !ok {
			return ErrInvalidTimeWindow
		}
		if booking.EndDate != nil && booking.EndDate.Before(booking.Date) {
			return ErrInvalidDateRange
		}

		price := booking.TotalPrice
		if booking.Assigned() {
			nanny, err := s.guardAssignable(ctx, *booking.NannyID, booking.Date, booking.EndDate, booking.StartTime, booking.EndTime, booking.ID)
			if err != nil {
				return err
			}
			price = s.rates.PriceBooking(nanny.Rate, booking.StartTime, booking.EndTime, booking.Date, booking.EndDate)
		}
		// Schedule edits never accept a hand-edited price.
		if in.TotalPrice != nil && *in.TotalPrice != price {
			return ErrPriceMismatch
		}

		if err := s.bookingRepo.Updates(ctx, tx, id, map[string]interface{}{
			"date":        booking.Date,
			"end_date":    booking.EndDate,
			"start_time":  booking.StartTime,
			"end_time":    booking.EndTime,
			"total_price": price,
		}); err != nil {
			return err
		}

		booking.TotalPrice = price
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *bookingService) Delete(ctx context.Context, id uint, by models.Actor) error {
	if _, err := s.GetBooking(ctx, id); err != nil {
		return err
	}
	return s.bookingRepo.SoftDelete(ctx, id, by)
}

func (s *bookingService) Restore(ctx context.Context, id uint) (*models.Booking, error) {
	if err := s.bookingRepo.Restore(ctx, id); err != nil {
		return nil, err
	}
	return s.GetBooking(ctx, id)
}

func (s *bookingService) AvailableNannies(ctx context.Context, date time.Time, startTime, endTime string) ([]models.Nanny, error) {
	if _, ok := schedule.ParseTimeLabel(startTime); !ok {
		return nil, ErrInvalidTimeWindow
	}
	return s.freeNannies(ctx, schedule.DateOnly(date), startTime, endTime)
}

func (s *bookingService) Pay(b *models.Booking) pricing.Pay {
	return s.rates.ResolvePay(b)
}

// guardAssignable verifies the nanny exists, is active, has no blackout on
// any spanned day, and has no overlapping booking for the candidate window.
func (s *bookingService) guardAssignable(ctx context.Context, nannyID uint, date time.Time, endDate *time.Time, startTime, endTime string, excludeID uint) (*models.Nanny, error) {
	nanny, err := s.nannyRepo.FindByID(ctx, nannyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNannyNotFound
		}
		return nil, err
	}
	if !nanny.Active() {
		return nil, ErrNannyInactive
	}
	if availability.BlackoutBlocked(nanny.Blackouts, date, endDate) {
		return nil, ErrNannyUnavailable
	}

	sameDay, err := s.bookingRepo.FindByNannyAndDate(ctx, nannyID, date)
	if err != nil {
		return nil, err
	}
	if conflicts := availability.ConflictsWith(sameDay, date, startTime, endTime, excludeID); len(conflicts) > 0 {
		return nil, s.conflictError(ctx, nannyID, conflicts, date, startTime, endTime)
	}
	return nanny, nil
}

// conflictError builds the structured error, best-effort attaching the
// nannies still free at that slot.
func (s *bookingService) conflictError(ctx context.Context, nannyID uint, conflicts []models.Booking, date time.Time, startTime, endTime string) error {
	alternatives, err := s.freeNannies(ctx, date, startTime, endTime)
	if err != nil {
		alternatives = nil
	}
	return &ScheduleConflictError{
		NannyID:       nannyID,
		ConflictCount: len(conflicts),
		Conflicts:     conflicts,
		Alternatives:  alternatives,
	}
}

func (s *bookingService) freeNannies(ctx context.Context, date time.Time, startTime, endTime string) ([]models.Nanny, error) {
	active, err := s.nannyRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	byNanny := make(map[uint][]models.Booking, len(active))
	for _, n := range active {
		bookings, err := s.bookingRepo.FindByNannyAndDate(ctx, n.ID, date)
		if err != nil {
			return nil, err
		}
		byNanny[n.ID] = bookings
	}
	return availability.AvailableNannies(active, byNanny, date, startTime, endTime), nil
}

// notify publishes the decision that a notification is warranted and to
// whom; delivery belongs to the downstream notification service. A nil
// publisher skips messaging entirely.
func (s *bookingService) notify(routingKey string, b *models.Booking, recipients ...models.Actor) {
	if s.publisher == nil || b == nil {
		return
	}
	_ = s.publisher.Publish(routingKey, rabbitmq.BookingEvent{
		Booking:    b,
		Recipients: recipients,
	})
}

func dateOnlyPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := schedule.DateOnly(*t)
	return &d
}
