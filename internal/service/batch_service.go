package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/nannyexpress/booking-service/internal/availability"
	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/nannyexpress/booking-service/internal/pricing"
	"github.com/nannyexpress/booking-service/internal/repository"
	"github.com/nannyexpress/booking-service/internal/schedule"
)

type Cadence string

const (
	CadenceWeekly   Cadence = "weekly"
	CadenceBiweekly Cadence = "biweekly"
	CadenceMonthly  Cadence = "monthly"

	minRepeat = 1
	maxRepeat = 12
)

// offsetDays per occurrence; monthly is a fixed 30-day step, not calendar
// month arithmetic.
func (c Cadence) offsetDays() int {
	switch c {
	case CadenceBiweekly:
		return 14
	case CadenceMonthly:
		return 30
	default:
		return 7
	}
}

type MultiDateInput struct {
	Dates         []time.Time
	StartTime     string
	EndTime       string
	NannyID       *uint
	ChildrenCount int
	Plan          string
	CreatedBy     models.Actor
}

type RecurringInput struct {
	StartDate     time.Time
	Cadence       Cadence
	Repeat        int
	StartTime     string
	EndTime       string
	NannyID       *uint
	ChildrenCount int
	Plan          string
	CreatedBy     models.Actor
}

// BatchResult reports how far a sequential expansion got. On partial
// failure the already-created bookings remain and Err carries the first
// failure.
type BatchResult struct {
	Requested int
	Created   int
	Bookings  []models.Booking
	Err       error
}

type BatchService interface {
	ExpandMultiDate(ctx context.Context, in MultiDateInput) (*BatchResult, error)
	ExpandRecurring(ctx context.Context, in RecurringInput) (*BatchResult, error)
}

type batchService struct {
	bookingRepo repository.BookingRepository
	nannyRepo   repository.NannyRepository
	rates       pricing.Rates
}

func NewBatchService(bookingRepo repository.BookingRepository, nannyRepo repository.NannyRepository, rates pricing.Rates) BatchService {
	return &batchService{bookingRepo: bookingRepo, nannyRepo: nannyRepo, rates: rates}
}

// ExpandMultiDate turns a set of non-contiguous dates sharing one window
// and one nanny into single-date bookings. The aggregate price is computed
// once for the whole set and divided evenly across the instances.
func (s *batchService) ExpandMultiDate(ctx context.Context, in MultiDateInput) (*BatchResult, error) {
	if len(in.Dates) == 0 {
		return nil, ErrInvalidDateRange
	}
	if _, ok := schedule.ParseTimeLabel(in.StartTime); !ok {
		return nil, ErrInvalidTimeWindow
	}
	if _, ok := schedule.ParseTimeLabel(in.EndTime); !ok {
		return nil, ErrInvalidTimeWindow
	}

	nanny, err := s.lookupNanny(ctx, in.NannyID)
	if err != nil {
		return nil, err
	}

	count := len(in.Dates)
	perInstance := 0.0
	if nanny != nil {
		// One aggregate price over all days of the set, then an even split.
		start, _ := schedule.ParseTimeLabel(in.StartTime)
		end, _ := schedule.ParseTimeLabel(in.EndTime)
		hoursPerDay := schedule.Duration(in.StartTime, in.EndTime)
		night := pricing.NightWindowForCustomer(start, end, end <= start)
		total := s.rates.CustomerPrice(nanny.Rate, hoursPerDay, count, night)
		perInstance = math.Round(total / float64(count))
	}

	drafts := make([]models.Booking, 0, count)
	for _, date := range in.Dates {
		drafts = append(drafts, s.draft(in.StartTime, in.EndTime, date, nanny, in.ChildrenCount, in.Plan, in.CreatedBy, perInstance))
	}
	return s.createAll(ctx, drafts, nanny), nil
}

// ExpandRecurring generates bookings by repeated date offset from the start
// date. The repeat count is clamped to [1,12] and each instance carries the
// full single-occurrence price.
func (s *batchService) ExpandRecurring(ctx context.Context, in RecurringInput) (*BatchResult, error) {
	if _, ok := schedule.ParseTimeLabel(in.StartTime); !ok {
		return nil, ErrInvalidTimeWindow
	}
	if _, ok := schedule.ParseTimeLabel(in.EndTime); !ok {
		return nil, ErrInvalidTimeWindow
	}

	repeat := in.Repeat
	if repeat < minRepeat {
		repeat = minRepeat
	}
	if repeat > maxRepeat {
		repeat = maxRepeat
	}

	nanny, err := s.lookupNanny(ctx, in.NannyID)
	if err != nil {
		return nil, err
	}

	price := 0.0
	if nanny != nil {
		price = s.rates.PriceBooking(nanny.Rate, in.StartTime, in.EndTime, in.StartDate, nil)
	}

	step := in.Cadence.offsetDays()
	drafts := make([]models.Booking, 0, repeat)
	for i := 0; i < repeat; i++ {
		date := schedule.DateOnly(in.StartDate).AddDate(0, 0, i*step)
		drafts = append(drafts, s.draft(in.StartTime, in.EndTime, date, nanny, in.ChildrenCount, in.Plan, in.CreatedBy, price))
	}
	return s.createAll(ctx, drafts, nanny), nil
}

func (s *batchService) lookupNanny(ctx context.Context, nannyID *uint) (*models.Nanny, error) {
	if nannyID == nil || *nannyID == 0 {
		return nil, nil
	}
	nanny, err := s.nannyRepo.FindByID(ctx, *nannyID)
	if err != nil {
		return nil, ErrNannyNotFound
	}
	if !nanny.Active() {
		return nil, ErrNannyInactive
	}
	return nanny, nil
}

func (s *batchService) draft(startTime, endTime string, date time.Time, nanny *models.Nanny, children int, plan string, by models.Actor, price float64) models.Booking {
	if children <= 0 {
		children = 1
	}
	b := models.Booking{
		ReferenceCode: uuid.NewString(),
		Date:          schedule.DateOnly(date),
		StartTime:     startTime,
		EndTime:       endTime,
		ChildrenCount: children,
		Plan:          plan,
		TotalPrice:    price,
		Status:        models.StatusPending,
		CreatedBy:     by,
	}
	if nanny != nil {
		b.NannyID = &nanny.ID
		b.NannyName = nanny.Name
	}
	return b
}

// guardInstance runs the same assignment checks the single-create path does,
// against one generated date. Checking per instance also catches a later
// occurrence colliding with one created earlier in the same batch.
func (s *batchService) guardInstance(ctx context.Context, nanny *models.Nanny, date time.Time, startTime, endTime string) error {
	if availability.BlackoutBlocked(nanny.Blackouts, date, nil) {
		return ErrNannyUnavailable
	}
	sameDay, err := s.bookingRepo.FindByNannyAndDate(ctx, nanny.ID, date)
	if err != nil {
		return err
	}
	if conflicts := availability.ConflictsWith(sameDay, date, startTime, endTime, 0); len(conflicts) > 0 {
		return &ScheduleConflictError{
			NannyID:       nanny.ID,
			ConflictCount: len(conflicts),
			Conflicts:     conflicts,
		}
	}
	return nil
}

// createAll persists drafts one by one, guarding each assigned instance, and
// stops at the first failure, so a partial batch is a consistent prefix the
// caller can inspect.
func (s *batchService) createAll(ctx context.Context, drafts []models.Booking, nanny *models.Nanny) *BatchResult {
	result := &BatchResult{Requested: len(drafts)}
	for i := range drafts {
		if nanny != nil {
			if err := s.guardInstance(ctx, nanny, drafts[i].Date, drafts[i].StartTime, drafts[i].EndTime); err != nil {
				result.Err = err
				return result
			}
		}
		if err := s.bookingRepo.Create(ctx, s.bookingRepo.GetDB(), &drafts[i]); err != nil {
			result.Err = err
			return result
		}
		result.Created++
		result.Bookings = append(result.Bookings, drafts[i])
	}
	return result
}
