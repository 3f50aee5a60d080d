package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestBatchService(bookingRepo *mockBookingRepo, nannyRepo *mockNannyRepo) BatchService {
	return NewBatchService(bookingRepo, nannyRepo, svcRates)
}

func dates(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2024, 6, 1+i, 0, 0, 0, 0, time.UTC)
	}
	return out
}

func TestExpandMultiDate_SplitsAggregatePrice(t *testing.T) {
	var created []models.Booking
	bookingRepo := &mockBookingRepo{
		createFn: func(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
			created = append(created, *b)
			return nil
		},
	}
	nannyRepo := &mockNannyRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Nanny, error) {
			return activeNanny(7, "Alice", 10), nil
		},
	}
	svc := newTestBatchService(bookingRepo, nannyRepo)

	// 3 days x 09:00-19:00 at rate 10 = 300 aggregate, 100 per instance
	result, err := svc.ExpandMultiDate(context.Background(), MultiDateInput{
		Dates:     dates(3),
		StartTime: "09:00",
		EndTime:   "19:00",
		NannyID:   uintPtr(7),
		CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, 3, result.Created)
	assert.NoError(t, result.Err)
	require.Len(t, created, 3)
	for _, b := range created {
		assert.Equal(t, 100.0, b.TotalPrice)
		assert.Equal(t, models.StatusPending, b.Status)
		assert.Equal(t, "Alice", b.NannyName)
		assert.NotEmpty(t, b.ReferenceCode)
	}
	// each instance is a single-date booking on its own day
	assert.NotEqual(t, created[0].Date, created[1].Date)
	assert.Nil(t, created[0].EndDate)
}

func TestExpandMultiDate_UnassignedHasNoPrice(t *testing.T) {
	var created []models.Booking
	bookingRepo := &mockBookingRepo{
		createFn: func(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
			created = append(created, *b)
			return nil
		},
	}
	svc := newTestBatchService(bookingRepo, &mockNannyRepo{})

	result, err := svc.ExpandMultiDate(context.Background(), MultiDateInput{
		Dates:     dates(2),
		StartTime: "09:00",
		EndTime:   "12:00",
		CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	for _, b := range created {
		assert.Zero(t, b.TotalPrice)
		assert.False(t, b.Assigned())
	}
}

func TestExpandMultiDate_Validation(t *testing.T) {
	svc := newTestBatchService(&mockBookingRepo{}, &mockNannyRepo{})

	_, err := svc.ExpandMultiDate(context.Background(), MultiDateInput{
		StartTime: "09:00", EndTime: "12:00",
	})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = svc.ExpandMultiDate(context.Background(), MultiDateInput{
		Dates: dates(1), StartTime: "bad", EndTime: "12:00",
	})
	assert.ErrorIs(t, err, ErrInvalidTimeWindow)
}

func TestExpandMultiDate_PartialFailureKeepsPrefix(t *testing.T) {
	boom := errors.New("insert failed")
	calls := 0
	bookingRepo := &mockBookingRepo{
		createFn: func(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
			calls++
			if calls == 3 {
				return boom
			}
			return nil
		},
	}
	svc := newTestBatchService(bookingRepo, &mockNannyRepo{})

	result, err := svc.ExpandMultiDate(context.Background(), MultiDateInput{
		Dates:     dates(4),
		StartTime: "09:00",
		EndTime:   "12:00",
		CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Requested)
	assert.Equal(t, 2, result.Created)
	assert.Len(t, result.Bookings, 2)
	assert.ErrorIs(t, result.Err, boom)
}

func TestExpandRecurring_CadenceOffsets(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		cadence Cadence
		step    int
	}{
		{CadenceWeekly, 7},
		{CadenceBiweekly, 14},
		{CadenceMonthly, 30},
	}
	for _, tc := range cases {
		var created []models.Booking
		bookingRepo := &mockBookingRepo{
			createFn: func(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
				created = append(created, *b)
				return nil
			},
		}
		svc := newTestBatchService(bookingRepo, &mockNannyRepo{})

		result, err := svc.ExpandRecurring(context.Background(), RecurringInput{
			StartDate: start,
			Cadence:   tc.cadence,
			Repeat:    3,
			StartTime: "09:00",
			EndTime:   "12:00",
			CreatedBy: models.ActorParent,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Created)
		require.Len(t, created, 3)
		assert.Equal(t, start, created[0].Date)
		assert.Equal(t, start.AddDate(0, 0, tc.step), created[1].Date, "cadence %s", tc.cadence)
		assert.Equal(t, start.AddDate(0, 0, 2*tc.step), created[2].Date, "cadence %s", tc.cadence)
	}
}

func TestExpandRecurring_ClampsRepeat(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	run := func(repeat int) int {
		count := 0
		bookingRepo := &mockBookingRepo{
			createFn: func(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
				count++
				return nil
			},
		}
		svc := newTestBatchService(bookingRepo, &mockNannyRepo{})
		result, err := svc.ExpandRecurring(context.Background(), RecurringInput{
			StartDate: start,
			Cadence:   CadenceWeekly,
			Repeat:    repeat,
			StartTime: "09:00",
			EndTime:   "12:00",
			CreatedBy: models.ActorParent,
		})
		require.NoError(t, err)
		assert.Equal(t, count, result.Created)
		return result.Created
	}

	assert.Equal(t, 1, run(0))
	assert.Equal(t, 1, run(-5))
	assert.Equal(t, 12, run(50))
	assert.Equal(t, 5, run(5))
}

func TestExpandRecurring_FullPricePerOccurrence(t *testing.T) {
	var created []models.Booking
	bookingRepo := &mockBookingRepo{
		createFn: func(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
			created = append(created, *b)
			return nil
		},
	}
	nannyRepo := &mockNannyRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Nanny, error) {
			return activeNanny(7, "Alice", 10), nil
		},
	}
	svc := newTestBatchService(bookingRepo, nannyRepo)

	result, err := svc.ExpandRecurring(context.Background(), RecurringInput{
		StartDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Cadence:   CadenceWeekly,
		Repeat:    2,
		StartTime: "09:00",
		EndTime:   "17:00",
		NannyID:   uintPtr(7),
		CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	for _, b := range created {
		assert.Equal(t, 80.0, b.TotalPrice)
	}
}

func TestExpandMultiDate_ConflictGuardStopsBatch(t *testing.T) {
	// the nanny is already booked 10:00-12:00 on the second date; the batch
	// must create the first instance only and surface the conflict
	days := dates(3)
	clash := models.Booking{
		ID:        99,
		Date:      days[1],
		StartTime: "10:00",
		EndTime:   "12:00",
		Status:    models.StatusConfirmed,
		NannyID:   uintPtr(7),
	}

	var created []models.Booking
	bookingRepo := &mockBookingRepo{
		createFn: func(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
			created = append(created, *b)
			return nil
		},
		findByNannyAndDateFn: func(ctx context.Context, nannyID uint, date time.Time) ([]models.Booking, error) {
			if date.Equal(days[1]) {
				return []models.Booking{clash}, nil
			}
			return nil, nil
		},
	}
	nannyRepo := &mockNannyRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Nanny, error) {
			return activeNanny(7, "Alice", 10), nil
		},
	}
	svc := newTestBatchService(bookingRepo, nannyRepo)

	result, err := svc.ExpandMultiDate(context.Background(), MultiDateInput{
		Dates:     days,
		StartTime: "09:00",
		EndTime:   "12:00",
		NannyID:   uintPtr(7),
		CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, 1, result.Created)
	require.Len(t, created, 1)
	assert.Equal(t, days[0], created[0].Date)

	var conflict *ScheduleConflictError
	require.ErrorAs(t, result.Err, &conflict)
	assert.Equal(t, uint(7), conflict.NannyID)
	assert.Equal(t, 1, conflict.ConflictCount)
}

func TestExpandRecurring_BlackoutBlocksInstance(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	var created []models.Booking
	bookingRepo := &mockBookingRepo{
		createFn: func(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
			created = append(created, *b)
			return nil
		},
	}
	nannyRepo := &mockNannyRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Nanny, error) {
			n := activeNanny(7, "Alice", 10)
			// unavailable on the second weekly occurrence
			n.Blackouts = []models.NannyBlackout{{NannyID: 7, Date: start.AddDate(0, 0, 7)}}
			return n, nil
		},
	}
	svc := newTestBatchService(bookingRepo, nannyRepo)

	result, err := svc.ExpandRecurring(context.Background(), RecurringInput{
		StartDate: start,
		Cadence:   CadenceWeekly,
		Repeat:    3,
		StartTime: "09:00",
		EndTime:   "12:00",
		NannyID:   uintPtr(7),
		CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Requested)
	assert.Equal(t, 1, result.Created)
	require.Len(t, created, 1)
	assert.Equal(t, start, created[0].Date)
	assert.ErrorIs(t, result.Err, ErrNannyUnavailable)
}

func TestExpandMultiDate_BlackoutBlocksFirstInstance(t *testing.T) {
	days := dates(2)
	nannyRepo := &mockNannyRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Nanny, error) {
			n := activeNanny(7, "Alice", 10)
			n.Blackouts = []models.NannyBlackout{{NannyID: 7, Date: days[0]}}
			return n, nil
		},
	}
	svc := newTestBatchService(&mockBookingRepo{}, nannyRepo)

	result, err := svc.ExpandMultiDate(context.Background(), MultiDateInput{
		Dates:     days,
		StartTime: "09:00",
		EndTime:   "12:00",
		NannyID:   uintPtr(7),
		CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)

	assert.Zero(t, result.Created)
	assert.ErrorIs(t, result.Err, ErrNannyUnavailable)
}

func TestExpandRecurring_InactiveNanny(t *testing.T) {
	nannyRepo := &mockNannyRepo{
		findByIDFn: func(ctx context.Context, id uint) (*models.Nanny, error) {
			return &models.Nanny{ID: 7, Name: "Alice", Status: models.NannyInactive}, nil
		},
	}
	svc := newTestBatchService(&mockBookingRepo{}, nannyRepo)

	_, err := svc.ExpandRecurring(context.Background(), RecurringInput{
		StartDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Cadence:   CadenceWeekly,
		Repeat:    1,
		StartTime: "09:00",
		EndTime:   "12:00",
		NannyID:   uintPtr(7),
		CreatedBy: models.ActorParent,
	})
	assert.ErrorIs(t, err, ErrNannyInactive)
}
