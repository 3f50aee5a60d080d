//go:build integration

package integration

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/nannyexpress/booking-service/internal/pricing"
	"github.com/nannyexpress/booking-service/internal/repository"
	"github.com/nannyexpress/booking-service/internal/schedule"
	"github.com/nannyexpress/booking-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRates = pricing.Rates{NannyHourlyRate: 8, NightSurcharge: 10, TaxiFee: 5}

var nannyIDCounter uint = 0

func nextNannyID() uint {
	nannyIDCounter++
	return nannyIDCounter
}

func createTestNanny(t *testing.T, name string, rate float64) *models.Nanny {
	t.Helper()
	nanny := &models.Nanny{
		ID:     nextNannyID(),
		Name:   name,
		Rate:   rate,
		Status: models.NannyActive,
	}
	require.NoError(t, testDB.Create(nanny).Error)
	return nanny
}

func newBookingService() service.BookingService {
	bookingRepo := repository.NewBookingRepository(testDB)
	nannyRepo := repository.NewNannyRepository(testDB)
	return service.NewBookingService(bookingRepo, nannyRepo, testRates, nil)
}

func newBatchService() service.BatchService {
	bookingRepo := repository.NewBookingRepository(testDB)
	nannyRepo := repository.NewNannyRepository(testDB)
	return service.NewBatchService(bookingRepo, nannyRepo, testRates)
}

func confirmedTodayBooking(t *testing.T, svc service.BookingService, nannyID uint, start, end string) *models.Booking {
	t.Helper()
	booking, err := svc.CreateBooking(t.Context(), service.CreateBookingInput{
		Date:      schedule.DateOnly(time.Now()),
		StartTime: start,
		EndTime:   end,
		NannyID:   &nannyID,
		CreatedBy: models.ActorAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusConfirmed, booking.Status)
	return booking
}

// Test: 10 concurrent clock-in attempts on the same booking → exactly one wins
func TestConcurrentClockInSameBooking(t *testing.T) {
	cleanTables()
	svc := newBookingService()
	nanny := createTestNanny(t, "Alice", 10)
	booking := confirmedTodayBooking(t, svc, nanny.ID, "00:00", "23:59")

	attempts := 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.ClockIn(t.Context(), booking.ID); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successCount, "only one concurrent clock-in should succeed")

	var count int64
	testDB.Model(&models.Booking{}).
		Where("nanny_id = ? AND clock_in IS NOT NULL AND clock_out IS NULL", nanny.ID).
		Count(&count)
	assert.Equal(t, int64(1), count, "DB should have exactly 1 active shift")
}

// Test: a nanny with an active shift cannot clock into a second booking
func TestSingleActiveShiftPerNanny(t *testing.T) {
	cleanTables()
	svc := newBookingService()
	nanny := createTestNanny(t, "Alice", 10)

	first := confirmedTodayBooking(t, svc, nanny.ID, "00:00", "11:00")
	second := confirmedTodayBooking(t, svc, nanny.ID, "12:00", "23:00")

	_, err := svc.ClockIn(t.Context(), first.ID)
	require.NoError(t, err)

	_, err = svc.ClockIn(t.Context(), second.ID)
	assert.ErrorIs(t, err, service.ErrActiveShiftExists)

	// clocking out of the first frees the guard
	_, err = svc.ClockOut(t.Context(), first.ID)
	require.NoError(t, err)

	clocked, err := svc.ClockIn(t.Context(), second.ID)
	require.NoError(t, err)
	assert.NotNil(t, clocked.ClockIn)
}

// Test: overlapping assignment is rejected with conflict detail,
// back-to-back is allowed
func TestConflictDetection(t *testing.T) {
	cleanTables()
	svc := newBookingService()
	nanny := createTestNanny(t, "Alice", 10)
	createTestNanny(t, "Bea", 12)

	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreateBooking(t.Context(), service.CreateBookingInput{
		Date: date, StartTime: "14:00", EndTime: "16:00",
		NannyID: &nanny.ID, CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)

	_, err = svc.CreateBooking(t.Context(), service.CreateBookingInput{
		Date: date, StartTime: "15:00", EndTime: "17:00",
		NannyID: &nanny.ID, CreatedBy: models.ActorParent,
	})
	var conflict *service.ScheduleConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, conflict.ConflictCount)
	require.Len(t, conflict.Alternatives, 1)
	assert.Equal(t, "Bea", conflict.Alternatives[0].Name)

	// half-open windows: 16:00-18:00 touches but does not overlap
	_, err = svc.CreateBooking(t.Context(), service.CreateBookingInput{
		Date: date, StartTime: "16:00", EndTime: "18:00",
		NannyID: &nanny.ID, CreatedBy: models.ActorParent,
	})
	assert.NoError(t, err)
}

// Test: full lifecycle with clock records resolves pay from the clock
func TestLifecycleAndActualPay(t *testing.T) {
	cleanTables()
	svc := newBookingService()
	nanny := createTestNanny(t, "Alice", 10)
	booking := confirmedTodayBooking(t, svc, nanny.ID, "00:00", "23:59")

	_, err := svc.ClockIn(t.Context(), booking.ID)
	require.NoError(t, err)

	done, err := svc.ClockOut(t.Context(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)

	pay := svc.Pay(done)
	assert.Equal(t, pricing.SourceActual, pay.Source)
}

// Test: recurring expansion persists one row per occurrence at the right dates
func TestRecurringExpansionPersists(t *testing.T) {
	cleanTables()
	batch := newBatchService()
	nanny := createTestNanny(t, "Alice", 10)

	start := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := batch.ExpandRecurring(t.Context(), service.RecurringInput{
		StartDate: start,
		Cadence:   service.CadenceBiweekly,
		Repeat:    4,
		StartTime: "09:00",
		EndTime:   "12:00",
		NannyID:   &nanny.ID,
		CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Created)
	require.NoError(t, result.Err)

	var rows []models.Booking
	require.NoError(t, testDB.Order("date ASC").Find(&rows).Error)
	require.Len(t, rows, 4)
	for i, b := range rows {
		assert.Equal(t, start.AddDate(0, 0, i*14).Format(time.DateOnly), b.Date.Format(time.DateOnly))
		assert.Equal(t, models.StatusPending, b.Status)
	}
}

// Test: batch expansion enforces the same assignment guards as single create
func TestBatchRespectsAssignmentGuards(t *testing.T) {
	cleanTables()
	svc := newBookingService()
	batch := newBatchService()
	nanny := createTestNanny(t, "Alice", 10)

	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreateBooking(t.Context(), service.CreateBookingInput{
		Date: date, StartTime: "10:00", EndTime: "12:00",
		NannyID: &nanny.ID, CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)
	require.NoError(t, testDB.Create(&models.NannyBlackout{
		NannyID: nanny.ID, Date: date.AddDate(0, 0, 1),
	}).Error)

	// overlapping window on the booked day
	result, err := batch.ExpandMultiDate(t.Context(), service.MultiDateInput{
		Dates:     []time.Time{date},
		StartTime: "11:00",
		EndTime:   "13:00",
		NannyID:   &nanny.ID,
		CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	var conflict *service.ScheduleConflictError
	assert.ErrorAs(t, result.Err, &conflict)

	// recurring series landing on the blackout day
	result, err = batch.ExpandRecurring(t.Context(), service.RecurringInput{
		StartDate: date.AddDate(0, 0, 1),
		Cadence:   service.CadenceWeekly,
		Repeat:    2,
		StartTime: "09:00",
		EndTime:   "12:00",
		NannyID:   &nanny.ID,
		CreatedBy: models.ActorParent,
	})
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.ErrorIs(t, result.Err, service.ErrNannyUnavailable)

	var count int64
	testDB.Model(&models.Booking{}).Count(&count)
	assert.Equal(t, int64(1), count, "only the original booking should exist")
}

// Test: soft delete hides the booking, restore brings it back
func TestSoftDeleteAndRestore(t *testing.T) {
	cleanTables()
	svc := newBookingService()
	nanny := createTestNanny(t, "Alice", 10)
	booking := confirmedTodayBooking(t, svc, nanny.ID, "09:00", "12:00")

	require.NoError(t, svc.Delete(t.Context(), booking.ID, models.ActorAdmin))

	_, err := svc.GetBooking(t.Context(), booking.ID)
	assert.ErrorIs(t, err, service.ErrBookingNotFound)

	// both halves of the delete landed together
	var hidden models.Booking
	require.NoError(t, testDB.Unscoped().First(&hidden, booking.ID).Error)
	assert.True(t, hidden.DeletedAt.Valid)
	require.NotNil(t, hidden.DeletedBy)
	assert.Equal(t, models.ActorAdmin, *hidden.DeletedBy)

	restored, err := svc.Restore(t.Context(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, restored.ID)
	assert.Nil(t, restored.DeletedBy)
}

// Test: payroll rolls a range up per nanny with a grand total
func TestPayrollAggregation(t *testing.T) {
	cleanTables()
	svc := newBookingService()
	payroll := service.NewPayrollService(repository.NewBookingRepository(testDB), testRates)

	alice := createTestNanny(t, "Alice", 10)
	bea := createTestNanny(t, "Bea", 12)

	date := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, n := range []*models.Nanny{alice, bea} {
		_, err := svc.CreateBooking(t.Context(), service.CreateBookingInput{
			Date:      date.AddDate(0, 0, i),
			StartTime: "09:00",
			EndTime:   "13:00",
			NannyID:   &n.ID,
			CreatedBy: models.ActorAdmin,
		})
		require.NoError(t, err)
	}

	report, err := payroll.Aggregate(t.Context(), date, date.AddDate(0, 0, 7), nil, nil)
	require.NoError(t, err)

	require.Len(t, report.Rows, 2)
	assert.Equal(t, "Alice", report.Rows[0].NannyName)
	assert.Equal(t, "Bea", report.Rows[1].NannyName)
	assert.Equal(t, 2, report.Total.Bookings)
	assert.Equal(t, fmt.Sprintf("%.0f", report.Rows[0].TotalPay+report.Rows[1].TotalPay),
		fmt.Sprintf("%.0f", report.Total.TotalPay))
}
