package service

import (
	"context"
	"sort"
	"time"

	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/nannyexpress/booking-service/internal/pricing"
	"github.com/nannyexpress/booking-service/internal/repository"
	"github.com/nannyexpress/booking-service/internal/schedule"
)

// PayrollRow is one nanny's totals over the filtered range. BestHours
// prefers clocked hours and falls back to scheduled; ActualCount and
// EstimatedCount tell operators how much of the pay is confirmed versus
// projected.
type PayrollRow struct {
	NannyID         uint    `json:"nanny_id"`
	NannyName       string  `json:"nanny_name"`
	Bookings        int     `json:"bookings"`
	ClockedHours    float64 `json:"clocked_hours"`
	ScheduledHours  float64 `json:"scheduled_hours"`
	BestHours       float64 `json:"best_hours"`
	BasePay         float64 `json:"base_pay"`
	TaxiFees        float64 `json:"taxi_fees"`
	TotalPay        float64 `json:"total_pay"`
	CustomerRevenue float64 `json:"customer_revenue"`
	ActualCount     int     `json:"actual_count"`
	EstimatedCount  int     `json:"estimated_count"`
}

// PayrollDetail is the per-booking line operators reconcile against clock
// records; column order is fixed by the export contract.
type PayrollDetail struct {
	BookingID      uint              `json:"booking_id"`
	Date           time.Time         `json:"date"`
	NannyID        uint              `json:"nanny_id"`
	NannyName      string            `json:"nanny_name"`
	ScheduledHours float64           `json:"scheduled_hours"`
	ClockedHours   float64           `json:"clocked_hours"`
	BestHours      float64           `json:"best_hours"`
	Source         pricing.PaySource `json:"source"`
	BasePay        float64           `json:"base_pay"`
	TaxiFee        float64           `json:"taxi_fee"`
	TotalPay       float64           `json:"total_pay"`
	CustomerPrice  float64           `json:"customer_price"`
}

type PayrollReport struct {
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Rows    []PayrollRow    `json:"rows"`
	Total   PayrollRow      `json:"total"`
	Details []PayrollDetail `json:"details"`
}

type PayrollService interface {
	Aggregate(ctx context.Context, from, to time.Time, nannyIDs []uint, status *models.BookingStatus) (*PayrollReport, error)
}

type payrollService struct {
	bookingRepo repository.BookingRepository
	rates       pricing.Rates
}

func NewPayrollService(bookingRepo repository.BookingRepository, rates pricing.Rates) PayrollService {
	return &payrollService{bookingRepo: bookingRepo, rates: rates}
}

// Aggregate rolls bookings in [from,to] up into per-nanny totals plus a
// grand-total row that is the elementwise sum of every per-nanny row.
// Cancelled bookings are always excluded (soft-deleted ones never leave the
// repository), whatever the status filter says.
func (s *payrollService) Aggregate(ctx context.Context, from, to time.Time, nannyIDs []uint, status *models.BookingStatus) (*PayrollReport, error) {
	bookings, err := s.bookingRepo.FindInRange(ctx, schedule.DateOnly(from), schedule.DateOnly(to), nannyIDs, status)
	if err != nil {
		return nil, err
	}

	report := &PayrollReport{From: schedule.DateOnly(from), To: schedule.DateOnly(to)}
	rows := make(map[uint]*PayrollRow)

	for i := range bookings {
		b := &bookings[i]
		if b.Status == models.StatusCancelled || !b.Assigned() {
			continue
		}

		scheduled := schedule.Duration(b.StartTime, b.EndTime) * float64(schedule.SpanDays(b.Date, b.EndDate))
		clocked := 0.0
		if b.Performed() {
			clocked = b.ClockOut.Sub(*b.ClockIn).Hours()
		}
		best := scheduled
		if b.Performed() {
			best = clocked
		}
		pay := s.rates.ResolvePay(b)

		report.Details = append(report.Details, PayrollDetail{
			BookingID:      b.ID,
			Date:           b.Date,
			NannyID:        *b.NannyID,
			NannyName:      b.NannyName,
			ScheduledHours: scheduled,
			ClockedHours:   clocked,
			BestHours:      best,
			Source:         pay.Source,
			BasePay:        pay.BasePay,
			TaxiFee:        pay.TaxiFee,
			TotalPay:       pay.Total,
			CustomerPrice:  b.TotalPrice,
		})

		row, ok := rows[*b.NannyID]
		if !ok {
			row = &PayrollRow{NannyID: *b.NannyID, NannyName: b.NannyName}
			rows[*b.NannyID] = row
		}
		row.Bookings++
		row.ClockedHours += clocked
		row.ScheduledHours += scheduled
		row.BestHours += best
		row.BasePay += pay.BasePay
		row.TaxiFees += pay.TaxiFee
		row.TotalPay += pay.Total
		row.CustomerRevenue += b.TotalPrice
		if pay.Source == pricing.SourceActual {
			row.ActualCount++
		} else {
			row.EstimatedCount++
		}
	}

	report.Rows = make([]PayrollRow, 0, len(rows))
	for _, row := range rows {
		report.Rows = append(report.Rows, *row)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].NannyName == report.Rows[j].NannyName {
			return report.Rows[i].NannyID < report.Rows[j].NannyID
		}
		return report.Rows[i].NannyName < report.Rows[j].NannyName
	})

	report.Total = PayrollRow{NannyName: "TOTAL"}
	for _, row := range report.Rows {
		report.Total.Bookings += row.Bookings
		report.Total.ClockedHours += row.ClockedHours
		report.Total.ScheduledHours += row.ScheduledHours
		report.Total.BestHours += row.BestHours
		report.Total.BasePay += row.BasePay
		report.Total.TaxiFees += row.TaxiFees
		report.Total.TotalPay += row.TotalPay
		report.Total.CustomerRevenue += row.CustomerRevenue
		report.Total.ActualCount += row.ActualCount
		report.Total.EstimatedCount += row.EstimatedCount
	}

	return report, nil
}
