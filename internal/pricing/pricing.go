// Package pricing computes what the customer owes and what the nanny is
// owed. The two sides use independent rate schedules and independent night
// boundaries; they must never be merged into one "is it evening" flag.
package pricing

import (
	"math"
	"time"

	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/nannyexpress/booking-service/internal/schedule"
)

// Rates carries the configured fee schedule. NannyHourlyRate is one constant
// for all nannies; NightSurcharge is the customer-side flat per-day fee;
// TaxiFee is the nanny-side flat per-shift addend.
type Rates struct {
	NannyHourlyRate float64
	NightSurcharge  float64
	TaxiFee         float64
}

type PaySource string

const (
	SourceActual    PaySource = "actual"
	SourceEstimated PaySource = "estimated"
)

// Pay is the uniform breakdown both computation paths produce.
type Pay struct {
	Source  PaySource `json:"source"`
	Hours   float64   `json:"hours"`
	BasePay float64   `json:"base_pay"`
	TaxiFee float64   `json:"taxi_fee"`
	Total   float64   `json:"total"`
}

// NightWindowForCustomer is the customer-side night test. A shift ending
// exactly at 19:00 is not a night shift; ending at 19:01 is. Starting
// exactly at 07:00 is not a night shift either.
func NightWindowForCustomer(start, end float64, wrapped bool) bool {
	return start >= 19 || start < 7 || end > 19 || wrapped
}

// NightShiftForNanny is the nanny-side night test used by the estimated pay
// path. Unlike the customer test, a shift ending exactly at 07:00 counts as
// night (end <= 7). The asymmetry is preserved from the fee schedules as
// shipped; pending product confirmation.
func NightShiftForNanny(start, end float64) bool {
	return start >= 19 || start < 7 || end > 19 || end <= 7
}

// CustomerPrice computes the customer-facing total:
// round(rate*hoursPerDay*spanDays) plus the night surcharge once per day
// when the window touches the night period.
func (r Rates) CustomerPrice(customerRate, hoursPerDay float64, spanDays int, night bool) float64 {
	price := math.Round(customerRate * hoursPerDay * float64(spanDays))
	if night {
		price += r.NightSurcharge * float64(spanDays)
	}
	return price
}

// PriceBooking prices a booking window from its labels. A window that does
// not parse yields 0, which callers treat as insufficient data.
func (r Rates) PriceBooking(customerRate float64, startLabel, endLabel string, date time.Time, endDate *time.Time) float64 {
	start, okS := schedule.ParseTimeLabel(startLabel)
	end, okE := schedule.ParseTimeLabel(endLabel)
	if !okS || !okE {
		return 0
	}
	hoursPerDay := schedule.Duration(startLabel, endLabel)
	span := schedule.SpanDays(date, endDate)
	night := NightWindowForCustomer(start, end, end <= start)
	return r.CustomerPrice(customerRate, hoursPerDay, span, night)
}

// EstimatedPay computes nanny pay from the scheduled window: hours scale by
// span days and so does the taxi fee, one per night worked.
func (r Rates) EstimatedPay(startLabel, endLabel string, spanDays int) Pay {
	pay := Pay{Source: SourceEstimated}

	start, okS := schedule.ParseTimeLabel(startLabel)
	end, okE := schedule.ParseTimeLabel(endLabel)
	if !okS || !okE {
		return pay
	}

	pay.Hours = schedule.Duration(startLabel, endLabel) * float64(spanDays)
	pay.BasePay = math.Round(pay.Hours * r.NannyHourlyRate)
	if NightShiftForNanny(start, end) {
		pay.TaxiFee = r.TaxiFee * float64(spanDays)
	}
	pay.Total = pay.BasePay + pay.TaxiFee
	return pay
}

// ActualPay computes nanny pay from real clock timestamps. The night test
// runs on the clock-in/clock-out hours, not the scheduled labels, and the
// taxi fee is not scaled: a clocked shift is a single occurrence.
func (r Rates) ActualPay(clockIn, clockOut time.Time) Pay {
	pay := Pay{Source: SourceActual}

	pay.Hours = clockOut.Sub(clockIn).Hours()
	if pay.Hours < 0 {
		pay.Hours = 0
	}
	pay.BasePay = math.Round(pay.Hours * r.NannyHourlyRate)
	if NightShiftForNanny(schedule.ClockHour(clockIn), schedule.ClockHour(clockOut)) {
		pay.TaxiFee = r.TaxiFee
	}
	pay.Total = pay.BasePay + pay.TaxiFee
	return pay
}

// ResolvePay prefers the actual path whenever both clock timestamps exist
// and falls back to the estimate otherwise. Every caller goes through here
// so the chosen source is always tagged on the result.
func (r Rates) ResolvePay(b *models.Booking) Pay {
	if b.Performed() {
		return r.ActualPay(*b.ClockIn, *b.ClockOut)
	}
	return r.EstimatedPay(b.StartTime, b.EndTime, schedule.SpanDays(b.Date, b.EndDate))
}
