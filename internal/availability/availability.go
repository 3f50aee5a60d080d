// Package availability decides whether a nanny is double-booked for a
// candidate date and time window, and which nannies remain free.
package availability

import (
	"time"

	"github.com/nannyexpress/booking-service/internal/models"
	"github.com/nannyexpress/booking-service/internal/schedule"
)

// Overlaps tests two half-open windows [s1,e1) and [s2,e2): they overlap
// iff s1 < e2 && s2 < e1, so back-to-back shifts do not conflict.
func Overlaps(s1, e1, s2, e2 float64) bool {
	return s1 < e2 && s2 < e1
}

// window parses a booking's labels; a missing or bad end label runs to
// 23:59. Conservative on purpose: a booking with no end time blocks the
// rest of its day.
func window(startLabel, endLabel string) (float64, float64, bool) {
	start, ok := schedule.ParseTimeLabel(startLabel)
	if !ok {
		return 0, 0, false
	}
	end, ok := schedule.ParseTimeLabel(endLabel)
	if !ok {
		end = schedule.EndOfDay
	}
	return start, end, true
}

// ConflictsWith filters a nanny's existing bookings down to those that
// collide with the candidate window: same calendar day, not cancelled, not
// the booking being edited (excludeID), overlapping time windows.
func ConflictsWith(existing []models.Booking, date time.Time, startLabel, endLabel string, excludeID uint) []models.Booking {
	candStart, candEnd, ok := window(startLabel, endLabel)
	if !ok {
		return nil
	}

	var conflicts []models.Booking
	for _, b := range existing {
		if b.ID == excludeID || b.Status == models.StatusCancelled {
			continue
		}
		if !schedule.SameDay(b.Date, date) {
			continue
		}
		s, e, ok := window(b.StartTime, b.EndTime)
		if !ok {
			continue
		}
		if Overlaps(candStart, candEnd, s, e) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}

// HasConflict reports whether any existing booking collides with the
// candidate window.
func HasConflict(existing []models.Booking, date time.Time, startLabel, endLabel string, excludeID uint) bool {
	return len(ConflictsWith(existing, date, startLabel, endLabel, excludeID)) > 0
}

// AvailableNannies returns the active nannies with no conflicting booking
// at the candidate slot, used to suggest alternatives when an assignment is
// blocked. bookingsByNanny supplies each nanny's same-day bookings.
func AvailableNannies(nannies []models.Nanny, bookingsByNanny map[uint][]models.Booking, date time.Time, startLabel, endLabel string) []models.Nanny {
	var free []models.Nanny
	for _, n := range nannies {
		if !n.Active() {
			continue
		}
		if HasConflict(bookingsByNanny[n.ID], date, startLabel, endLabel, 0) {
			continue
		}
		free = append(free, n)
	}
	return free
}

// BlackoutBlocked reports whether any calendar day spanned by the candidate
// booking appears in the nanny's unavailable-date list. Blackouts are
// whole-day: time of day is irrelevant.
func BlackoutBlocked(blackouts []models.NannyBlackout, date time.Time, endDate *time.Time) bool {
	if len(blackouts) == 0 {
		return false
	}
	blocked := make(map[string]struct{}, len(blackouts))
	for _, bl := range blackouts {
		blocked[bl.Date.Format(time.DateOnly)] = struct{}{}
	}
	for _, day := range schedule.DaysBetween(date, endDate) {
		if _, hit := blocked[day.Format(time.DateOnly)]; hit {
			return true
		}
	}
	return false
}
