// Package schedule converts human time labels and booking dates into the
// decimal-hour representation the pricing and conflict logic works on.
package schedule

import (
	"strconv"
	"strings"
	"time"
)

const hoursPerDay = 24

// EndOfDay is the decimal-hour value a missing end label defaults to (23:59).
const EndOfDay = 23 + 59.0/60

// ParseTimeLabel parses "HHhMM" ("19h30", "9h") or "H:MM" ("19:00"), with an
// optional am/pm suffix, into decimal hours. Anything else returns ok=false;
// it never panics. A zero-hour result must be read as "insufficient data",
// not a valid zero-length window.
func ParseTimeLabel(label string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return 0, false
	}

	meridiem := ""
	for _, suffix := range []string{"am", "pm"} {
		if strings.HasSuffix(s, suffix) {
			meridiem = suffix
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	var sep string
	switch {
	case strings.Contains(s, "h"):
		sep = "h"
	case strings.Contains(s, ":"):
		sep = ":"
	default:
		return 0, false
	}

	parts := strings.SplitN(s, sep, 2)
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}

	minutes := 0
	if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
		minutes, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || minutes < 0 || minutes > 59 {
			return 0, false
		}
	}

	switch meridiem {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	return float64(hour) + float64(minutes)/60, true
}

// Duration returns the elapsed hours between two labels. When the end label
// is not later than the start, the window is treated as an overnight
// wrap-around: 19:00->01:00 is 6 hours, not negative. Unparsable labels
// yield 0.
func Duration(startLabel, endLabel string) float64 {
	start, ok := ParseTimeLabel(startLabel)
	if !ok {
		return 0
	}
	end, ok := ParseTimeLabel(endLabel)
	if !ok {
		return 0
	}
	if end > start {
		return end - start
	}
	return (hoursPerDay - start) + end
}

// Wraps reports whether the window crosses midnight (end label numerically
// less than or equal to the start label). False when either label is bad.
func Wraps(startLabel, endLabel string) bool {
	start, ok := ParseTimeLabel(startLabel)
	if !ok {
		return false
	}
	end, ok := ParseTimeLabel(endLabel)
	if !ok {
		return false
	}
	return end <= start
}

// SpanDays returns the inclusive calendar-day count a booking covers: 1 when
// endDate is absent or equal to date, never less than 1.
func SpanDays(date time.Time, endDate *time.Time) int {
	if endDate == nil {
		return 1
	}
	days := int(endDate.Sub(date).Hours()/hoursPerDay) + 1
	if days < 1 {
		return 1
	}
	return days
}

// DaysBetween lists every calendar day a booking spans, truncated to
// midnight, used by the blackout intersection.
func DaysBetween(date time.Time, endDate *time.Time) []time.Time {
	span := SpanDays(date, endDate)
	days := make([]time.Time, 0, span)
	day := DateOnly(date)
	for i := 0; i < span; i++ {
		days = append(days, day.AddDate(0, 0, i))
	}
	return days
}

// DateOnly truncates a timestamp to its calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two timestamps fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

// ClockHour converts a timestamp's time-of-day into decimal hours, for night
// tests run against real clock-in/clock-out times.
func ClockHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}
