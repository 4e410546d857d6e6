package model

import (
	"fmt"
	"time"
)

// MinutesPerDay is the exclusive upper bound of a time-of-day value; an
// end of 1440 means midnight at the end of the day.
const MinutesPerDay = 24 * 60

// AvailabilitySlot is a recurring weekly window in which a user is free.
// Times are minutes since midnight, the window is half-open [Start, End).
type AvailabilitySlot struct {
	ID          int64 `json:"id"`
	UserID      int64 `json:"user_id"`
	DayOfWeek   int   `json:"day_of_week"`  // 0 = Sunday, 6 = Saturday
	StartMinute int   `json:"start_minute"` // 0-1439
	EndMinute   int   `json:"end_minute"`   // 1-1440
}

// Weekday returns DayOfWeek as a time.Weekday
func (s AvailabilitySlot) Weekday() time.Weekday {
	return time.Weekday(s.DayOfWeek)
}

// Contains reports whether [start, end) minutes of the same day fall inside the slot.
func (s AvailabilitySlot) Contains(start, end int) bool {
	return s.StartMinute <= start && end <= s.EndMinute
}

func (s AvailabilitySlot) String() string {
	return fmt.Sprintf("%s %s-%s", s.Weekday(), FormatMinute(s.StartMinute), FormatMinute(s.EndMinute))
}

// MinuteOfDay returns the minutes elapsed since midnight of t in t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// FormatMinute renders minutes since midnight as HH:MM.
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
