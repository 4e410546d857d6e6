package service

import (
	"time"

	"github.com/Freeeeeet/skillswap/internal/model"
)

// SlotsOverlap reports whether two weekly slots intersect. Intervals are
// half-open, so slots that only touch at a boundary do not overlap.
func SlotsOverlap(a, b model.AvailabilitySlot) bool {
	return a.DayOfWeek == b.DayOfWeek && a.StartMinute < b.EndMinute && a.EndMinute > b.StartMinute
}

// AvailabilityOverlapScore is the fraction of same-weekday slot pairs that
// overlap; 0 when no pair shares a weekday.
func AvailabilityOverlapScore(a, b []model.AvailabilitySlot) float64 {
	comparable, overlapping := 0, 0
	for _, x := range a {
		for _, y := range b {
			if x.DayOfWeek != y.DayOfWeek {
				continue
			}
			comparable++
			if SlotsOverlap(x, y) {
				overlapping++
			}
		}
	}

	if comparable == 0 {
		return 0
	}
	return float64(overlapping) / float64(comparable)
}

// IntervalsConflict reports whether [startA, endA) and [startB, endB) intersect.
func IntervalsConflict(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && endA.After(startB)
}

// WeeklyWindow is the intersection of two slots on one weekday.
type WeeklyWindow struct {
	DayOfWeek   int
	StartMinute int
	EndMinute   int
}

func (w WeeklyWindow) Duration() time.Duration {
	return time.Duration(w.EndMinute-w.StartMinute) * time.Minute
}

// FirstOverlap finds the overlap with the lowest weekday, then the earliest start.
// Overlaps shorter than minLength are skipped.
func FirstOverlap(a, b []model.AvailabilitySlot, minLength time.Duration) (WeeklyWindow, bool) {
	var best WeeklyWindow
	found := false

	for _, x := range a {
		for _, y := range b {
			if !SlotsOverlap(x, y) {
				continue
			}

			w := WeeklyWindow{
				DayOfWeek:   x.DayOfWeek,
				StartMinute: max(x.StartMinute, y.StartMinute),
				EndMinute:   min(x.EndMinute, y.EndMinute),
			}
			if w.Duration() < minLength {
				continue
			}

			if !found ||
				w.DayOfWeek < best.DayOfWeek ||
				(w.DayOfWeek == best.DayOfWeek && w.StartMinute < best.StartMinute) {
				best = w
				found = true
			}
		}
	}

	return best, found
}

// nextOccurrence returns the first moment strictly after now that falls on
// weekday at minute of day, in now's location.
func nextOccurrence(now time.Time, weekday time.Weekday, minute int) time.Time {
	delta := (int(weekday) - int(now.Weekday()) + 7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day()+delta, minute/60, minute%60, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = time.Date(now.Year(), now.Month(), now.Day()+delta+7, minute/60, minute%60, 0, 0, now.Location())
	}
	return candidate
}

// dayWindow converts an absolute window to weekday and minutes of day in loc.
// ok is false when the window spans more than one calendar day; an end exactly
// at the following midnight is reported as minute 1440.
func dayWindow(start, end time.Time, loc *time.Location) (weekday time.Weekday, startMin, endMin int, ok bool) {
	start, end = start.In(loc), end.In(loc)
	startMin = model.MinuteOfDay(start)

	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	switch {
	case sy == ey && sm == em && sd == ed:
		endMin = model.MinuteOfDay(end)
		if end.Second() > 0 || end.Nanosecond() > 0 {
			endMin++ // окно не должно выходить за слот даже на долю минуты
		}
	case end.Equal(time.Date(sy, sm, sd+1, 0, 0, 0, 0, loc)):
		endMin = model.MinutesPerDay
	default:
		return 0, 0, 0, false
	}

	return start.Weekday(), startMin, endMin, true
}

// slotsCover reports whether any slot on the window's weekday fully contains it.
func slotsCover(slots []model.AvailabilitySlot, start, end time.Time, loc *time.Location) bool {
	weekday, startMin, endMin, ok := dayWindow(start, end, loc)
	if !ok {
		return false
	}

	for _, s := range slots {
		if s.Weekday() == weekday && s.Contains(startMin, endMin) {
			return true
		}
	}
	return false
}
