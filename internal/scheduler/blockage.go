package scheduler

import "time"

// Blockage closes either a concrete range or, every week, a whole weekday.
// Exactly one of Range or Weekday is meaningful.
type Blockage struct {
	ID      string
	Range   Interval
	Weekday *time.Weekday
	Reason  string
}

// IsRecurring reports whether the blockage is a weekday rule.
func (b Blockage) IsRecurring() bool {
	return b.Weekday != nil
}

// IsDayFullyBlocked reports whether no appointment may be booked on date:
// either a weekday rule matches, or a ranged blockage covers the whole work
// window.
func IsDayFullyBlocked(date time.Time, hours BusinessHours, blockages []Blockage) bool {
	window := hours.WorkWindow(date)
	weekday := date.Weekday()

	for _, b := range blockages {
		if b.IsRecurring() {
			if *b.Weekday == weekday {
				return true
			}
			continue
		}
		if b.Range.Contains(window) {
			return true
		}
	}
	return false
}

// IsIntervalBlocked reports whether [start, end) overlaps a ranged blockage.
// Weekday rules are handled by IsDayFullyBlocked only.
func IsIntervalBlocked(start, end time.Time, blockages []Blockage) bool {
	for _, b := range blockages {
		if b.IsRecurring() {
			continue
		}
		if Overlaps(start, end, b.Range.Start, b.Range.End) {
			return true
		}
	}
	return false
}

// BlockedIntervals returns the ranged blockages clipped to the day containing
// date, ordered as given. A matching weekday rule yields the whole day.
func BlockedIntervals(date time.Time, blockages []Blockage) []Interval {
	day := DayInterval(date)
	out := make([]Interval, 0, len(blockages))
	for _, b := range blockages {
		if b.IsRecurring() {
			if *b.Weekday == date.Weekday() {
				return []Interval{day}
			}
			continue
		}
		if !b.Range.Overlaps(day) {
			continue
		}
		clipped := b.Range
		if clipped.Start.Before(day.Start) {
			clipped.Start = day.Start
		}
		if clipped.End.After(day.End) {
			clipped.End = day.End
		}
		out = append(out, clipped)
	}
	return out
}
