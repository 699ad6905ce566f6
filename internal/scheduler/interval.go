package scheduler

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any instant.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Contains reports whether [innerStart, innerEnd] lies entirely within
// [outerStart, outerEnd].
func Contains(outerStart, outerEnd, innerStart, innerEnd time.Time) bool {
	return !outerStart.After(innerStart) && !outerEnd.Before(innerEnd)
}

// MinuteOfDay returns the minutes elapsed since local midnight, in [0, 1440).
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Overlaps reports whether the receiver overlaps other.
func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

// Contains reports whether other lies entirely within the receiver.
func (i Interval) Contains(other Interval) bool {
	return Contains(i.Start, i.End, other.Start, other.End)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayInterval returns [00:00, next 00:00) for the day containing t.
func DayInterval(t time.Time) Interval {
	start := StartOfDay(t)
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// At returns the instant hour:minute on the day containing date.
func At(date time.Time, hour, minute int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, date.Location())
}
