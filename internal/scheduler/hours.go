package scheduler

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// NoLunchBreak disables the lunch exclusion when used as BusinessHours.LunchHour.
const NoLunchBreak = -1

// BusinessHours configures the bookable window of a working day.
type BusinessHours struct {
	// OpenHour is the first bookable hour, e.g. 10 for 10:00.
	OpenHour int
	// LastStartHour is the last hour at which an appointment may start. Its
	// top of the hour is inclusive.
	LastStartHour int
	// LunchHour excludes every candidate whose hour equals it.
	LunchHour int
	// SlotMinutes is the candidate granularity.
	SlotMinutes int
	// WorkingDays lists the weekdays the salon opens.
	WorkingDays []time.Weekday
}

// DefaultBusinessHours returns the salon's standard schedule: Tuesday through
// Saturday, 10:00 to 18:00 starts, half-hour slots, lunch at 12.
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{
		OpenHour:      10,
		LastStartHour: 18,
		LunchHour:     12,
		SlotMinutes:   30,
		WorkingDays: []time.Weekday{
			time.Tuesday,
			time.Wednesday,
			time.Thursday,
			time.Friday,
			time.Saturday,
		},
	}
}

// ErrInvalidBusinessHours indicates a business hours configuration that cannot
// produce a slot grid.
var ErrInvalidBusinessHours = errors.New("scheduler: invalid business hours")

// Validate checks the configuration for internal consistency.
func (h BusinessHours) Validate() error {
	if h.OpenHour < 0 || h.OpenHour > 23 {
		return fmt.Errorf("%w: open hour %d out of range", ErrInvalidBusinessHours, h.OpenHour)
	}
	if h.LastStartHour < h.OpenHour || h.LastStartHour > 23 {
		return fmt.Errorf("%w: last start hour %d must be between open hour and 23", ErrInvalidBusinessHours, h.LastStartHour)
	}
	if h.LunchHour != NoLunchBreak && (h.LunchHour < 0 || h.LunchHour > 23) {
		return fmt.Errorf("%w: lunch hour %d out of range", ErrInvalidBusinessHours, h.LunchHour)
	}
	if h.SlotMinutes <= 0 || h.SlotMinutes > 24*60 {
		return fmt.Errorf("%w: slot minutes must be positive", ErrInvalidBusinessHours)
	}
	for _, day := range h.WorkingDays {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidBusinessHours, day)
		}
	}
	return nil
}

// IsWorkingDay reports whether the salon opens on the weekday of date.
func (h BusinessHours) IsWorkingDay(date time.Time) bool {
	return slices.Contains(h.WorkingDays, date.Weekday())
}

// WorkWindow returns the instants used for full-day block detection: the
// opening hour and the last bookable start on date.
func (h BusinessHours) WorkWindow(date time.Time) Interval {
	return Interval{
		Start: At(date, h.OpenHour, 0),
		End:   At(date, h.LastStartHour, 0),
	}
}

func (h BusinessHours) isLunch(candidate time.Time) bool {
	return h.LunchHour != NoLunchBreak && candidate.Hour() == h.LunchHour
}
