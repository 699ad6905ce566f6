package scheduler

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Reason explains an empty slot list.
type Reason string

const (
	// ReasonNone is used when slots were found or the request was not bookable.
	ReasonNone Reason = ""
	// ReasonBlocked means blockages closed the day or every free candidate.
	ReasonBlocked Reason = "blocked"
	// ReasonFull means existing appointments consumed the day.
	ReasonFull Reason = "full"
	// ReasonClosed marks days outside the working week. SlotGenerator never
	// produces it; callers decide it before generating.
	ReasonClosed Reason = "closed"
)

// SlotFormat is the layout of generated slot labels.
const SlotFormat = "15:04"

// SlotRequest carries everything needed to enumerate one day's slots.
type SlotRequest struct {
	Date            time.Time
	DurationMinutes int
	// Appointments are the day's non-cancelled bookings.
	Appointments []Interval
	Blockages    []Blockage
}

// SlotResult lists bookable starts as HH:mm in ascending order.
type SlotResult struct {
	Slots  []string
	Reason Reason
}

// SlotGenerator enumerates fixed-granularity start times across business hours.
type SlotGenerator struct {
	hours BusinessHours
	clock Clock
}

// NewSlotGenerator constructs a generator. A nil clock falls back to SystemClock.
func NewSlotGenerator(hours BusinessHours, clock Clock) *SlotGenerator {
	if clock == nil {
		clock = SystemClock
	}
	return &SlotGenerator{hours: hours, clock: clock}
}

// Hours returns the business hours the generator walks.
func (g *SlotGenerator) Hours() BusinessHours {
	return g.hours
}

// Generate returns the bookable starts for req. It never fails; an unusable
// request yields an empty result.
func (g *SlotGenerator) Generate(req SlotRequest) SlotResult {
	if req.DurationMinutes <= 0 || g.hours.SlotMinutes <= 0 {
		return SlotResult{}
	}
	if IsDayFullyBlocked(req.Date, g.hours, req.Blockages) {
		return SlotResult{Reason: ReasonBlocked}
	}

	now := g.clock.Now()
	duration := time.Duration(req.DurationMinutes) * time.Minute
	step := time.Duration(g.hours.SlotMinutes) * time.Minute
	limit := At(req.Date, g.hours.LastStartHour, 1)

	var (
		slots       []string
		sawBlocked  bool
		sawOccupied bool
	)

	for candidate := At(req.Date, g.hours.OpenHour, 0); candidate.Before(limit); candidate = candidate.Add(step) {
		if g.hours.isLunch(candidate) {
			continue
		}
		end := candidate.Add(duration)

		occupied := collides(candidate, end, req.Appointments)
		blocked := IsIntervalBlocked(candidate, end, req.Blockages)
		if occupied {
			sawOccupied = true
		}
		if blocked {
			sawBlocked = true
		}

		if occupied || blocked || candidate.Before(now) {
			continue
		}
		slots = append(slots, candidate.Format(SlotFormat))
	}

	if len(slots) > 0 {
		return SlotResult{Slots: slots}
	}
	if sawBlocked && !sawOccupied {
		return SlotResult{Reason: ReasonBlocked}
	}
	return SlotResult{Reason: ReasonFull}
}

func collides(start, end time.Time, appointments []Interval) bool {
	for _, appt := range appointments {
		if Overlaps(start, end, appt.Start, appt.End) {
			return true
		}
	}
	return false
}
