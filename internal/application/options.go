package application

import (
	"strings"
	"time"
)

// BookingPolicy configures how appointment writes treat overlaps.
type BookingPolicy struct {
	// AllowOverlapOnReschedule lets staff move a booking onto an occupied
	// slot. When false reschedules are checked with scheduler.DetectConflicts.
	AllowOverlapOnReschedule bool
	// EnforceBookingExclusion makes the store reject overlapping creates.
	EnforceBookingExclusion bool
	// OwnerPhone receives new booking requests.
	OwnerPhone string
}

// DefaultBookingPolicy allows reschedule overlaps and guards creates.
func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{AllowOverlapOnReschedule: true, EnforceBookingExclusion: true}
}

type serviceOptions struct {
	location     *time.Location
	metrics      Metrics
	policy       BookingPolicy
	cacheTTL     time.Duration
	cacheEntries int
	slots        SlotChecker
}

// ServiceOption configures optional collaborators shared by the services.
type ServiceOption func(*serviceOptions)

// WithLocation sets the salon's time zone used to interpret dates. The
// default is time.Local.
func WithLocation(loc *time.Location) ServiceOption {
	return func(o *serviceOptions) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithMetrics records observations on m.
func WithMetrics(m Metrics) ServiceOption {
	return func(o *serviceOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithBookingPolicy overrides DefaultBookingPolicy.
func WithBookingPolicy(policy BookingPolicy) ServiceOption {
	return func(o *serviceOptions) {
		o.policy = policy
	}
}

// WithSlotCache enables the availability cache. A zero ttl disables it.
func WithSlotCache(ttl time.Duration, maxEntries int) ServiceOption {
	return func(o *serviceOptions) {
		o.cacheTTL = ttl
		o.cacheEntries = maxEntries
	}
}

// WithSlotChecker makes client bookings pass checker before they are
// written. Staff bookings are never checked.
func WithSlotChecker(checker SlotChecker) ServiceOption {
	return func(o *serviceOptions) {
		o.slots = checker
	}
}

func buildOptions(opts []ServiceOption) serviceOptions {
	o := serviceOptions{
		location: time.Local,
		metrics:  noopMetrics{},
		policy:   DefaultBookingPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// parseDate reads YYYY-MM-DD as local midnight in loc.
func parseDate(value string, loc *time.Location) (time.Time, bool) {
	parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// parseStart combines a YYYY-MM-DD date and an HH:mm time in loc, recording
// field errors on vErr.
func parseStart(date, clock string, loc *time.Location, vErr *ValidationError) time.Time {
	day, ok := parseDate(date, loc)
	if !ok {
		vErr.add("date", "data deve estar no formato AAAA-MM-DD")
	}
	at, err := time.Parse(timeLayout, strings.TrimSpace(clock))
	if err != nil {
		vErr.add("time", "horário deve estar no formato HH:mm")
	}
	if !ok || err != nil {
		return time.Time{}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), at.Hour(), at.Minute(), 0, 0, loc)
}

// periodRange returns [start, end) for period around reference. Weeks start
// on Sunday.
func periodRange(period ListPeriod, reference time.Time) (time.Time, time.Time) {
	y, m, d := reference.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, reference.Location())
	switch period {
	case ListPeriodDay:
		return day, day.AddDate(0, 0, 1)
	case ListPeriodWeek:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return start, start.AddDate(0, 0, 7)
	case ListPeriodMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, reference.Location())
		return start, start.AddDate(0, 1, 0)
	default:
		return time.Time{}, time.Time{}
	}
}
