package persistence

import (
	"context"
	"time"
)

// AppointmentFilter narrows appointment queries. Set fields are ANDed.
type AppointmentFilter struct {
	// Statuses keeps rows whose status equals one of the values.
	Statuses []AppointmentStatus
	// ExcludeStatuses drops rows whose status equals one of the values.
	ExcludeStatuses []AppointmentStatus
	StartsFrom      *time.Time // start_time >= value
	StartsBefore    *time.Time // start_time < value
	EndsAfter       *time.Time // end_time > value
	EndsUntil       *time.Time // end_time <= value
	ClientPhone     string
	// Descending orders by start_time newest first.
	Descending bool
	Limit      int
}

// Overlapping returns a filter matching rows that intersect [start, end) and
// are not cancelled.
func Overlapping(start, end time.Time) AppointmentFilter {
	return AppointmentFilter{
		ExcludeStatuses: []AppointmentStatus{StatusCancelled},
		StartsBefore:    &end,
		EndsAfter:       &start,
	}
}

// BlockageFilter selects blockages whose range overlaps [RangeStart, RangeEnd)
// OR whose weekday equals Weekday. With neither group set every blockage
// matches.
type BlockageFilter struct {
	RangeStart *time.Time
	RangeEnd   *time.Time
	Weekday    *int
	// AllWeekdays also matches every weekday rule, used for month views.
	AllWeekdays bool
}

// ProcedureFilter narrows catalog queries.
type ProcedureFilter struct {
	Category string
}

// AppointmentRepository stores bookings.
type AppointmentRepository interface {
	// CreateAppointment inserts a booking. When guard is true the insert is
	// rejected with ErrOverlap if a non-cancelled booking intersects it; the
	// check and the insert are atomic.
	CreateAppointment(ctx context.Context, appt Appointment, guard bool) error
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	UpdateAppointment(ctx context.Context, appt Appointment) error
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, error)
}

// BlockageRepository stores closed periods.
type BlockageRepository interface {
	CreateBlockage(ctx context.Context, blockage Blockage) error
	DeleteBlockage(ctx context.Context, id string) error
	ListBlockages(ctx context.Context, filter BlockageFilter) ([]Blockage, error)
}

// ProcedureRepository stores the service catalog. Listing orders by category,
// then price, then name.
type ProcedureRepository interface {
	CreateProcedure(ctx context.Context, procedure Procedure) error
	GetProcedure(ctx context.Context, id string) (Procedure, error)
	ListProcedures(ctx context.Context, filter ProcedureFilter) ([]Procedure, error)
}

// StaffRepository stores dashboard accounts.
type StaffRepository interface {
	CreateStaffUser(ctx context.Context, user StaffUser) error
	GetStaffUser(ctx context.Context, id string) (StaffUser, error)
	GetStaffUserByEmail(ctx context.Context, email string) (StaffUser, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// Store bundles every repository a backend provides.
type Store interface {
	AppointmentRepository
	BlockageRepository
	ProcedureRepository
	StaffRepository
	SessionRepository
	Close() error
}

// Matches reports whether appt satisfies every set field of the filter.
// Limit and ordering are the caller's concern.
func (f AppointmentFilter) Matches(appt Appointment) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, appt.Status) {
		return false
	}
	if containsStatus(f.ExcludeStatuses, appt.Status) {
		return false
	}
	if f.StartsFrom != nil && appt.Start.Before(*f.StartsFrom) {
		return false
	}
	if f.StartsBefore != nil && !appt.Start.Before(*f.StartsBefore) {
		return false
	}
	if f.EndsAfter != nil && !appt.End.After(*f.EndsAfter) {
		return false
	}
	if f.EndsUntil != nil && appt.End.After(*f.EndsUntil) {
		return false
	}
	if f.ClientPhone != "" && appt.ClientPhone != f.ClientPhone {
		return false
	}
	return true
}

func containsStatus(values []AppointmentStatus, target AppointmentStatus) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

// HasRange reports whether the range group is set.
func (f BlockageFilter) HasRange() bool {
	return f.RangeStart != nil || f.RangeEnd != nil
}

// HasWeekday reports whether the weekday group is set.
func (f BlockageFilter) HasWeekday() bool {
	return f.Weekday != nil || f.AllWeekdays
}

// Matches reports whether blockage falls in the range group or the weekday group.
func (f BlockageFilter) Matches(blockage Blockage) bool {
	if !f.HasRange() && !f.HasWeekday() {
		return true
	}
	if f.HasRange() && blockage.Start != nil && blockage.End != nil {
		inRange := true
		if f.RangeEnd != nil && !blockage.Start.Before(*f.RangeEnd) {
			inRange = false
		}
		if f.RangeStart != nil && !blockage.End.After(*f.RangeStart) {
			inRange = false
		}
		if inRange {
			return true
		}
	}
	if blockage.Weekday != nil {
		if f.AllWeekdays {
			return true
		}
		if f.Weekday != nil && *f.Weekday == *blockage.Weekday {
			return true
		}
	}
	return false
}
