package application

import (
	"context"
	"time"

	"github.com/example/salon-scheduler/internal/notify"
	"github.com/example/salon-scheduler/internal/persistence"
)

// AppointmentQuery narrows appointment listings. Set fields are ANDed.
type AppointmentQuery struct {
	Statuses        []AppointmentStatus
	ExcludeStatuses []AppointmentStatus
	StartsFrom      *time.Time
	StartsBefore    *time.Time
	EndsAfter       *time.Time
	EndsUntil       *time.Time
	ClientPhone     string
	Descending      bool
	Limit           int
}

// overlapping selects non-cancelled appointments intersecting [start, end).
func overlapping(start, end time.Time) AppointmentQuery {
	return AppointmentQuery{
		ExcludeStatuses: []AppointmentStatus{StatusCancelled},
		StartsBefore:    &end,
		EndsAfter:       &start,
	}
}

// BlockageQuery selects blockages overlapping [RangeStart, RangeEnd) OR
// matching Weekday. AllWeekdays matches every weekday rule.
type BlockageQuery struct {
	RangeStart  *time.Time
	RangeEnd    *time.Time
	Weekday     *time.Weekday
	AllWeekdays bool
}

// AppointmentRepository captures the persistence interactions for bookings.
type AppointmentRepository interface {
	// CreateAppointment persists appt. When guard is true the store rejects
	// it atomically if a non-cancelled booking overlaps.
	CreateAppointment(ctx context.Context, appt Appointment, guard bool) (Appointment, error)
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	UpdateAppointment(ctx context.Context, appt Appointment) (Appointment, error)
	ListAppointments(ctx context.Context, query AppointmentQuery) ([]Appointment, error)
}

// AppointmentReader is the read side of AppointmentRepository.
type AppointmentReader interface {
	ListAppointments(ctx context.Context, query AppointmentQuery) ([]Appointment, error)
}

// BlockageRepository captures the persistence interactions for closed periods.
type BlockageRepository interface {
	CreateBlockage(ctx context.Context, blockage Blockage) (Blockage, error)
	DeleteBlockage(ctx context.Context, id string) error
	ListBlockages(ctx context.Context, query BlockageQuery) ([]Blockage, error)
}

// BlockageReader is the read side of BlockageRepository.
type BlockageReader interface {
	ListBlockages(ctx context.Context, query BlockageQuery) ([]Blockage, error)
}

// ProcedureCatalog exposes catalog lookups.
type ProcedureCatalog interface {
	GetProcedure(ctx context.Context, id string) (Procedure, error)
	ListProcedures(ctx context.Context, category string) ([]Procedure, error)
}

// ProcedureRepository adds catalog writes to ProcedureCatalog.
type ProcedureRepository interface {
	ProcedureCatalog
	CreateProcedure(ctx context.Context, procedure Procedure) (Procedure, error)
}

// CredentialStore exposes staff credential lookups required by the auth service.
type CredentialStore interface {
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (StaffUser, error)
}

// StaffRegistry creates staff accounts.
type StaffRegistry interface {
	CreateStaffUser(ctx context.Context, credentials UserCredentials) (StaffUser, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// Notifier hands notifications to the outbound transport.
type Notifier interface {
	Notify(ctx context.Context, n notify.Notification) error
}

// SlotChecker decides whether a client may book a start. AvailabilityService
// implements it.
type SlotChecker interface {
	CheckSlot(ctx context.Context, start time.Time, durationMinutes int) error
}

// ChangeSubscriber delivers store change hints.
type ChangeSubscriber interface {
	Subscribe(entity persistence.Entity, fn func(persistence.ChangeEvent)) (unsubscribe func())
}

// Metrics receives service level observations. *metrics.SchedulerMetrics
// satisfies it.
type Metrics interface {
	ObserveAvailability(reason string, elapsed time.Duration)
	ObserveSlotCache(hit bool)
	ObserveBooking(operation, outcome string)
	ObserveNotification(kind string, err error)
}

type noopMetrics struct{}

func (noopMetrics) ObserveAvailability(string, time.Duration) {}
func (noopMetrics) ObserveSlotCache(bool)                     {}
func (noopMetrics) ObserveBooking(string, string)             {}
func (noopMetrics) ObserveNotification(string, error)         {}
