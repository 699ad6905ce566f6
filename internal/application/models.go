package application

import (
	"time"

	"github.com/example/salon-scheduler/internal/scheduler"
)

// Principal represents the authenticated staff user invoking a service method.
type Principal struct {
	UserID      string
	DisplayName string
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	// StatusManualFit marks a booking squeezed in by staff outside the slot grid.
	StatusManualFit AppointmentStatus = "manual_fit"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusManualFit:
		return true
	}
	return false
}

// BookingSource identifies who created an appointment.
type BookingSource string

const (
	SourceClient BookingSource = "client"
	SourceStaff  BookingSource = "staff"
)

// Appointment is a booking exposed by the application services.
type Appointment struct {
	ID          string
	ClientName  string
	ClientPhone string
	ProcedureID string
	Start       time.Time
	End         time.Time
	Status      AppointmentStatus
	// DurationMinutes and PriceCents are copied from the procedure when the
	// appointment is created so later catalog edits do not rewrite history.
	DurationMinutes int
	PriceCents      int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Procedure is a catalog entry.
type Procedure struct {
	ID              string
	Name            string
	Category        string
	PriceCents      int64
	DurationMinutes int
	Description     *string
	IsPackage       bool
	CreatedAt       time.Time
}

// Blockage closes either [Start, End) or every occurrence of Weekday.
type Blockage struct {
	ID        string
	Start     *time.Time
	End       *time.Time
	Weekday   *time.Weekday
	Reason    string
	CreatedAt time.Time
}

// StaffUser is a dashboard account.
type StaffUser struct {
	ID          string
	Email       string
	DisplayName string
	Disabled    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserCredentials models the authentication attributes persisted for a staff user.
type UserCredentials struct {
	User         StaffUser
	PasswordHash string
	Disabled     bool
}

// Session represents an authenticated session issued to a staff user.
type Session struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RevokedAt   *time.Time
}

// AuthenticateParams captures the data required to authenticate a staff user.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    StaffUser
	Session Session
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session Session
}

// CreateAppointmentParams wraps the data required to book an appointment.
// Date is YYYY-MM-DD and Time is HH:mm, both in the salon's location.
type CreateAppointmentParams struct {
	ClientName  string
	ClientPhone string
	ProcedureID string
	Date        string
	Time        string
	Source      BookingSource
	// ManualFit lets staff squeeze a booking in regardless of overlaps.
	ManualFit bool
}

// SetStatusParams wraps a status change.
type SetStatusParams struct {
	AppointmentID string
	Status        AppointmentStatus
}

// RescheduleParams moves an appointment. An empty ProcedureID keeps the
// current procedure.
type RescheduleParams struct {
	AppointmentID string
	Date          string
	Time          string
	ProcedureID   string
}

// AppointmentConflict names a booking a reschedule would overlap.
type AppointmentConflict struct {
	AppointmentID string
	Start         time.Time
	End           time.Time
}

// ListPeriod identifies the range preset requested for appointment listings.
type ListPeriod string

const (
	ListPeriodDay   ListPeriod = "day"
	ListPeriodWeek  ListPeriod = "week"
	ListPeriodMonth ListPeriod = "month"
	// ListPeriodCustom uses the caller supplied From and To bounds.
	ListPeriodCustom ListPeriod = "custom"
)

// ListAppointmentsParams wraps the data required to list appointments.
type ListAppointmentsParams struct {
	Period    ListPeriod
	Reference time.Time
	From      *time.Time
	To        *time.Time
	Statuses  []AppointmentStatus
}

// CreateBlockageParams closes a range or a weekday. Exactly one form must be set.
type CreateBlockageParams struct {
	Start   *time.Time
	End     *time.Time
	Weekday *int
	Reason  string
}

// CreateProcedureParams wraps a new catalog entry.
type CreateProcedureParams struct {
	ID              string
	Name            string
	Category        string
	PriceCents      int64
	DurationMinutes int
	Description     *string
	IsPackage       bool
}

// AvailabilityResult lists bookable starts for a day. RetryLater is set when
// the store could not be read and the empty list is not authoritative.
type AvailabilityResult struct {
	Date            time.Time
	DurationMinutes int
	Slots           []string
	Reason          scheduler.Reason
	RetryLater      bool
}

// DayStatus summarises a day for the date picker.
type DayStatus string

const (
	DayOpen    DayStatus = "open"
	DayClosed  DayStatus = "closed"
	DayBlocked DayStatus = "blocked"
)

// MonthDay is one day of a MonthOverview.
type MonthDay struct {
	Date   time.Time
	Status DayStatus
	Reason string
}

// MonthOverview lists every day of a month with its status.
type MonthOverview struct {
	Year  int
	Month time.Month
	Days  []MonthDay
}

// AgendaEntry is an appointment placed on the day timeline.
type AgendaEntry struct {
	Appointment   Appointment
	ProcedureName string
	Placement     scheduler.Placement
}

// DayAgenda is the dashboard view of one day.
type DayAgenda struct {
	Date      time.Time
	Entries   []AgendaEntry
	Blockages []Blockage
	// Blocked lists the parts of the day closed by Blockages, clipped to
	// the day.
	Blocked []scheduler.Interval
}

// CategoryCount counts confirmed appointments in one catalog category.
type CategoryCount struct {
	Category string
	Count    int
}

// ServiceRevenue sums confirmed revenue for one procedure.
type ServiceRevenue struct {
	ProcedureID  string
	Name         string
	Count        int
	RevenueCents int64
}

// StatsSummary aggregates appointments in [From, To).
type StatsSummary struct {
	From                   time.Time
	To                     time.Time
	ConfirmedEarningsCents int64
	CountsByStatus         map[AppointmentStatus]int
	ByCategory             []CategoryCount
	RevenueByService       []ServiceRevenue
}
