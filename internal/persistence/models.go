package persistence

import "time"

// AppointmentStatus is the stored lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusManualFit AppointmentStatus = "manual_fit"
)

// Appointment is a booking row.
type Appointment struct {
	ID              string
	ClientName      string
	ClientPhone     string
	ProcedureID     string
	Start           time.Time
	End             time.Time
	Status          AppointmentStatus
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
	Weekday   *int
	Reason    *string
	CreatedAt time.Time
}

// StaffUser is a dashboard account.
type StaffUser struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a staff user.
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
