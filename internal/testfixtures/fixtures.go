package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/salon-scheduler/internal/application"
	"github.com/example/salon-scheduler/internal/persistence"
	"github.com/example/salon-scheduler/internal/scheduler"
)

var (
	staffCounter       uint64
	procedureCounter   uint64
	appointmentCounter uint64
	blockageCounter    uint64
	sessionCounter     uint64
)

// salonLocation is a fixed -03:00 zone so fixtures do not depend on the
// tzdata installed on the test host.
var salonLocation = time.FixedZone("BRT", -3*60*60)

// referenceTime is a Monday morning; the default week is open Tuesday to
// Saturday, so Day(1) is the first working day.
var referenceTime = time.Date(2024, time.June, 10, 8, 0, 0, 0, salonLocation)

// Location returns the salon zone used by every fixture.
func Location() *time.Location {
	return salonLocation
}

// ReferenceTime returns the canonical "now" used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Day returns local midnight offset days from ReferenceTime.
func Day(offset int) time.Time {
	return scheduler.StartOfDay(referenceTime).AddDate(0, 0, offset)
}

// At returns hour:minute on Day(offset).
func At(offset, hour, minute int) time.Time {
	return scheduler.At(Day(offset), hour, minute)
}

// ----------------------------- Staff fixtures ----------------------------

// StaffFixture is a dashboard account.
type StaffFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
}

// StaffOption configures the generated staff fixture.
type StaffOption func(*StaffFixture)

// NewStaffFixture returns a deterministic staff fixture with optional overrides.
func NewStaffFixture(opts ...StaffOption) StaffFixture {
	idx := atomic.AddUint64(&staffCounter, 1)
	id := fmt.Sprintf("staff-%03d", idx)
	fixture := StaffFixture{
		ID:           id,
		Email:        fmt.Sprintf("%s@salao.example", id),
		DisplayName:  fmt.Sprintf("Equipe %03d", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithStaffEmail overrides the generated email address.
func WithStaffEmail(email string) StaffOption {
	return func(f *StaffFixture) {
		f.Email = email
	}
}

// WithStaffPasswordHash overrides the generated password hash.
func WithStaffPasswordHash(hash string) StaffOption {
	return func(f *StaffFixture) {
		f.PasswordHash = hash
	}
}

// WithStaffDisabled marks the account as disabled.
func WithStaffDisabled() StaffOption {
	return func(f *StaffFixture) {
		f.Disabled = true
	}
}

// Application returns the fixture as an application.StaffUser.
func (f StaffFixture) Application() application.StaffUser {
	return application.StaffUser{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		Disabled:    f.Disabled,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f StaffFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:         f.Application(),
		PasswordHash: f.PasswordHash,
		Disabled:     f.Disabled,
	}
}

// Principal returns the principal an authenticated request would carry.
func (f StaffFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, DisplayName: f.DisplayName}
}

// Persistence returns the fixture as a persistence.StaffUser.
func (f StaffFixture) Persistence() persistence.StaffUser {
	return persistence.StaffUser{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		Disabled:     f.Disabled,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// --------------------------- Procedure fixtures --------------------------

// ProcedureFixture is a catalog entry.
type ProcedureFixture struct {
	ID              string
	Name            string
	Category        string
	PriceCents      int64
	DurationMinutes int
	Description     *string
	IsPackage       bool
	CreatedAt       time.Time
}

// ProcedureOption configures the generated procedure fixture.
type ProcedureOption func(*ProcedureFixture)

// NewProcedureFixture returns a 60 minute "Cabelo" procedure with optional
// overrides.
func NewProcedureFixture(opts ...ProcedureOption) ProcedureFixture {
	idx := atomic.AddUint64(&procedureCounter, 1)
	fixture := ProcedureFixture{
		ID:              fmt.Sprintf("proc-%03d", idx),
		Name:            fmt.Sprintf("Procedimento %03d", idx),
		Category:        "Cabelo",
		PriceCents:      8000,
		DurationMinutes: 60,
		CreatedAt:       referenceTime.AddDate(0, -1, 0),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProcedureID overrides the generated ID.
func WithProcedureID(id string) ProcedureOption {
	return func(f *ProcedureFixture) {
		f.ID = id
	}
}

// WithProcedureName overrides the generated name.
func WithProcedureName(name string) ProcedureOption {
	return func(f *ProcedureFixture) {
		f.Name = name
	}
}

// WithProcedureCategory overrides the category.
func WithProcedureCategory(category string) ProcedureOption {
	return func(f *ProcedureFixture) {
		f.Category = category
	}
}

// WithProcedurePrice overrides the price in cents.
func WithProcedurePrice(cents int64) ProcedureOption {
	return func(f *ProcedureFixture) {
		f.PriceCents = cents
	}
}

// WithProcedureDuration overrides the duration in minutes.
func WithProcedureDuration(minutes int) ProcedureOption {
	return func(f *ProcedureFixture) {
		f.DurationMinutes = minutes
	}
}

// WithProcedureDescription sets the description.
func WithProcedureDescription(description string) ProcedureOption {
	return func(f *ProcedureFixture) {
		f.Description = &description
	}
}

// AsPackage marks the procedure as a bundled package.
func AsPackage() ProcedureOption {
	return func(f *ProcedureFixture) {
		f.IsPackage = true
	}
}

// Application returns the fixture as an application.Procedure.
func (f ProcedureFixture) Application() application.Procedure {
	return application.Procedure{
		ID:              f.ID,
		Name:            f.Name,
		Category:        f.Category,
		PriceCents:      f.PriceCents,
		DurationMinutes: f.DurationMinutes,
		Description:     copyStringPtr(f.Description),
		IsPackage:       f.IsPackage,
		CreatedAt:       f.CreatedAt,
	}
}

// Params returns the fixture as application.CreateProcedureParams.
func (f ProcedureFixture) Params() application.CreateProcedureParams {
	return application.CreateProcedureParams{
		ID:              f.ID,
		Name:            f.Name,
		Category:        f.Category,
		PriceCents:      f.PriceCents,
		DurationMinutes: f.DurationMinutes,
		Description:     copyStringPtr(f.Description),
		IsPackage:       f.IsPackage,
	}
}

// Persistence returns the fixture as a persistence.Procedure.
func (f ProcedureFixture) Persistence() persistence.Procedure {
	return persistence.Procedure{
		ID:              f.ID,
		Name:            f.Name,
		Category:        f.Category,
		PriceCents:      f.PriceCents,
		DurationMinutes: f.DurationMinutes,
		Description:     copyStringPtr(f.Description),
		IsPackage:       f.IsPackage,
		CreatedAt:       f.CreatedAt,
	}
}

// Catalog returns a small catalog spanning three categories: a 30 minute
// cut, a 60 minute brushing, a 90 minute colouring and a 45 minute manicure.
func Catalog() []ProcedureFixture {
	return []ProcedureFixture{
		NewProcedureFixture(WithProcedureID("corte"), WithProcedureName("Corte feminino"), WithProcedureDuration(30), WithProcedurePrice(6000)),
		NewProcedureFixture(WithProcedureID("escova"), WithProcedureName("Escova"), WithProcedureDuration(60), WithProcedurePrice(5000)),
		NewProcedureFixture(WithProcedureID("coloracao"), WithProcedureName("Coloração"), WithProcedureCategory("Química"), WithProcedureDuration(90), WithProcedurePrice(18000)),
		NewProcedureFixture(WithProcedureID("manicure"), WithProcedureName("Manicure"), WithProcedureCategory("Unhas"), WithProcedureDuration(45), WithProcedurePrice(3500)),
	}
}

// -------------------------- Appointment fixtures -------------------------

// AppointmentFixture is a booking. End is derived from Start and
// DurationMinutes unless set explicitly.
type AppointmentFixture struct {
	ID              string
	ClientName      string
	ClientPhone     string
	ProcedureID     string
	Start           time.Time
	End             time.Time
	Status          application.AppointmentStatus
	DurationMinutes int
	PriceCents      int64
	CreatedAt       time.Time
}

// AppointmentOption configures the generated appointment fixture.
type AppointmentOption func(*AppointmentFixture)

// NewAppointmentFixture returns a confirmed 60 minute booking at 10:00 on the
// first working day after ReferenceTime.
func NewAppointmentFixture(opts ...AppointmentOption) AppointmentFixture {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	fixture := AppointmentFixture{
		ID:              fmt.Sprintf("appt-%03d", idx),
		ClientName:      fmt.Sprintf("Cliente %03d", idx),
		ClientPhone:     fmt.Sprintf("119%08d", idx),
		ProcedureID:     "escova",
		Start:           At(1, 10, 0),
		Status:          application.StatusConfirmed,
		DurationMinutes: 60,
		PriceCents:      5000,
		CreatedAt:       referenceTime.Add(-24 * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	if fixture.End.IsZero() {
		fixture.End = fixture.Start.Add(time.Duration(fixture.DurationMinutes) * time.Minute)
	}
	return fixture
}

// WithAppointmentID overrides the generated ID.
func WithAppointmentID(id string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.ID = id
	}
}

// WithAppointmentStart moves the booking; End follows unless set later.
func WithAppointmentStart(start time.Time) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Start = start
		f.End = time.Time{}
	}
}

// WithAppointmentStatus overrides the status.
func WithAppointmentStatus(status application.AppointmentStatus) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.Status = status
	}
}

// WithAppointmentClient overrides the client name and phone.
func WithAppointmentClient(name, phone string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.ClientName = name
		f.ClientPhone = phone
	}
}

// WithAppointmentProcedure snapshots procedure onto the booking.
func WithAppointmentProcedure(procedure ProcedureFixture) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.ProcedureID = procedure.ID
		f.DurationMinutes = procedure.DurationMinutes
		f.PriceCents = procedure.PriceCents
		f.End = time.Time{}
	}
}

// Application returns the fixture as an application.Appointment.
func (f AppointmentFixture) Application() application.Appointment {
	return application.Appointment{
		ID:              f.ID,
		ClientName:      f.ClientName,
		ClientPhone:     f.ClientPhone,
		ProcedureID:     f.ProcedureID,
		Start:           f.Start,
		End:             f.End,
		Status:          f.Status,
		DurationMinutes: f.DurationMinutes,
		PriceCents:      f.PriceCents,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Appointment.
func (f AppointmentFixture) Persistence() persistence.Appointment {
	return persistence.Appointment{
		ID:              f.ID,
		ClientName:      f.ClientName,
		ClientPhone:     f.ClientPhone,
		ProcedureID:     f.ProcedureID,
		Start:           f.Start,
		End:             f.End,
		Status:          persistence.AppointmentStatus(f.Status),
		DurationMinutes: f.DurationMinutes,
		PriceCents:      f.PriceCents,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.CreatedAt,
	}
}

// Booking returns the fixture as seen by conflict detection.
func (f AppointmentFixture) Booking() scheduler.Booking {
	return scheduler.Booking{ID: f.ID, Start: f.Start, End: f.End}
}

// ---------------------------- Blockage fixtures --------------------------

// BlockageFixture closes either [Start, End) or every Weekday.
type BlockageFixture struct {
	ID        string
	Start     *time.Time
	End       *time.Time
	Weekday   *time.Weekday
	Reason    string
	CreatedAt time.Time
}

// BlockageOption configures the generated blockage fixture.
type BlockageOption func(*BlockageFixture)

// NewBlockageFixture returns a 14:00-16:00 ranged blockage on Day(1).
func NewBlockageFixture(opts ...BlockageOption) BlockageFixture {
	idx := atomic.AddUint64(&blockageCounter, 1)
	start, end := At(1, 14, 0), At(1, 16, 0)
	fixture := BlockageFixture{
		ID:        fmt.Sprintf("block-%03d", idx),
		Start:     &start,
		End:       &end,
		Reason:    "Curso",
		CreatedAt: referenceTime.Add(-2 * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBlockageRange closes [start, end) and clears any weekday rule.
func WithBlockageRange(start, end time.Time) BlockageOption {
	return func(f *BlockageFixture) {
		f.Start, f.End, f.Weekday = &start, &end, nil
	}
}

// WithBlockageWeekday turns the fixture into a weekly rule.
func WithBlockageWeekday(day time.Weekday) BlockageOption {
	return func(f *BlockageFixture) {
		f.Start, f.End, f.Weekday = nil, nil, &day
	}
}

// WithBlockageReason overrides the reason.
func WithBlockageReason(reason string) BlockageOption {
	return func(f *BlockageFixture) {
		f.Reason = reason
	}
}

// Application returns the fixture as an application.Blockage.
func (f BlockageFixture) Application() application.Blockage {
	return application.Blockage{
		ID:        f.ID,
		Start:     copyTimePtr(f.Start),
		End:       copyTimePtr(f.End),
		Weekday:   copyWeekdayPtr(f.Weekday),
		Reason:    f.Reason,
		CreatedAt: f.CreatedAt,
	}
}

// Params returns the fixture as application.CreateBlockageParams.
func (f BlockageFixture) Params() application.CreateBlockageParams {
	params := application.CreateBlockageParams{
		Start:  copyTimePtr(f.Start),
		End:    copyTimePtr(f.End),
		Reason: f.Reason,
	}
	if f.Weekday != nil {
		day := int(*f.Weekday)
		params.Weekday = &day
	}
	return params
}

// Persistence returns the fixture as a persistence.Blockage.
func (f BlockageFixture) Persistence() persistence.Blockage {
	blockage := persistence.Blockage{
		ID:        f.ID,
		Start:     copyTimePtr(f.Start),
		End:       copyTimePtr(f.End),
		CreatedAt: f.CreatedAt,
	}
	if f.Weekday != nil {
		day := int(*f.Weekday)
		blockage.Weekday = &day
	}
	if f.Reason != "" {
		reason := f.Reason
		blockage.Reason = &reason
	}
	return blockage
}

// Scheduler returns the fixture as seen by the blockage resolver.
func (f BlockageFixture) Scheduler() scheduler.Blockage {
	blockage := scheduler.Blockage{ID: f.ID, Weekday: copyWeekdayPtr(f.Weekday), Reason: f.Reason}
	if f.Start != nil && f.End != nil {
		blockage.Range = scheduler.Interval{Start: *f.Start, End: *f.End}
	}
	return blockage
}

// ----------------------------- Session fixtures -------------------------

// SessionFixture is an issued staff session.
type SessionFixture struct {
	ID          string
	UserID      string
	Token       string
	Fingerprint string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	RevokedAt   *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a session valid for 12 hours from ReferenceTime.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:          fmt.Sprintf("session-%03d", idx),
		UserID:      "staff-001",
		Token:       fmt.Sprintf("token-%03d", idx),
		Fingerprint: "test-agent",
		ExpiresAt:   referenceTime.Add(12 * time.Hour),
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionUser binds the session to staff.
func WithSessionUser(staff StaffFixture) SessionOption {
	return func(f *SessionFixture) {
		f.UserID = staff.ID
	}
}

// WithSessionExpiresAt overrides the expiry.
func WithSessionExpiresAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.ExpiresAt = t
	}
}

// WithSessionRevokedAt marks the session as revoked at t.
func WithSessionRevokedAt(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		f.RevokedAt = &t
	}
}

// Application returns the fixture as an application.Session.
func (f SessionFixture) Application() application.Session {
	return application.Session{
		ID:          f.ID,
		UserID:      f.UserID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
		RevokedAt:   copyTimePtr(f.RevokedAt),
	}
}

// Persistence returns the fixture as a persistence.Session.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:          f.ID,
		UserID:      f.UserID,
		Token:       f.Token,
		Fingerprint: f.Fingerprint,
		ExpiresAt:   f.ExpiresAt,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.CreatedAt,
		RevokedAt:   copyTimePtr(f.RevokedAt),
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}

func copyWeekdayPtr(src *time.Weekday) *time.Weekday {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
