// Package storeadapter exposes a persistence.Store through the repository
// interfaces declared by the application package.
package storeadapter

import (
	"context"
	"strings"
	"time"

	"github.com/example/salon-scheduler/internal/application"
	"github.com/example/salon-scheduler/internal/persistence"
)

// Adapter translates between application and persistence records. Times read
// from the store are converted to the salon's location.
type Adapter struct {
	store persistence.Store
	loc   *time.Location
}

var (
	_ application.AppointmentRepository = (*Adapter)(nil)
	_ application.BlockageRepository    = (*Adapter)(nil)
	_ application.ProcedureRepository   = (*Adapter)(nil)
	_ application.CredentialStore       = (*Adapter)(nil)
	_ application.StaffRegistry         = (*Adapter)(nil)
	_ application.SessionRepository     = (*Adapter)(nil)
)

// New wraps store. A nil loc uses time.Local.
func New(store persistence.Store, loc *time.Location) *Adapter {
	if loc == nil {
		loc = time.Local
	}
	return &Adapter{store: store, loc: loc}
}

func (a *Adapter) CreateAppointment(ctx context.Context, appt application.Appointment, guard bool) (application.Appointment, error) {
	if err := a.store.CreateAppointment(ctx, toPersistenceAppointment(appt), guard); err != nil {
		return application.Appointment{}, err
	}
	return a.localAppointment(appt), nil
}

func (a *Adapter) GetAppointment(ctx context.Context, id string) (application.Appointment, error) {
	stored, err := a.store.GetAppointment(ctx, id)
	if err != nil {
		return application.Appointment{}, err
	}
	return a.toApplicationAppointment(stored), nil
}

func (a *Adapter) UpdateAppointment(ctx context.Context, appt application.Appointment) (application.Appointment, error) {
	if err := a.store.UpdateAppointment(ctx, toPersistenceAppointment(appt)); err != nil {
		return application.Appointment{}, err
	}
	return a.localAppointment(appt), nil
}

func (a *Adapter) ListAppointments(ctx context.Context, query application.AppointmentQuery) ([]application.Appointment, error) {
	stored, err := a.store.ListAppointments(ctx, toPersistenceFilter(query))
	if err != nil {
		return nil, err
	}
	out := make([]application.Appointment, 0, len(stored))
	for _, appt := range stored {
		out = append(out, a.toApplicationAppointment(appt))
	}
	return out, nil
}

func (a *Adapter) CreateBlockage(ctx context.Context, blockage application.Blockage) (application.Blockage, error) {
	if err := a.store.CreateBlockage(ctx, toPersistenceBlockage(blockage)); err != nil {
		return application.Blockage{}, err
	}
	return blockage, nil
}

func (a *Adapter) DeleteBlockage(ctx context.Context, id string) error {
	return a.store.DeleteBlockage(ctx, id)
}

func (a *Adapter) ListBlockages(ctx context.Context, query application.BlockageQuery) ([]application.Blockage, error) {
	filter := persistence.BlockageFilter{
		RangeStart:  cloneTime(query.RangeStart),
		RangeEnd:    cloneTime(query.RangeEnd),
		AllWeekdays: query.AllWeekdays,
	}
	if query.Weekday != nil {
		weekday := int(*query.Weekday)
		filter.Weekday = &weekday
	}

	stored, err := a.store.ListBlockages(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]application.Blockage, 0, len(stored))
	for _, b := range stored {
		out = append(out, a.toApplicationBlockage(b))
	}
	return out, nil
}

func (a *Adapter) GetProcedure(ctx context.Context, id string) (application.Procedure, error) {
	stored, err := a.store.GetProcedure(ctx, id)
	if err != nil {
		return application.Procedure{}, err
	}
	return toApplicationProcedure(stored), nil
}

func (a *Adapter) ListProcedures(ctx context.Context, category string) ([]application.Procedure, error) {
	stored, err := a.store.ListProcedures(ctx, persistence.ProcedureFilter{Category: category})
	if err != nil {
		return nil, err
	}
	out := make([]application.Procedure, 0, len(stored))
	for _, p := range stored {
		out = append(out, toApplicationProcedure(p))
	}
	return out, nil
}

func (a *Adapter) CreateProcedure(ctx context.Context, procedure application.Procedure) (application.Procedure, error) {
	if err := a.store.CreateProcedure(ctx, toPersistenceProcedure(procedure)); err != nil {
		return application.Procedure{}, err
	}
	return procedure, nil
}

func (a *Adapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.store.GetStaffUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationStaff(stored),
		PasswordHash: stored.PasswordHash,
		Disabled:     stored.Disabled,
	}, nil
}

func (a *Adapter) GetUser(ctx context.Context, id string) (application.StaffUser, error) {
	stored, err := a.store.GetStaffUser(ctx, id)
	if err != nil {
		return application.StaffUser{}, err
	}
	return toApplicationStaff(stored), nil
}

func (a *Adapter) CreateStaffUser(ctx context.Context, credentials application.UserCredentials) (application.StaffUser, error) {
	user := credentials.User
	record := persistence.StaffUser{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		PasswordHash: credentials.PasswordHash,
		Disabled:     user.Disabled || credentials.Disabled,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	if err := a.store.CreateStaffUser(ctx, record); err != nil {
		return application.StaffUser{}, err
	}
	return toApplicationStaff(record), nil
}

func (a *Adapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.store.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *Adapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.store.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *Adapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.store.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *Adapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.store.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.store.DeleteExpiredSessions(ctx, reference)
}

func (a *Adapter) localAppointment(appt application.Appointment) application.Appointment {
	appt.Start = appt.Start.In(a.loc)
	appt.End = appt.End.In(a.loc)
	return appt
}

func (a *Adapter) toApplicationAppointment(model persistence.Appointment) application.Appointment {
	return a.localAppointment(application.Appointment{
		ID:              model.ID,
		ClientName:      model.ClientName,
		ClientPhone:     model.ClientPhone,
		ProcedureID:     model.ProcedureID,
		Start:           model.Start,
		End:             model.End,
		Status:          application.AppointmentStatus(model.Status),
		DurationMinutes: model.DurationMinutes,
		PriceCents:      model.PriceCents,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	})
}

func toPersistenceAppointment(appt application.Appointment) persistence.Appointment {
	return persistence.Appointment{
		ID:              appt.ID,
		ClientName:      appt.ClientName,
		ClientPhone:     appt.ClientPhone,
		ProcedureID:     appt.ProcedureID,
		Start:           appt.Start,
		End:             appt.End,
		Status:          persistence.AppointmentStatus(appt.Status),
		DurationMinutes: appt.DurationMinutes,
		PriceCents:      appt.PriceCents,
		CreatedAt:       appt.CreatedAt,
		UpdatedAt:       appt.UpdatedAt,
	}
}

func toPersistenceFilter(query application.AppointmentQuery) persistence.AppointmentFilter {
	return persistence.AppointmentFilter{
		Statuses:        toPersistenceStatuses(query.Statuses),
		ExcludeStatuses: toPersistenceStatuses(query.ExcludeStatuses),
		StartsFrom:      cloneTime(query.StartsFrom),
		StartsBefore:    cloneTime(query.StartsBefore),
		EndsAfter:       cloneTime(query.EndsAfter),
		EndsUntil:       cloneTime(query.EndsUntil),
		ClientPhone:     query.ClientPhone,
		Descending:      query.Descending,
		Limit:           query.Limit,
	}
}

func toPersistenceStatuses(statuses []application.AppointmentStatus) []persistence.AppointmentStatus {
	if len(statuses) == 0 {
		return nil
	}
	out := make([]persistence.AppointmentStatus, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, persistence.AppointmentStatus(status))
	}
	return out
}

func (a *Adapter) toApplicationBlockage(model persistence.Blockage) application.Blockage {
	blockage := application.Blockage{ID: model.ID, CreatedAt: model.CreatedAt}
	if model.Reason != nil {
		blockage.Reason = *model.Reason
	}
	if model.Weekday != nil {
		weekday := time.Weekday(*model.Weekday)
		blockage.Weekday = &weekday
	}
	if model.Start != nil {
		start := model.Start.In(a.loc)
		blockage.Start = &start
	}
	if model.End != nil {
		end := model.End.In(a.loc)
		blockage.End = &end
	}
	return blockage
}

func toPersistenceBlockage(blockage application.Blockage) persistence.Blockage {
	record := persistence.Blockage{
		ID:        blockage.ID,
		Start:     cloneTime(blockage.Start),
		End:       cloneTime(blockage.End),
		CreatedAt: blockage.CreatedAt,
	}
	if blockage.Weekday != nil {
		weekday := int(*blockage.Weekday)
		record.Weekday = &weekday
	}
	if reason := strings.TrimSpace(blockage.Reason); reason != "" {
		record.Reason = &reason
	}
	return record
}

func toApplicationProcedure(model persistence.Procedure) application.Procedure {
	return application.Procedure{
		ID:              model.ID,
		Name:            model.Name,
		Category:        model.Category,
		PriceCents:      model.PriceCents,
		DurationMinutes: model.DurationMinutes,
		Description:     cloneString(model.Description),
		IsPackage:       model.IsPackage,
		CreatedAt:       model.CreatedAt,
	}
}

func toPersistenceProcedure(procedure application.Procedure) persistence.Procedure {
	return persistence.Procedure{
		ID:              procedure.ID,
		Name:            procedure.Name,
		Category:        procedure.Category,
		PriceCents:      procedure.PriceCents,
		DurationMinutes: procedure.DurationMinutes,
		Description:     cloneString(procedure.Description),
		IsPackage:       procedure.IsPackage,
		CreatedAt:       procedure.CreatedAt,
	}
}

func toApplicationStaff(model persistence.StaffUser) application.StaffUser {
	return application.StaffUser{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		Disabled:    model.Disabled,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:          model.ID,
		UserID:      model.UserID,
		Token:       model.Token,
		Fingerprint: model.Fingerprint,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
		RevokedAt:   cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:          session.ID,
		UserID:      session.UserID,
		Token:       session.Token,
		Fingerprint: session.Fingerprint,
		ExpiresAt:   session.ExpiresAt,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
		RevokedAt:   cloneTime(session.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
