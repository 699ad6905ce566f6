package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/example/salon-scheduler/internal/persistence"
)

const appointmentColumns = `id, client_name, client_phone, procedure_id, start_time, end_time, status,
	duration_minutes, price_cents, created_at, updated_at`

const insertAppointment = `
	INSERT INTO appointments (` + appointmentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const overlapQuery = `
	SELECT 1 FROM appointments
	WHERE status <> 'cancelled' AND start_time < $1 AND end_time > $2
	LIMIT 1`

func appointmentArgs(appt persistence.Appointment) []any {
	return []any{
		appt.ID,
		appt.ClientName,
		appt.ClientPhone,
		appt.ProcedureID,
		appt.Start.UTC(),
		appt.End.UTC(),
		string(appt.Status),
		appt.DurationMinutes,
		appt.PriceCents,
		appt.CreatedAt.UTC(),
		appt.UpdatedAt.UTC(),
	}
}

// CreateAppointment inserts a booking. Guarded inserts run the overlap query
// and the insert in one SERIALIZABLE transaction, retrying serialization
// failures so the loser observes the winner's row.
func (s *Store) CreateAppointment(ctx context.Context, appt persistence.Appointment, guard bool) error {
	if !guard {
		_, err := s.pool.Exec(ctx, insertAppointment, appointmentArgs(appt)...)
		return mapError("create appointment", err)
	}

	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err = s.guardedInsert(ctx, appt)
		if !isSerializationFailure(err) {
			break
		}
	}
	if errors.Is(err, persistence.ErrOverlap) {
		return err
	}
	return mapError("create appointment", err)
}

func (s *Store) guardedInsert(ctx context.Context, appt persistence.Appointment) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var exists int
	err = tx.QueryRow(ctx, overlapQuery, appt.End.UTC(), appt.Start.UTC()).Scan(&exists)
	switch {
	case err == nil:
		return persistence.ErrOverlap
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	if _, err = tx.Exec(ctx, insertAppointment, appointmentArgs(appt)...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetAppointment retrieves a booking by ID.
func (s *Store) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := s.scanAppointment(row)
	if err != nil {
		return persistence.Appointment{}, mapError("get appointment", err)
	}
	return appt, nil
}

// UpdateAppointment rewrites the mutable columns of a booking.
func (s *Store) UpdateAppointment(ctx context.Context, appt persistence.Appointment) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE appointments
		SET client_name = $2, client_phone = $3, procedure_id = $4, start_time = $5, end_time = $6,
			status = $7, duration_minutes = $8, price_cents = $9, updated_at = $10
		WHERE id = $1`,
		appt.ID,
		appt.ClientName,
		appt.ClientPhone,
		appt.ProcedureID,
		appt.Start.UTC(),
		appt.End.UTC(),
		string(appt.Status),
		appt.DurationMinutes,
		appt.PriceCents,
		appt.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapError("update appointment", err)
	}
	return requireAffected(tag)
}

// ListAppointments returns bookings matching filter ordered by start time.
func (s *Store) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	query, params := buildAppointmentQuery(filter)
	rows, err := s.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, mapError("list appointments", err)
	}
	defer rows.Close()

	appointments := make([]persistence.Appointment, 0)
	for rows.Next() {
		appt, err := s.scanAppointment(rows)
		if err != nil {
			return nil, mapError("scan appointment", err)
		}
		appointments = append(appointments, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list appointments", err)
	}
	return appointments, nil
}

func buildAppointmentQuery(filter persistence.AppointmentFilter) (string, []any) {
	var (
		a          args
		conditions []string
	)
	if n := len(filter.Statuses); n > 0 {
		conditions = append(conditions, "status IN ("+a.list(n, func(i int) any { return string(filter.Statuses[i]) })+")")
	}
	if n := len(filter.ExcludeStatuses); n > 0 {
		conditions = append(conditions, "status NOT IN ("+a.list(n, func(i int) any { return string(filter.ExcludeStatuses[i]) })+")")
	}
	if filter.StartsFrom != nil {
		conditions = append(conditions, "start_time >= "+a.add(filter.StartsFrom.UTC()))
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "start_time < "+a.add(filter.StartsBefore.UTC()))
	}
	if filter.EndsAfter != nil {
		conditions = append(conditions, "end_time > "+a.add(filter.EndsAfter.UTC()))
	}
	if filter.EndsUntil != nil {
		conditions = append(conditions, "end_time <= "+a.add(filter.EndsUntil.UTC()))
	}
	if filter.ClientPhone != "" {
		conditions = append(conditions, "client_phone = "+a.add(filter.ClientPhone))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.Descending {
		query += " ORDER BY start_time DESC, id ASC"
	} else {
		query += " ORDER BY start_time ASC, id ASC"
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	return query, a.values
}

func (s *Store) scanAppointment(row pgx.Row) (persistence.Appointment, error) {
	var appt persistence.Appointment
	var status string
	err := row.Scan(
		&appt.ID,
		&appt.ClientName,
		&appt.ClientPhone,
		&appt.ProcedureID,
		&appt.Start,
		&appt.End,
		&status,
		&appt.DurationMinutes,
		&appt.PriceCents,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return persistence.Appointment{}, err
	}
	appt.Status = persistence.AppointmentStatus(status)
	appt.Start = appt.Start.In(s.loc)
	appt.End = appt.End.In(s.loc)
	appt.CreatedAt = appt.CreatedAt.In(s.loc)
	appt.UpdatedAt = appt.UpdatedAt.In(s.loc)
	return appt, nil
}
