package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/salon-scheduler/internal/persistence"
)

const appointmentColumns = `id, client_name, client_phone, procedure_id, start_time, end_time, status,
	duration_minutes, price_cents, created_at, updated_at`

// AppointmentRepository implements persistence.AppointmentRepository.
type AppointmentRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
	loc    *time.Location
}

// NewAppointmentRepository creates the repository.
func NewAppointmentRepository(pool *ConnectionPool, loc *time.Location) *AppointmentRepository {
	return &AppointmentRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		loc:    loc,
	}
}

// CreateAppointment inserts a booking. A guarded insert checks for overlapping
// non-cancelled rows under BEGIN IMMEDIATE and fails with ErrOverlap.
func (r *AppointmentRepository) CreateAppointment(ctx context.Context, appt persistence.Appointment, guard bool) error {
	if appt.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !guard {
		return r.insert(ctx, r.pool.DB(), appt)
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithImmediateTransaction(ctx, func(conn execer) error {
			var exists int
			err := conn.QueryRowContext(ctx, `
				SELECT 1 FROM appointments
				WHERE status != ? AND start_time < ? AND end_time > ?
				LIMIT 1`,
				string(persistence.StatusCancelled), formatTime(appt.End), formatTime(appt.Start),
			).Scan(&exists)
			switch {
			case err == nil:
				return persistence.ErrOverlap
			case !errors.Is(err, sql.ErrNoRows):
				return r.mapper.MapError(err)
			}
			return r.insert(ctx, conn, appt)
		})
	})
}

func (r *AppointmentRepository) insert(ctx context.Context, db execer, appt persistence.Appointment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		appt.ID,
		appt.ClientName,
		appt.ClientPhone,
		appt.ProcedureID,
		formatTime(appt.Start),
		formatTime(appt.End),
		string(appt.Status),
		appt.DurationMinutes,
		appt.PriceCents,
		formatTime(appt.CreatedAt),
		formatTime(appt.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetAppointment retrieves a booking by ID.
func (r *AppointmentRepository) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	appt, err := r.scan(row)
	if err != nil {
		return persistence.Appointment{}, err
	}
	return appt, nil
}

// UpdateAppointment rewrites every mutable column of a booking.
func (r *AppointmentRepository) UpdateAppointment(ctx context.Context, appt persistence.Appointment) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE appointments
		SET client_name = ?, client_phone = ?, procedure_id = ?, start_time = ?, end_time = ?,
			status = ?, duration_minutes = ?, price_cents = ?, updated_at = ?
		WHERE id = ?`,
		appt.ClientName,
		appt.ClientPhone,
		appt.ProcedureID,
		formatTime(appt.Start),
		formatTime(appt.End),
		string(appt.Status),
		appt.DurationMinutes,
		appt.PriceCents,
		formatTime(appt.UpdatedAt),
		appt.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return checkAffected(result)
}

// ListAppointments returns bookings matching filter ordered by start time.
func (r *AppointmentRepository) ListAppointments(ctx context.Context, filter persistence.AppointmentFilter) ([]persistence.Appointment, error) {
	query, args := buildAppointmentQuery(filter)

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	appointments := make([]persistence.Appointment, 0)
	for rows.Next() {
		appt, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return appointments, nil
}

func buildAppointmentQuery(filter persistence.AppointmentFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if len(filter.ExcludeStatuses) > 0 {
		conditions = append(conditions, "status NOT IN ("+placeholders(len(filter.ExcludeStatuses))+")")
		for _, status := range filter.ExcludeStatuses {
			args = append(args, string(status))
		}
	}
	if filter.StartsFrom != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, formatTime(*filter.StartsFrom))
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, formatTime(*filter.StartsBefore))
	}
	if filter.EndsAfter != nil {
		conditions = append(conditions, "end_time > ?")
		args = append(args, formatTime(*filter.EndsAfter))
	}
	if filter.EndsUntil != nil {
		conditions = append(conditions, "end_time <= ?")
		args = append(args, formatTime(*filter.EndsUntil))
	}
	if filter.ClientPhone != "" {
		conditions = append(conditions, "client_phone = ?")
		args = append(args, filter.ClientPhone)
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
	return query, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *AppointmentRepository) scan(row rowScanner) (persistence.Appointment, error) {
	var appt persistence.Appointment
	var status, startStr, endStr, createdStr, updatedStr string
	err := row.Scan(
		&appt.ID,
		&appt.ClientName,
		&appt.ClientPhone,
		&appt.ProcedureID,
		&startStr,
		&endStr,
		&status,
		&appt.DurationMinutes,
		&appt.PriceCents,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Appointment{}, r.mapper.MapError(err)
	}
	appt.Status = persistence.AppointmentStatus(status)

	if appt.Start, err = parseTime(startStr, r.loc); err != nil {
		return persistence.Appointment{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if appt.End, err = parseTime(endStr, r.loc); err != nil {
		return persistence.Appointment{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if appt.CreatedAt, err = parseTime(createdStr, r.loc); err != nil {
		return persistence.Appointment{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if appt.UpdatedAt, err = parseTime(updatedStr, r.loc); err != nil {
		return persistence.Appointment{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return appt, nil
}
