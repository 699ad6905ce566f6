package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/salon-scheduler/internal/persistence"
)

const staffColumns = `id, email, display_name, password_hash, disabled, created_at, updated_at`

// CreateStaffUser inserts an account. Emails are stored lower-cased.
func (s *Store) CreateStaffUser(ctx context.Context, user persistence.StaffUser) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO staff_users (`+staffColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.DisplayName,
		user.PasswordHash,
		user.Disabled,
		user.CreatedAt.UTC(),
		user.UpdatedAt.UTC(),
	)
	return mapError("create staff user", err)
}

// GetStaffUser retrieves an account by ID.
func (s *Store) GetStaffUser(ctx context.Context, id string) (persistence.StaffUser, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff_users WHERE id = $1`, id)
	return s.scanStaff(row)
}

// GetStaffUserByEmail retrieves an account by email, ignoring case.
func (s *Store) GetStaffUserByEmail(ctx context.Context, email string) (persistence.StaffUser, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff_users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
	return s.scanStaff(row)
}

func (s *Store) scanStaff(row pgx.Row) (persistence.StaffUser, error) {
	var user persistence.StaffUser
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Disabled, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return persistence.StaffUser{}, mapError("get staff user", err)
	}
	user.CreatedAt = user.CreatedAt.In(s.loc)
	user.UpdatedAt = user.UpdatedAt.In(s.loc)
	return user, nil
}

const sessionColumns = `id, user_id, token, fingerprint, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a new session token.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.Token = strings.TrimSpace(session.Token)
	if session.ID == "" || session.UserID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID,
		session.UserID,
		session.Token,
		strings.TrimSpace(session.Fingerprint),
		session.ExpiresAt.UTC(),
		utcPtr(session.RevokedAt),
		session.CreatedAt.UTC(),
		session.UpdatedAt.UTC(),
	)
	if err != nil {
		return persistence.Session{}, mapError("create session", err)
	}
	return session, nil
}

// GetSession retrieves a session by token.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, strings.TrimSpace(token))
	return s.scanSession(row)
}

// UpdateSession rewrites the mutable fields of a session found by ID.
func (s *Store) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE sessions
		SET token = $2, fingerprint = $3, expires_at = $4, revoked_at = $5, updated_at = $6
		WHERE id = $1
		RETURNING `+sessionColumns,
		session.ID,
		strings.TrimSpace(session.Token),
		strings.TrimSpace(session.Fingerprint),
		session.ExpiresAt.UTC(),
		utcPtr(session.RevokedAt),
		session.UpdatedAt.UTC(),
	)
	return s.scanSession(row)
}

// RevokeSession marks a session revoked.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE sessions SET revoked_at = $2, updated_at = $2
		WHERE token = $1
		RETURNING `+sessionColumns,
		strings.TrimSpace(token),
		revokedAt.UTC(),
	)
	return s.scanSession(row)
}

// DeleteExpiredSessions removes sessions that expired at or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, reference.UTC())
	return mapError("delete expired sessions", err)
}

func (s *Store) scanSession(row pgx.Row) (persistence.Session, error) {
	var session persistence.Session
	var revokedAt *time.Time
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.Fingerprint,
		&session.ExpiresAt,
		&revokedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return persistence.Session{}, mapError("scan session", err)
	}
	session.RevokedAt = s.localPtr(revokedAt)
	session.ExpiresAt = session.ExpiresAt.In(s.loc)
	session.CreatedAt = session.CreatedAt.In(s.loc)
	session.UpdatedAt = session.UpdatedAt.In(s.loc)
	return session, nil
}
