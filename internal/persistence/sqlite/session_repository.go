package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/salon-scheduler/internal/persistence"
)

const sessionColumns = `id, user_id, token, fingerprint, expires_at, revoked_at, created_at, updated_at`

// SessionRepository implements persistence.SessionRepository.
type SessionRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	loc    *time.Location
}

// NewSessionRepository creates the repository.
func NewSessionRepository(pool *ConnectionPool, loc *time.Location) *SessionRepository {
	return &SessionRepository{pool: pool, mapper: NewErrorMapper(), loc: loc}
}

// CreateSession stores a new session token for a staff user.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.Token = strings.TrimSpace(session.Token)
	session.Fingerprint = strings.TrimSpace(session.Fingerprint)
	if session.ID == "" || session.UserID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Token,
		session.Fingerprint,
		formatTime(session.ExpiresAt),
		nullTime(session.RevokedAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	return session, nil
}

// GetSession retrieves a session by token.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return r.get(ctx, r.pool.DB(), "token", token)
}

// UpdateSession rewrites the mutable fields of a session found by ID.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.Token = strings.TrimSpace(session.Token)
	if session.ID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	var updated persistence.Session
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, err := r.get(ctx, tx, "id", session.ID)
		if err != nil {
			return err
		}
		session.UserID = current.UserID
		session.CreatedAt = current.CreatedAt

		result, err := tx.ExecContext(ctx, `
			UPDATE sessions
			SET token = ?, fingerprint = ?, expires_at = ?, revoked_at = ?, updated_at = ?
			WHERE id = ?`,
			session.Token,
			strings.TrimSpace(session.Fingerprint),
			formatTime(session.ExpiresAt),
			nullTime(session.RevokedAt),
			formatTime(session.UpdatedAt),
			session.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := checkAffected(result); err != nil {
			return err
		}
		updated, err = r.get(ctx, tx, "id", session.ID)
		return err
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return updated, nil
}

// RevokeSession marks a session revoked.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE token = ?`,
		formatTime(revokedAt), formatTime(revokedAt), token,
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}
	if err := checkAffected(result); err != nil {
		return persistence.Session{}, err
	}
	return r.GetSession(ctx, token)
}

// DeleteExpiredSessions removes sessions that expired at or before reference.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.pool.DB().ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	return r.mapper.MapError(err)
}

func (r *SessionRepository) get(ctx context.Context, db execer, column, value string) (persistence.Session, error) {
	var session persistence.Session
	var expiresStr, createdStr, updatedStr string
	var revokedAt sql.NullString
	err := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE `+column+` = ?`, value).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.Fingerprint,
		&expiresStr,
		&revokedAt,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	if session.RevokedAt, err = parseNullTime(revokedAt, r.loc); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse revoked_at: %w", err)
	}
	if session.ExpiresAt, err = parseTime(expiresStr, r.loc); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdStr, r.loc); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = parseTime(updatedStr, r.loc); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return session, nil
}
