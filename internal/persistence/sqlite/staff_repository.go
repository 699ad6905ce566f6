package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/salon-scheduler/internal/persistence"
)

const staffColumns = `id, email, display_name, password_hash, disabled, created_at, updated_at`

// StaffRepository implements persistence.StaffRepository.
type StaffRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	loc    *time.Location
}

// NewStaffRepository creates the repository.
func NewStaffRepository(pool *ConnectionPool, loc *time.Location) *StaffRepository {
	return &StaffRepository{pool: pool, mapper: NewErrorMapper(), loc: loc}
}

// CreateStaffUser inserts an account. Emails are stored lower-cased.
func (r *StaffRepository) CreateStaffUser(ctx context.Context, user persistence.StaffUser) error {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO staff_users (`+staffColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		normalizeEmail(user.Email),
		user.DisplayName,
		user.PasswordHash,
		user.Disabled,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetStaffUser retrieves an account by ID.
func (r *StaffRepository) GetStaffUser(ctx context.Context, id string) (persistence.StaffUser, error) {
	if id == "" {
		return persistence.StaffUser{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff_users WHERE id = ?`, id)
	return r.scan(row)
}

// GetStaffUserByEmail retrieves an account by email, ignoring case.
func (r *StaffRepository) GetStaffUserByEmail(ctx context.Context, email string) (persistence.StaffUser, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.StaffUser{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff_users WHERE email = ?`, normalized)
	return r.scan(row)
}

func (r *StaffRepository) scan(row rowScanner) (persistence.StaffUser, error) {
	var user persistence.StaffUser
	var createdStr, updatedStr string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.Disabled,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		return persistence.StaffUser{}, r.mapper.MapError(err)
	}
	if user.CreatedAt, err = parseTime(createdStr, r.loc); err != nil {
		return persistence.StaffUser{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedStr, r.loc); err != nil {
		return persistence.StaffUser{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
