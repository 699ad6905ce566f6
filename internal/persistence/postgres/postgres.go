// Package postgres implements persistence.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/salon-scheduler/internal/persistence"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock pools satisfy it.
type Pool interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Schema creates every table. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS procedures (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
	duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
	description TEXT,
	is_package BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_procedures_listing ON procedures (category, price_cents, name);

CREATE TABLE IF NOT EXISTS appointments (
	id TEXT PRIMARY KEY,
	client_name TEXT NOT NULL,
	client_phone TEXT NOT NULL DEFAULT '',
	procedure_id TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled', 'manual_fit')),
	duration_minutes INTEGER NOT NULL DEFAULT 0,
	price_cents BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CHECK (end_time > start_time)
);
CREATE INDEX IF NOT EXISTS idx_appointments_start ON appointments (start_time);
CREATE INDEX IF NOT EXISTS idx_appointments_phone ON appointments (client_phone, start_time);

CREATE TABLE IF NOT EXISTS blockages (
	id TEXT PRIMARY KEY,
	start_time TIMESTAMPTZ,
	end_time TIMESTAMPTZ,
	weekday INTEGER CHECK (weekday BETWEEN 0 AND 6),
	reason TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	CHECK (
		(start_time IS NOT NULL AND end_time IS NOT NULL AND weekday IS NULL AND end_time > start_time)
		OR (start_time IS NULL AND end_time IS NULL AND weekday IS NOT NULL)
	)
);

CREATE TABLE IF NOT EXISTS staff_users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	disabled BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES staff_users (id) ON DELETE CASCADE,
	token TEXT NOT NULL UNIQUE,
	fingerprint TEXT NOT NULL DEFAULT '',
	expires_at TIMESTAMPTZ NOT NULL,
	revoked_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// Store implements persistence.Store.
type Store struct {
	pool       Pool
	loc        *time.Location
	maxRetries int
}

var _ persistence.Store = (*Store)(nil)

// Open connects with pgxpool and applies Schema.
func Open(ctx context.Context, databaseURL string, loc *time.Location) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	store := New(pool, loc)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing pool. Times are returned in loc, or time.Local.
func New(pool Pool, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{pool: pool, loc: loc, maxRetries: 3}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNotNullViolation     = "23502"
	codeSerializationFailure = "40001"
)

// mapError translates pgx errors into persistence sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("postgres: %s: %w", op, persistence.ErrDuplicate)
		case codeForeignKeyViolation:
			return fmt.Errorf("postgres: %s: %w", op, persistence.ErrForeignKeyViolation)
		case codeCheckViolation, codeNotNullViolation:
			return fmt.Errorf("postgres: %s: %w", op, persistence.ErrConstraintViolation)
		}
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeSerializationFailure
}

func requireAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// args collects positional parameters and hands out $n placeholders.
type args struct {
	values []any
}

func (a *args) add(value any) string {
	a.values = append(a.values, value)
	return fmt.Sprintf("$%d", len(a.values))
}

func (a *args) list(n int, value func(i int) any) string {
	marks := make([]string, n)
	for i := 0; i < n; i++ {
		marks[i] = a.add(value(i))
	}
	return strings.Join(marks, ", ")
}

func (s *Store) localPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	local := t.In(s.loc)
	return &local
}
