// Package sqlite implements persistence.Store on SQLite through modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/salon-scheduler/internal/persistence"
	"github.com/example/salon-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// timeLayout stores instants as UTC text so lexical order is chronological.
const timeLayout = "2006-01-02T15:04:05Z"

// Options configures Open.
type Options struct {
	Config migration.SQLiteConfig
	// Location is applied to every time read back. Defaults to time.Local.
	Location *time.Location
	Logger   *slog.Logger
}

// Storage bundles the SQLite repositories over one connection pool.
type Storage struct {
	pool *ConnectionPool
	*AppointmentRepository
	*BlockageRepository
	*ProcedureRepository
	*StaffRepository
	*SessionRepository
}

var _ persistence.Store = (*Storage)(nil)

// Open connects, applies pending migrations, and returns the store.
func Open(ctx context.Context, opts Options) (*Storage, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pool, err := NewConnectionPool(opts.Config)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, pool.DB(), opts.Logger); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &Storage{
		pool:                  pool,
		AppointmentRepository: NewAppointmentRepository(pool, opts.Location),
		BlockageRepository:    NewBlockageRepository(pool, opts.Location),
		ProcedureRepository:   NewProcedureRepository(pool, opts.Location),
		StaffRepository:       NewStaffRepository(pool, opts.Location),
		SessionRepository:     NewSessionRepository(pool, opts.Location),
	}, nil
}

// Migrate applies the embedded schema files.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	manager := migration.NewManager(
		migration.NewScanner(migrationFiles, "migrations"),
		migration.NewSQLiteExecutor(db),
		logger,
	)
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.In(loc), nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(value sql.NullString, loc *time.Location) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

// checkAffected turns a zero-row write into ErrNotFound.
func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
