package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/salon-scheduler/internal/persistence"
)

const procedureColumns = `id, name, category, price_cents, duration_minutes, description, is_package, created_at`

// ProcedureRepository implements persistence.ProcedureRepository.
type ProcedureRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	loc    *time.Location
}

// NewProcedureRepository creates the repository.
func NewProcedureRepository(pool *ConnectionPool, loc *time.Location) *ProcedureRepository {
	return &ProcedureRepository{pool: pool, mapper: NewErrorMapper(), loc: loc}
}

// CreateProcedure inserts a catalog entry.
func (r *ProcedureRepository) CreateProcedure(ctx context.Context, procedure persistence.Procedure) error {
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO procedures (`+procedureColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		procedure.ID,
		procedure.Name,
		procedure.Category,
		procedure.PriceCents,
		procedure.DurationMinutes,
		nullString(procedure.Description),
		procedure.IsPackage,
		formatTime(procedure.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetProcedure retrieves a catalog entry by ID.
func (r *ProcedureRepository) GetProcedure(ctx context.Context, id string) (persistence.Procedure, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+procedureColumns+` FROM procedures WHERE id = ?`, id)
	return r.scan(row)
}

// ListProcedures returns the catalog ordered by category, price, then name.
func (r *ProcedureRepository) ListProcedures(ctx context.Context, filter persistence.ProcedureFilter) ([]persistence.Procedure, error) {
	query := `SELECT ` + procedureColumns + ` FROM procedures`
	var args []any
	if filter.Category != "" {
		query += ` WHERE category = ?`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY category ASC, price_cents ASC, name ASC, id ASC`

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	procedures := make([]persistence.Procedure, 0)
	for rows.Next() {
		procedure, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		procedures = append(procedures, procedure)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return procedures, nil
}

func (r *ProcedureRepository) scan(row rowScanner) (persistence.Procedure, error) {
	var procedure persistence.Procedure
	var description sql.NullString
	var createdStr string
	err := row.Scan(
		&procedure.ID,
		&procedure.Name,
		&procedure.Category,
		&procedure.PriceCents,
		&procedure.DurationMinutes,
		&description,
		&procedure.IsPackage,
		&createdStr,
	)
	if err != nil {
		return persistence.Procedure{}, r.mapper.MapError(err)
	}
	procedure.Description = stringPtr(description)
	if procedure.CreatedAt, err = parseTime(createdStr, r.loc); err != nil {
		return persistence.Procedure{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return procedure, nil
}
