package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/salon-scheduler/internal/persistence"
)

// CreateBlockage inserts a closed period.
func (s *Store) CreateBlockage(ctx context.Context, blockage persistence.Blockage) error {
	var weekday *int32
	if blockage.Weekday != nil {
		day := int32(*blockage.Weekday)
		weekday = &day
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blockages (id, start_time, end_time, weekday, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		blockage.ID,
		utcPtr(blockage.Start),
		utcPtr(blockage.End),
		weekday,
		blockage.Reason,
		blockage.CreatedAt.UTC(),
	)
	return mapError("create blockage", err)
}

// DeleteBlockage removes a closed period.
func (s *Store) DeleteBlockage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM blockages WHERE id = $1`, id)
	if err != nil {
		return mapError("delete blockage", err)
	}
	return requireAffected(tag)
}

// ListBlockages returns blockages in the filter's range OR on its weekday.
func (s *Store) ListBlockages(ctx context.Context, filter persistence.BlockageFilter) ([]persistence.Blockage, error) {
	var (
		a      args
		groups []string
	)
	if filter.HasRange() {
		conds := []string{"start_time IS NOT NULL"}
		if filter.RangeEnd != nil {
			conds = append(conds, "start_time < "+a.add(filter.RangeEnd.UTC()))
		}
		if filter.RangeStart != nil {
			conds = append(conds, "end_time > "+a.add(filter.RangeStart.UTC()))
		}
		groups = append(groups, "("+strings.Join(conds, " AND ")+")")
	}
	switch {
	case filter.AllWeekdays:
		groups = append(groups, "(weekday IS NOT NULL)")
	case filter.Weekday != nil:
		groups = append(groups, "(weekday = "+a.add(int32(*filter.Weekday))+")")
	}

	query := `SELECT id, start_time, end_time, weekday, reason, created_at FROM blockages`
	if len(groups) > 0 {
		query += " WHERE " + strings.Join(groups, " OR ")
	}
	query += " ORDER BY start_time ASC NULLS LAST, weekday ASC, id ASC"

	rows, err := s.pool.Query(ctx, query, a.values...)
	if err != nil {
		return nil, mapError("list blockages", err)
	}
	defer rows.Close()

	blockages := make([]persistence.Blockage, 0)
	for rows.Next() {
		var (
			blockage   persistence.Blockage
			start, end *time.Time
			weekday    *int32
		)
		if err := rows.Scan(&blockage.ID, &start, &end, &weekday, &blockage.Reason, &blockage.CreatedAt); err != nil {
			return nil, mapError("scan blockage", err)
		}
		blockage.Start = s.localPtr(start)
		blockage.End = s.localPtr(end)
		if weekday != nil {
			day := int(*weekday)
			blockage.Weekday = &day
		}
		blockage.CreatedAt = blockage.CreatedAt.In(s.loc)
		blockages = append(blockages, blockage)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list blockages", err)
	}
	return blockages, nil
}

const procedureColumns = `id, name, category, price_cents, duration_minutes, description, is_package, created_at`

// CreateProcedure inserts a catalog entry.
func (s *Store) CreateProcedure(ctx context.Context, procedure persistence.Procedure) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO procedures (`+procedureColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		procedure.ID,
		procedure.Name,
		procedure.Category,
		procedure.PriceCents,
		procedure.DurationMinutes,
		procedure.Description,
		procedure.IsPackage,
		procedure.CreatedAt.UTC(),
	)
	return mapError("create procedure", err)
}

// GetProcedure retrieves a catalog entry by ID.
func (s *Store) GetProcedure(ctx context.Context, id string) (persistence.Procedure, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+procedureColumns+` FROM procedures WHERE id = $1`, id)
	procedure, err := s.scanProcedure(row)
	if err != nil {
		return persistence.Procedure{}, mapError("get procedure", err)
	}
	return procedure, nil
}

// ListProcedures returns the catalog ordered by category, price, then name.
func (s *Store) ListProcedures(ctx context.Context, filter persistence.ProcedureFilter) ([]persistence.Procedure, error) {
	var a args
	query := `SELECT ` + procedureColumns + ` FROM procedures`
	if filter.Category != "" {
		query += " WHERE category = " + a.add(filter.Category)
	}
	query += " ORDER BY category ASC, price_cents ASC, name ASC, id ASC"

	rows, err := s.pool.Query(ctx, query, a.values...)
	if err != nil {
		return nil, mapError("list procedures", err)
	}
	defer rows.Close()

	procedures := make([]persistence.Procedure, 0)
	for rows.Next() {
		procedure, err := s.scanProcedure(rows)
		if err != nil {
			return nil, mapError("scan procedure", err)
		}
		procedures = append(procedures, procedure)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list procedures", err)
	}
	return procedures, nil
}

func (s *Store) scanProcedure(row pgx.Row) (persistence.Procedure, error) {
	var procedure persistence.Procedure
	err := row.Scan(
		&procedure.ID,
		&procedure.Name,
		&procedure.Category,
		&procedure.PriceCents,
		&procedure.DurationMinutes,
		&procedure.Description,
		&procedure.IsPackage,
		&procedure.CreatedAt,
	)
	if err != nil {
		return persistence.Procedure{}, err
	}
	procedure.CreatedAt = procedure.CreatedAt.In(s.loc)
	return procedure, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
