package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/salon-scheduler/internal/persistence"
)

// BlockageRepository implements persistence.BlockageRepository.
type BlockageRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	loc    *time.Location
}

// NewBlockageRepository creates the repository.
func NewBlockageRepository(pool *ConnectionPool, loc *time.Location) *BlockageRepository {
	return &BlockageRepository{pool: pool, mapper: NewErrorMapper(), loc: loc}
}

// CreateBlockage inserts a closed period. The table CHECK enforces that
// exactly one of range or weekday is set.
func (r *BlockageRepository) CreateBlockage(ctx context.Context, blockage persistence.Blockage) error {
	var weekday sql.NullInt64
	if blockage.Weekday != nil {
		weekday = sql.NullInt64{Int64: int64(*blockage.Weekday), Valid: true}
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO blockages (id, start_time, end_time, weekday, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		blockage.ID,
		nullTime(blockage.Start),
		nullTime(blockage.End),
		weekday,
		nullString(blockage.Reason),
		formatTime(blockage.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// DeleteBlockage removes a closed period.
func (r *BlockageRepository) DeleteBlockage(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM blockages WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return checkAffected(result)
}

// ListBlockages returns blockages in the filter's range OR on its weekday.
func (r *BlockageRepository) ListBlockages(ctx context.Context, filter persistence.BlockageFilter) ([]persistence.Blockage, error) {
	query, args := buildBlockageQuery(filter)

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	blockages := make([]persistence.Blockage, 0)
	for rows.Next() {
		var (
			blockage           persistence.Blockage
			start, end, reason sql.NullString
			weekday            sql.NullInt64
			createdStr         string
		)
		if err := rows.Scan(&blockage.ID, &start, &end, &weekday, &reason, &createdStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if blockage.Start, err = parseNullTime(start, r.loc); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if blockage.End, err = parseNullTime(end, r.loc); err != nil {
			return nil, fmt.Errorf("failed to parse end_time: %w", err)
		}
		if weekday.Valid {
			day := int(weekday.Int64)
			blockage.Weekday = &day
		}
		blockage.Reason = stringPtr(reason)
		if blockage.CreatedAt, err = parseTime(createdStr, r.loc); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		blockages = append(blockages, blockage)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return blockages, nil
}

func buildBlockageQuery(filter persistence.BlockageFilter) (string, []any) {
	var (
		groups []string
		args   []any
	)

	if filter.HasRange() {
		rangeConds := []string{"start_time IS NOT NULL"}
		if filter.RangeEnd != nil {
			rangeConds = append(rangeConds, "start_time < ?")
			args = append(args, formatTime(*filter.RangeEnd))
		}
		if filter.RangeStart != nil {
			rangeConds = append(rangeConds, "end_time > ?")
			args = append(args, formatTime(*filter.RangeStart))
		}
		groups = append(groups, "("+strings.Join(rangeConds, " AND ")+")")
	}
	switch {
	case filter.AllWeekdays:
		groups = append(groups, "(weekday IS NOT NULL)")
	case filter.Weekday != nil:
		groups = append(groups, "(weekday = ?)")
		args = append(args, *filter.Weekday)
	}

	query := `SELECT id, start_time, end_time, weekday, reason, created_at FROM blockages`
	if len(groups) > 0 {
		query += " WHERE " + strings.Join(groups, " OR ")
	}
	query += " ORDER BY start_time IS NULL, start_time ASC, weekday ASC, id ASC"
	return query, args
}
