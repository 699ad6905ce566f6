package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// BlockageService manages periods when the salon takes no bookings.
type BlockageService struct {
	blockages   BlockageRepository
	idGenerator func() string
	now         func() time.Time
	loc         *time.Location
	logger      *slog.Logger
}

// NewBlockageService wires dependencies for blockage operations.
func NewBlockageService(blockages BlockageRepository, idGenerator func() string, now func() time.Time, opts ...ServiceOption) *BlockageService {
	return NewBlockageServiceWithLogger(blockages, idGenerator, now, nil, opts...)
}

// NewBlockageServiceWithLogger wires dependencies with a specified logger.
func NewBlockageServiceWithLogger(blockages BlockageRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger, opts ...ServiceOption) *BlockageService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	o := buildOptions(opts)
	return &BlockageService{
		blockages:   blockages,
		idGenerator: idGenerator,
		now:         now,
		loc:         o.location,
		logger:      defaultLogger(logger),
	}
}

func (s *BlockageService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BlockageService", operation, attrs...)
}

// CreateBlockage closes either a time range or a weekday.
func (s *BlockageService) CreateBlockage(ctx context.Context, params CreateBlockageParams) (blockage Blockage, err error) {
	if s == nil {
		return Blockage{}, fmt.Errorf("BlockageService is nil")
	}
	if s.blockages == nil {
		return Blockage{}, fmt.Errorf("blockage repository not configured")
	}

	logger := s.loggerWith(ctx, "CreateBlockage")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "blockage rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "blockage created", "blockage_id", blockage.ID, "recurring", blockage.Weekday != nil)
	}()

	vErr := validateBlockage(params)
	if vErr.HasErrors() {
		return Blockage{}, vErr
	}

	candidate := Blockage{
		ID:        s.idGenerator(),
		Reason:    strings.TrimSpace(params.Reason),
		CreatedAt: s.now(),
	}
	if params.Weekday != nil {
		weekday := time.Weekday(*params.Weekday)
		candidate.Weekday = &weekday
	} else {
		start, end := params.Start.In(s.loc), params.End.In(s.loc)
		candidate.Start, candidate.End = &start, &end
	}

	blockage, err = s.blockages.CreateBlockage(ctx, candidate)
	if err != nil {
		return Blockage{}, mapStoreError("create blockage", err)
	}
	return blockage, nil
}

// DeleteBlockage removes a blockage. Deleting an unknown ID succeeds.
func (s *BlockageService) DeleteBlockage(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("BlockageService is nil")
	}
	if s.blockages == nil {
		return fmt.Errorf("blockage repository not configured")
	}
	if strings.TrimSpace(id) == "" {
		return newValidationError("id", "identificador é obrigatório")
	}

	logger := s.loggerWith(ctx, "DeleteBlockage", "blockage_id", id)
	if err := s.blockages.DeleteBlockage(ctx, id); err != nil {
		if isNotFoundError(err) {
			logger.DebugContext(ctx, "blockage already absent")
			return nil
		}
		err = mapStoreError("delete blockage", err)
		logger.ErrorContext(ctx, "failed to delete blockage", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "blockage deleted")
	return nil
}

// ListBlockages returns ranged blockages overlapping [from, to) together with
// every weekday rule.
func (s *BlockageService) ListBlockages(ctx context.Context, from, to time.Time) ([]Blockage, error) {
	if s == nil {
		return nil, fmt.Errorf("BlockageService is nil")
	}
	if s.blockages == nil {
		return nil, fmt.Errorf("blockage repository not configured")
	}
	if !to.After(from) {
		return nil, newValidationError("to", "fim deve ser posterior ao início")
	}

	blockages, err := s.blockages.ListBlockages(ctx, BlockageQuery{
		RangeStart:  &from,
		RangeEnd:    &to,
		AllWeekdays: true,
	})
	if err != nil {
		return nil, mapStoreError("list blockages", err)
	}
	return blockages, nil
}

func validateBlockage(params CreateBlockageParams) *ValidationError {
	vErr := &ValidationError{}
	hasRange := params.Start != nil || params.End != nil
	hasWeekday := params.Weekday != nil

	switch {
	case hasRange && hasWeekday:
		vErr.add("weekday", "informe um período ou um dia da semana, não ambos")
	case !hasRange && !hasWeekday:
		vErr.add("start", "informe um período ou um dia da semana")
	case hasWeekday:
		if *params.Weekday < int(time.Sunday) || *params.Weekday > int(time.Saturday) {
			vErr.add("weekday", "dia da semana deve estar entre 0 e 6")
		}
	default:
		if params.Start == nil {
			vErr.add("start", "início é obrigatório")
		}
		if params.End == nil {
			vErr.add("end", "fim é obrigatório")
		}
		if params.Start != nil && params.End != nil && !params.End.After(*params.Start) {
			vErr.add("end", "o término deve ser posterior ao início")
		}
	}
	return vErr
}
