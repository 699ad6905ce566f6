package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProcedureService exposes the service catalog.
type ProcedureService struct {
	procedures  ProcedureRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewProcedureService wires dependencies for catalog operations.
func NewProcedureService(procedures ProcedureRepository, idGenerator func() string, now func() time.Time) *ProcedureService {
	return NewProcedureServiceWithLogger(procedures, idGenerator, now, nil)
}

// NewProcedureServiceWithLogger wires dependencies with a specified logger.
func NewProcedureServiceWithLogger(procedures ProcedureRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProcedureService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProcedureService{
		procedures:  procedures,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// ListProcedures returns the catalog, optionally narrowed to one category,
// ordered by category and then price.
func (s *ProcedureService) ListProcedures(ctx context.Context, category string) ([]Procedure, error) {
	if s == nil {
		return nil, fmt.Errorf("ProcedureService is nil")
	}
	if s.procedures == nil {
		return nil, fmt.Errorf("procedure repository not configured")
	}
	procedures, err := s.procedures.ListProcedures(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, mapStoreError("list procedures", err)
	}
	return procedures, nil
}

// Categories returns the distinct catalog categories in catalog order.
func (s *ProcedureService) Categories(ctx context.Context) ([]string, error) {
	procedures, err := s.ListProcedures(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, p := range procedures {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	return categories, nil
}

// CreateProcedure validates and stores a catalog entry. An empty ID is
// generated.
func (s *ProcedureService) CreateProcedure(ctx context.Context, params CreateProcedureParams) (procedure Procedure, err error) {
	if s == nil {
		return Procedure{}, fmt.Errorf("ProcedureService is nil")
	}
	if s.procedures == nil {
		return Procedure{}, fmt.Errorf("procedure repository not configured")
	}

	logger := serviceLogger(ctx, s.logger, "ProcedureService", "CreateProcedure", "procedure_id", params.ID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "procedure rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "procedure created", "procedure_id", procedure.ID)
	}()

	vErr := &ValidationError{}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		vErr.add("name", "nome é obrigatório")
	}
	category := strings.TrimSpace(params.Category)
	if category == "" {
		vErr.add("category", "categoria é obrigatória")
	}
	if params.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duração deve ser positiva")
	}
	if params.PriceCents < 0 {
		vErr.add("price_cents", "preço não pode ser negativo")
	}
	if vErr.HasErrors() {
		return Procedure{}, vErr
	}

	id := strings.TrimSpace(params.ID)
	if id == "" {
		id = s.idGenerator()
	}
	procedure, err = s.procedures.CreateProcedure(ctx, Procedure{
		ID:              id,
		Name:            name,
		Category:        category,
		PriceCents:      params.PriceCents,
		DurationMinutes: params.DurationMinutes,
		Description:     params.Description,
		IsPackage:       params.IsPackage,
		CreatedAt:       s.now(),
	})
	if err != nil {
		return Procedure{}, mapStoreError("create procedure", err)
	}
	return procedure, nil
}
