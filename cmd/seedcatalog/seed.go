package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/example/salon-scheduler/internal/application"
)

// catalogNamespace derives stable IDs for entries that omit one, so running
// the seed twice does not duplicate procedures.
var catalogNamespace = uuid.MustParse("6f1c6a0e-4b8e-4d6c-9a57-8f3e2b7d1c40")

// entry is one procedure in the seed file. Price is in reais; PriceCents wins
// when both are set.
type entry struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Price           *float64 `json:"price"`
	PriceCents      *int64   `json:"price_cents"`
	DurationMinutes int      `json:"duration_minutes"`
	Description     string   `json:"description"`
	IsPackage       bool     `json:"is_package"`
}

func (e entry) params() application.CreateProcedureParams {
	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = uuid.NewSHA1(catalogNamespace, []byte(strings.ToLower(strings.TrimSpace(e.Name)))).String()
	}
	var cents int64
	switch {
	case e.PriceCents != nil:
		cents = *e.PriceCents
	case e.Price != nil:
		cents = int64(math.Round(*e.Price * 100))
	}
	params := application.CreateProcedureParams{
		ID:              id,
		Name:            e.Name,
		Category:        e.Category,
		PriceCents:      cents,
		DurationMinutes: e.DurationMinutes,
		IsPackage:       e.IsPackage,
	}
	if description := strings.TrimSpace(e.Description); description != "" {
		params.Description = &description
	}
	return params
}

type procedureCreator interface {
	CreateProcedure(ctx context.Context, params application.CreateProcedureParams) (application.Procedure, error)
}

// report counts the outcome of a seed run.
type report struct {
	Created int
	Skipped int
}

// seed decodes a JSON array of entries from r and creates each procedure.
// Entries whose ID already exists are skipped; any other failure aborts.
func seed(ctx context.Context, r io.Reader, procedures procedureCreator, logger *slog.Logger) (report, error) {
	var entries []entry
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&entries); err != nil {
		return report{}, fmt.Errorf("decode catalog: %w", err)
	}

	var rep report
	for i, e := range entries {
		params := e.params()
		procedure, err := procedures.CreateProcedure(ctx, params)
		switch {
		case errors.Is(err, application.ErrAlreadyExists):
			logger.InfoContext(ctx, "procedure already present", "procedure_id", params.ID)
			rep.Skipped++
		case err != nil:
			return rep, fmt.Errorf("entry %d (%s): %w", i, params.Name, err)
		default:
			logger.InfoContext(ctx, "procedure created", "procedure_id", procedure.ID, "category", procedure.Category)
			rep.Created++
		}
	}
	return rep, nil
}
