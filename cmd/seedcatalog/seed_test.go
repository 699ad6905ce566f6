package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/salon-scheduler/internal/application"
	"github.com/example/salon-scheduler/internal/persistence/memory"
	"github.com/example/salon-scheduler/internal/storeadapter"
	"github.com/example/salon-scheduler/internal/testfixtures"
)

func newProcedureService() *application.ProcedureService {
	adapter := storeadapter.New(memory.New(), testfixtures.Location())
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	return application.NewProcedureService(adapter, testfixtures.NewIDGenerator("proc").NextFunc(), clock.NowFunc())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSeedBundledCatalogIsIdempotent(t *testing.T) {
	ctx := context.Background()
	service := newProcedureService()

	first, err := seed(ctx, bytes.NewReader(defaultCatalog), service, discardLogger())
	if err != nil {
		t.Fatalf("first seed returned error: %v", err)
	}
	if first.Created == 0 || first.Skipped != 0 {
		t.Fatalf("unexpected first report: %+v", first)
	}

	second, err := seed(ctx, bytes.NewReader(defaultCatalog), service, discardLogger())
	if err != nil {
		t.Fatalf("second seed returned error: %v", err)
	}
	if second.Created != 0 || second.Skipped != first.Created {
		t.Fatalf("expected every entry to be skipped, got %+v", second)
	}

	escovas, err := service.ListProcedures(ctx, "Escova")
	if err != nil {
		t.Fatalf("ListProcedures returned error: %v", err)
	}
	if len(escovas) != 3 {
		t.Fatalf("expected three escova sizes, got %d", len(escovas))
	}
}

func TestSeedConvertsPricesAndDerivesIDs(t *testing.T) {
	ctx := context.Background()
	service := newProcedureService()
	input := `[
		{"name": "Hidratação", "category": "Tratamento", "price": 89.9, "duration_minutes": 40},
		{"id": "selagem", "name": "Selagem", "category": "Química", "price": 10, "price_cents": 25000, "duration_minutes": 150}
	]`

	rep, err := seed(ctx, strings.NewReader(input), service, discardLogger())
	if err != nil {
		t.Fatalf("seed returned error: %v", err)
	}
	if rep.Created != 2 {
		t.Fatalf("expected two procedures, got %+v", rep)
	}

	tratamento, err := service.ListProcedures(ctx, "Tratamento")
	if err != nil || len(tratamento) != 1 {
		t.Fatalf("expected hidratação to be listed, got %v (%v)", tratamento, err)
	}
	if tratamento[0].PriceCents != 8990 {
		t.Fatalf("expected 8990 cents, got %d", tratamento[0].PriceCents)
	}
	if want := (entry{Name: " hidratação "}).params().ID; tratamento[0].ID != want {
		t.Fatalf("expected derived ID %s, got %s", want, tratamento[0].ID)
	}

	quimica, err := service.ListProcedures(ctx, "Química")
	if err != nil || len(quimica) != 1 || quimica[0].PriceCents != 25000 {
		t.Fatalf("expected price_cents to win, got %v (%v)", quimica, err)
	}
}

func TestSeedRejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	service := newProcedureService()

	if _, err := seed(ctx, strings.NewReader(`[{"name": "Sem duração", "category": "Cabelo"}]`), service, discardLogger()); err == nil {
		t.Fatal("expected missing duration to abort the seed")
	}
	if _, err := seed(ctx, strings.NewReader(`[{"nome": "x"}]`), service, discardLogger()); err == nil {
		t.Fatal("expected unknown fields to be rejected")
	}
}
