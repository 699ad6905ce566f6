package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/salon-scheduler/internal/persistence"
	"github.com/example/salon-scheduler/internal/persistence/sqlite"
	"github.com/example/salon-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/salon-scheduler/internal/storeadapter"
)

// SQLiteHarness provides a migrated SQLite store in a temporary directory for
// integration-style tests. Times read back are in Location().
type SQLiteHarness struct {
	Store   *sqlite.Storage
	Adapter *storeadapter.Adapter

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a fresh database file. Close is also
// registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scheduler.db")
	storage, err := sqlite.Open(context.Background(), sqlite.Options{
		Config:   migration.DefaultSQLiteConfig(path),
		Location: Location(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store:   storage,
		Adapter: storeadapter.New(storage, Location()),
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// Seed writes the given catalog, appointments and blockages, failing tb on
// the first error. Appointments are inserted without the overlap guard.
func Seed(tb testing.TB, store persistence.Store, procedures []ProcedureFixture, appointments []AppointmentFixture, blockages []BlockageFixture) {
	tb.Helper()

	ctx := context.Background()
	for _, procedure := range procedures {
		if err := store.CreateProcedure(ctx, procedure.Persistence()); err != nil {
			tb.Fatalf("seed procedure %s: %v", procedure.ID, err)
		}
	}
	for _, appt := range appointments {
		if err := store.CreateAppointment(ctx, appt.Persistence(), false); err != nil {
			tb.Fatalf("seed appointment %s: %v", appt.ID, err)
		}
	}
	for _, blockage := range blockages {
		if err := store.CreateBlockage(ctx, blockage.Persistence()); err != nil {
			tb.Fatalf("seed blockage %s: %v", blockage.ID, err)
		}
	}
}
