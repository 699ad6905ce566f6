// Command seedcatalog loads procedures from a JSON file into the configured
// store. Without -file it loads the bundled default catalog.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/salon-scheduler/internal/application"
	"github.com/example/salon-scheduler/internal/config"
	"github.com/example/salon-scheduler/internal/logging"
	"github.com/example/salon-scheduler/internal/persistence"
	"github.com/example/salon-scheduler/internal/persistence/postgres"
	"github.com/example/salon-scheduler/internal/persistence/sqlite"
	"github.com/example/salon-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/salon-scheduler/internal/storeadapter"
)

//go:embed catalog.json
var defaultCatalog []byte

func main() {
	envFile := flag.String("env", ".env", "dotenv file read before the environment")
	file := flag.String("file", "", "JSON catalog to load; the bundled catalog when empty")
	flag.Parse()

	cfg, err := config.LoadWithDotenv(*envFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *file, logger); err != nil {
		logger.Error("catalog seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, file string, logger *slog.Logger) error {
	var source io.Reader = bytes.NewReader(defaultCatalog)
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()
		source = f
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close store", "error", cerr)
		}
	}()

	procedures := application.NewProcedureServiceWithLogger(storeadapter.New(store, cfg.Location), uuid.NewString, time.Now, logger)
	rep, err := seed(ctx, source, procedures, logger)
	if err != nil {
		return err
	}
	logger.Info("catalog seeded", "created", rep.Created, "skipped", rep.Skipped)
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, sqlite.Options{
			Config:   migration.DefaultSQLiteConfig(cfg.SQLiteDSN),
			Location: cfg.Location,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("store %q cannot be seeded", cfg.Store)
	}
}
