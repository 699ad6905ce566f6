package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager applies pending migrations in version order.
type Manager struct {
	source   Source
	executor Executor
	logger   *slog.Logger
}

// NewManager wires a source and an executor.
func NewManager(source Source, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{source: source, executor: executor, logger: logger.With("component", "migration")}
}

// Run applies every pending migration. It stops at the first failure.
func (m *Manager) Run(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	if len(status.Pending) == 0 {
		m.logger.InfoContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations", "from_version", status.CurrentVersion, "pending", len(status.Pending))
	for _, migration := range status.Pending {
		started := time.Now()
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "path", migration.Path, "error", err)
			return newMigrationError(migration.Version, migration.Path, "execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		elapsed := time.Since(started)
		if err := m.executor.RecordMigration(ctx, migration, elapsed); err != nil {
			return err
		}
		m.logger.InfoContext(ctx, "migration applied", "version", migration.Version, "description", migration.Description, "duration_ms", elapsed.Milliseconds())
	}
	return nil
}

// Status compares the available files with schema_migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := m.source.Scan()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return Status{}, err
	}
	if err := validateSequence(available, applied); err != nil {
		return Status{}, err
	}

	appliedSet := make(map[string]AppliedMigration, len(applied))
	status := Status{Applied: applied}
	for _, row := range applied {
		appliedSet[row.Version] = row
		if versionNumber(row.Version) > versionNumber(status.CurrentVersion) {
			status.CurrentVersion = row.Version
		}
	}
	for _, migration := range available {
		row, ok := appliedSet[migration.Version]
		if !ok {
			status.Pending = append(status.Pending, migration)
			continue
		}
		if row.Checksum != "" && row.Checksum != migration.Checksum {
			return Status{}, newMigrationError(migration.Version, migration.Path, "verify checksum", ErrChecksumMismatch)
		}
	}
	return status, nil
}

// validateSequence rejects gaps in the file versions and applied versions
// without a file.
func validateSequence(available []Migration, applied []AppliedMigration) error {
	present := make(map[int]bool, len(available))
	for i, migration := range available {
		n := versionNumber(migration.Version)
		present[n] = true
		if i > 0 && n != versionNumber(available[i-1].Version)+1 {
			return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, versionNumber(available[i-1].Version)+1)
		}
	}
	for _, row := range applied {
		if !present[versionNumber(row.Version)] {
			return fmt.Errorf("%w: applied migration %s has no file", ErrVersionConflict, row.Version)
		}
	}
	return nil
}
