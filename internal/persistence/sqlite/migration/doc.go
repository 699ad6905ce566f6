// Package migration applies versioned SQL files to a SQLite database.
//
// Files are read from an fs.FS, usually an embed.FS compiled into the binary,
// and must be named {version}_{description}.sql (e.g. "001_init.sql").
// Applied versions are recorded in schema_migrations so each file runs once.
//
//	manager := migration.NewManager(migration.NewScanner(files, "."), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
