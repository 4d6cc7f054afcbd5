package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DB is the subset of *sql.DB (and *sqlx.DB) the migrator needs.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type migrationStep struct {
	Name string
	SQL  string
}

// Timestamps are fixed-width UTC text so that lexical order is chronological on every engine.
var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id         TEXT PRIMARY KEY,
  collection TEXT NOT NULL,
  data       TEXT NOT NULL,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
	},
	{
		Name: "create_index_documents_collection",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection);`,
	},
	{
		Name: "create_index_documents_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at);`,
	},
	{
		Name: "create_index_documents_collection_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_collection_created_at ON documents (collection, created_at);`,
	},
}

const dropDocuments = `DROP TABLE IF EXISTS documents`

func sentinelQuery(driver string) string {
	if driver == "postgres" {
		return "SELECT to_regclass('public.documents') IS NOT NULL"
	}
	return "SELECT COUNT(*) > 0 FROM sqlite_master WHERE type = 'table' AND name = 'documents'"
}

// EnsureMigrated checks if the 'documents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db DB, driver string, logger zerolog.Logger) error {
	start := time.Now()
	logger = logger.With().Str("component", "database").Str("db_driver", driver).Logger()

	logger.Info().Str("event", "db_migration_check").Str("status", "starting").Msg("checking schema")

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery(driver)).Scan(&exists); err != nil {
		logger.Error().
			Err(err).
			Str("event", "db_migration_failed").
			Str("status", "error").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logger.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	return apply(ctx, db, logger, start)
}

// Recreate drops the documents table and rebuilds the schema. Every collection is lost.
func Recreate(ctx context.Context, db DB, driver string, logger zerolog.Logger) error {
	start := time.Now()
	logger = logger.With().Str("component", "database").Str("db_driver", driver).Logger()

	if _, err := db.ExecContext(ctx, dropDocuments); err != nil {
		logger.Error().Err(err).Str("event", "db_reset_failed").Str("status", "error").Msg("drop documents failed")
		return fmt.Errorf("drop documents: %w", err)
	}
	logger.Warn().Str("event", "db_reset").Str("status", "in_progress").Msg("documents table dropped")

	return apply(ctx, db, logger, start)
}

func apply(ctx context.Context, db DB, logger zerolog.Logger, start time.Time) error {
	logger.Info().Str("event", "db_migration_start").Str("status", "in_progress").Msg("applying schema")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logger.Error().
				Err(err).
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logger.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("migration step applied")
	}

	logger.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("schema ready")
	return nil
}
