package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/aliuyar1234/taskboard/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var migrationsFS fs.ReadFileFS = migrations.FS

// RunMigrations applies all pending database migrations and returns the
// versions it applied.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	log.Info().Msg("Running database migrations...")

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	pending, err := PendingMigrations(ctx, pool)
	if err != nil {
		return nil, err
	}

	for _, version := range pending {
		start := time.Now()
		if err := applyMigration(ctx, pool, version); err != nil {
			return nil, fmt.Errorf("failed to apply migration %s: %w", version, err)
		}
		log.Info().Str("migration", version).Dur("duration", time.Since(start)).Msg("Applied migration")
	}

	log.Info().Int("applied", len(pending)).Msg("Database schema is up to date")
	return pending, nil
}

// PendingMigrations lists embedded migrations not yet recorded in
// schema_migrations, in application order.
func PendingMigrations(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	files, err := migrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}

	rows, err := pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	var pending []string
	for _, f := range files {
		if !done[f] {
			pending = append(pending, f)
		}
	}
	return pending, nil
}

func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// applyMigration runs one file and records it in the same transaction.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, version string) error {
	content, err := migrationsFS.ReadFile(version)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// Simple query protocol: migration files hold several statements.
	if _, err := tx.Conn().PgConn().Exec(ctx, string(content)).ReadAll(); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
