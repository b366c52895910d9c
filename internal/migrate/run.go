// Package migrate applies the embedded SQL schema migrations.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

const ledgerTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// Run applies every embedded migration that has not been recorded in
// schema_migrations yet, in lexical filename order. Calling it against an
// up-to-date database is a no-op.
func Run(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ledgerTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, name := range migrationFiles() {
		if err := apply(ctx, db, name); err != nil {
			return err
		}
	}
	return nil
}

func migrationFiles() []string {
	entries, err := schemaFS.ReadDir("migrations")
	if err != nil {
		// The directory is embedded at build time; a read failure here
		// means the package itself is broken.
		panic(fmt.Sprintf("read embedded migrations: %v", err))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// apply runs a single migration file inside a transaction together with its
// ledger row, so a failed migration leaves no partial schema behind.
func apply(ctx context.Context, db *sql.DB, name string) error {
	version := strings.TrimSuffix(name, ".sql")

	var done bool
	row := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version)
	if err := row.Scan(&done); err != nil {
		return fmt.Errorf("check migration %s: %w", name, err)
	}
	if done {
		return nil
	}

	stmts, err := schemaFS.ReadFile("migrations/" + name)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	logger := slog.Default().With("component", "migrations")
	logger.InfoContext(ctx, "applying migration", "version", version)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "rollback failed", "err", rbErr, "migration", name)
		}
	}()

	if _, err := tx.ExecContext(ctx, string(stmts)); err != nil {
		return fmt.Errorf("exec migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}
