// Package migrations applies the embedded vector store schema.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"enstats/domain/core"
)

//go:embed sql/*.sql
var schemaFS embed.FS

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

// Migrator handles database schema migrations
type Migrator struct {
	db    *sql.DB
	files fs.FS
}

// NewMigrator creates a migrator for the embedded schema
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db, files: schemaFS}
}

// MigrationFile represents a migration file
type MigrationFile struct {
	Version string
	Path    string
}

// MigrationStatus reports whether one migration has been applied
type MigrationStatus struct {
	Version string
	Applied bool
}

// Up executes all pending migrations in version order and returns the
// versions it applied
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}

	var done []string
	for _, file := range files {
		if applied[file.Version] {
			continue
		}
		if err := m.applyMigration(ctx, file); err != nil {
			return done, fmt.Errorf("failed to apply migration %s: %w", file.Version, err)
		}
		done = append(done, file.Version)
	}
	return done, nil
}

// Status lists every embedded migration and whether it has been applied
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to ensure migrations table: %w", err)
	}
	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to find migration files: %w", err)
	}

	status := make([]MigrationStatus, len(files))
	for i, file := range files {
		status[i] = MigrationStatus{Version: file.Version, Applied: applied[file.Version]}
	}
	return status, nil
}

func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) applyMigration(ctx context.Context, file MigrationFile) error {
	content, err := fs.ReadFile(m.files, file.Path)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)",
		file.Version, core.NewHash(content).String()); err != nil {
		return err
	}
	return tx.Commit()
}

// findMigrationFiles lists sql/NNN_name.sql files sorted by version
func (m *Migrator) findMigrationFiles() ([]MigrationFile, error) {
	entries, err := fs.ReadDir(m.files, "sql")
	if err != nil {
		return nil, err
	}

	var files []MigrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(e.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		files = append(files, MigrationFile{Version: parts[0], Path: path.Join("sql", e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}
