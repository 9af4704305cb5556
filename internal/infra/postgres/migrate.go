package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"text/template"
)

// DefaultTable is the document table used when none is configured.
const DefaultTable = "rag_documents"

//go:embed migrations/*.up.sql
var migrations embed.FS

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Schema parameterises the migrations.
type Schema struct {
	Table string
	// Dimensions fixes the vector column width and enables the ivfflat index.
	// 0 leaves the column untyped and skips the ANN index.
	Dimensions int
}

// MigrateUp applies pending migrations for s.Table, one transaction each.
func MigrateUp(ctx context.Context, db *sql.DB, s Schema) error {
	if s.Table == "" {
		s.Table = DefaultTable
	}
	if !identPattern.MatchString(s.Table) {
		return fmt.Errorf("migrate: invalid table name %q", s.Table)
	}
	if s.Dimensions < 0 {
		return fmt.Errorf("migrate: invalid dimensions %d", s.Dimensions)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    integer     NOT NULL,
			scope      text        NOT NULL,
			name       text        NOT NULL,
			applied_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (version, scope)
		)`); err != nil {
		return fmt.Errorf("migrate: ensure migrations table: %w", err)
	}

	files, err := renderMigrations(s)
	if err != nil {
		return fmt.Errorf("migrate: load files: %w", err)
	}

	for _, f := range files {
		var applied bool
		if err := db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1 AND scope = $2)",
			f.version, s.Table).Scan(&applied); err != nil {
			return fmt.Errorf("migrate: check applied %d: %w", f.version, err)
		}
		if applied {
			continue
		}
		if err := apply(ctx, db, s.Table, f); err != nil {
			return fmt.Errorf("migrate: apply %s: %w", f.name, err)
		}
	}
	return nil
}

type migrationFile struct {
	version int
	name    string
	sql     string
}

func renderMigrations(s Schema) ([]migrationFile, error) {
	entries, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(entries)

	files := make([]migrationFile, 0, len(entries))
	for _, path := range entries {
		content, err := migrations.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		tmpl, err := template.New(path).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, s); err != nil {
			return nil, fmt.Errorf("render %s: %w", path, err)
		}
		name := path[len("migrations/"):]
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			return nil, fmt.Errorf("version of %s: %w", name, err)
		}
		files = append(files, migrationFile{version: version, name: name, sql: buf.String()})
	}
	return files, nil
}

func apply(ctx context.Context, db *sql.DB, scope string, f migrationFile) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after Commit
	}()

	if _, err := tx.ExecContext(ctx, f.sql); err != nil {
		return fmt.Errorf("exec SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, scope, name) VALUES ($1, $2, $3)",
		f.version, scope, f.name); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}
