package postgres

import (
	"cmp"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rhuss/xsr/pkg/debug"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migration is one embedded schema step. Files are named
// NNN_description.sql; NNN is the version.
type migration struct {
	version int
	file    string
}

// loadMigrations lists the migrations in fsys ordered by version. Files
// that do not follow the naming scheme are ignored; a repeated version
// is an error.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}
	var out []migration
	seen := make(map[int]string)
	for _, f := range files {
		base := strings.TrimPrefix(f, "migrations/")
		prefix, _, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		v, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		if prev, dup := seen[v]; dup {
			return nil, fmt.Errorf("migration version %d used by %s and %s", v, prev, base)
		}
		seen[v] = base
		out = append(out, migration{version: v, file: f})
	}
	slices.SortFunc(out, func(a, b migration) int { return cmp.Compare(a.version, b.version) })
	return out, nil
}

// appliedVersions returns the versions recorded in schema_migrations. A
// missing table means nothing has been applied.
func (s *Store) appliedVersions(ctx context.Context) map[int]bool {
	applied := make(map[int]bool)
	rows, err := s.pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return applied
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return applied
	}
	for _, v := range versions {
		applied[v] = true
	}
	return applied
}

// migrate applies every embedded migration not yet recorded. Each step
// and its bookkeeping row commit in one transaction.
func (s *Store) migrate(ctx context.Context) error {
	all, err := loadMigrations(migrationFiles)
	if err != nil {
		return err
	}
	applied := s.appliedVersions(ctx)

	for _, m := range all {
		if applied[m.version] {
			continue
		}
		body, err := fs.ReadFile(migrationFiles, m.file)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", m.file, err)
		}
		debug.Log("storage", "applying journal migration", "file", m.file, "version", m.version)

		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(body)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING", m.version)
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s: %w", m.file, err)
		}
	}
	return nil
}
