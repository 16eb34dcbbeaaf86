// Package postgres provides a PostgreSQL storage.Journal using pgx/v5
// connection pooling.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/xsr/pkg/debug"
	"github.com/rhuss/xsr/pkg/storage"
)

// Store is a PostgreSQL-backed Journal.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.Journal at compile time.
var _ storage.Journal = (*Store)(nil)

// New creates a new PostgreSQL journal with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Append persists an entry.
func (s *Store) Append(ctx context.Context, e *storage.Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO journal_entries (id, name, url, outcome, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		e.ID, nullString(e.Name), e.URL, e.Outcome, nullString(e.Error), e.StartedAt, e.FinishedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	debug.Log("storage", "journal entry appended", "id", e.ID, "outcome", e.Outcome)
	return nil
}

const selectColumns = `SELECT id, COALESCE(name, ''), url, outcome, COALESCE(error, ''), started_at, finished_at FROM journal_entries`

// Get retrieves an entry by ID.
func (s *Store) Get(ctx context.Context, id string) (*storage.Entry, error) {
	row := s.pool.QueryRow(ctx, selectColumns+" WHERE id = $1", id)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying journal entry: %w", err)
	}
	return e, nil
}

// List returns matching entries, most recently finished first, using
// keyset pagination on (finished_at, id).
func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Entry, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if opts.Name != "" {
		where = append(where, "name = "+arg(opts.Name))
	}
	if opts.Outcome != "" {
		where = append(where, "outcome = "+arg(opts.Outcome))
	}
	if opts.After != "" {
		p := arg(opts.After)
		where = append(where, fmt.Sprintf(
			"(finished_at, id) < (SELECT finished_at, id FROM journal_entries WHERE id = %s)", p))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY finished_at DESC, id DESC LIMIT " + arg(opts.EffectiveLimit())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	defer rows.Close()

	entries := []*storage.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal entries: %w", err)
	}
	return entries, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanEntry(row pgx.Row) (*storage.Entry, error) {
	var e storage.Entry
	if err := row.Scan(&e.ID, &e.Name, &e.URL, &e.Outcome, &e.Error, &e.StartedAt, &e.FinishedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
