package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool defaults. The journal writes one row per finished request, so a
// small pool is enough.
const (
	DefaultMaxConns        int32 = 4
	DefaultMinConns        int32 = 1
	DefaultMaxConnLifetime       = 5 * time.Minute
)

// Config holds the journal's connection settings.
type Config struct {
	// DSN is a PostgreSQL connection string or keyword/value list.
	DSN string

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration

	// MigrateOnStart creates or upgrades the journal schema in New.
	MigrateOnStart bool
}

// poolConfig parses the DSN and applies the pool limits, substituting
// defaults for zero values.
func (c Config) poolConfig() (*pgxpool.Config, error) {
	if c.DSN == "" {
		return nil, fmt.Errorf("journal DSN is empty")
	}
	pc, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	pc.MaxConns = orDefault(c.MaxConns, DefaultMaxConns)
	pc.MinConns = orDefault(c.MinConns, DefaultMinConns)
	if pc.MinConns > pc.MaxConns {
		return nil, fmt.Errorf("min conns %d exceeds max conns %d", pc.MinConns, pc.MaxConns)
	}
	pc.MaxConnLifetime = orDefault(c.MaxConnLifetime, DefaultMaxConnLifetime)
	return pc, nil
}

func orDefault[T int32 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
