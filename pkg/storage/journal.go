package storage

import (
	"context"
	"time"
)

// Entry records one finished invocation.
type Entry struct {
	// ID is the correlation id of the invocation.
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
	// Outcome is success, failure, cancel or timeout.
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the time from dispatch to the terminal event.
func (e *Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// ListOptions filters and paginates List.
type ListOptions struct {
	Name    string // Only entries with this request name.
	Outcome string // Only entries with this outcome.
	After   string // Cursor: entries after this ID in result order.
	Limit   int    // Maximum number of entries (default 20, max 100).
}

// EffectiveLimit clamps Limit to the supported range.
func (o ListOptions) EffectiveLimit() int {
	switch {
	case o.Limit <= 0:
		return 20
	case o.Limit > 100:
		return 100
	}
	return o.Limit
}

// Journal stores entries for finished invocations.
type Journal interface {
	// Append stores e. It returns ErrConflict if e.ID was recorded before.
	Append(ctx context.Context, e *Entry) error

	// Get returns the entry for id or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// List returns matching entries, most recently finished first.
	List(ctx context.Context, opts ListOptions) ([]*Entry, error)

	// Close releases resources held by the journal.
	Close() error
}
