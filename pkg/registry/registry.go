package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rhuss/xsr/pkg/debug"
)

const (
	// DefaultMaxAttempts bounds the number of ids Allocate tries before
	// giving up.
	DefaultMaxAttempts = 8

	// DefaultAbsorbTTL is how long a neutralized id waits for its late
	// delivery before it is reaped.
	DefaultAbsorbTTL = 10 * time.Minute
)

var (
	// ErrIDInUse is returned by Register when the id is already present.
	ErrIDInUse = errors.New("callback id already registered")

	// ErrExhausted is returned by Allocate when every generated id collided
	// with an existing entry.
	ErrExhausted = errors.New("no unused callback id found")
)

// Handler receives the payload the far end passed to its callback.
type Handler func(payload any)

// Observer receives registry anomalies. observability.Collector
// implements it.
type Observer interface {
	IDCollision()
	StaleDelivery()
}

type entry struct {
	handler  Handler
	absorber bool
	reap     *clock.Timer
}

// Registry is a concurrency-safe map of correlation ids to handlers.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	clock       clock.Clock
	absorbTTL   time.Duration
	maxAttempts int
	observer    Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used for absorber reaping.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithAbsorbTTL sets how long neutralized entries live without a delivery.
// Zero disables reaping.
func WithAbsorbTTL(d time.Duration) Option {
	return func(r *Registry) { r.absorbTTL = d }
}

// WithMaxAttempts sets the number of ids Allocate generates before it
// returns ErrExhausted.
func WithMaxAttempts(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithObserver reports collisions and stale deliveries to o.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:     make(map[string]*entry),
		clock:       clock.New(),
		absorbTTL:   DefaultAbsorbTTL,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRegistry = New()

// Default returns the process-wide registry. It is empty at startup and
// needs no teardown beyond the per-request entry removal.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a live handler under id.
func (r *Registry) Register(id string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("%w: %s", ErrIDInUse, id)
	}
	r.entries[id] = &entry{handler: h}
	return nil
}

// Allocate generates ids with gen until one is not present in the registry
// and registers h under it. Generation and registration happen under one
// lock, so the returned id is unique among the current entries.
func (r *Registry) Allocate(gen func() string, h Handler) (string, error) {
	collisions := 0
	defer func() {
		if r.observer == nil {
			return
		}
		for i := 0; i < collisions; i++ {
			r.observer.IDCollision()
		}
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		id := gen()
		if _, ok := r.entries[id]; ok {
			collisions++
			debug.Log("registry", "id collision", "id", id, "attempt", attempt+1)
			continue
		}
		r.entries[id] = &entry{handler: h}
		return id, nil
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, r.maxAttempts)
}

// Neutralize replaces the live handler for id with an absorber. It returns
// false if id is absent or already neutralized.
func (r *Registry) Neutralize(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.absorber {
		return false
	}
	a := &entry{absorber: true}
	if r.absorbTTL > 0 {
		a.reap = r.clock.AfterFunc(r.absorbTTL, func() { r.reap(id, a) })
	}
	r.entries[id] = a
	debug.Log("registry", "neutralized", "id", id)
	return true
}

// reap removes the absorber a if it is still the entry for id.
func (r *Registry) reap(id string, a *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[id] == a {
		delete(r.entries, id)
		debug.Log("registry", "absorber reaped", "id", id)
	}
}

// Invoke calls the handler registered under id with payload. It returns
// false when id is absent. An absorber removes its own entry and drops
// the payload.
func (r *Registry) Invoke(id string, payload any) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		debug.Log("registry", "delivery to unknown id", "id", id)
		return false
	}
	if e.absorber {
		delete(r.entries, id)
		if e.reap != nil {
			e.reap.Stop()
		}
		r.mu.Unlock()
		debug.Log("registry", "stale delivery absorbed", "id", id)
		if r.observer != nil {
			r.observer.StaleDelivery()
		}
		return true
	}
	r.mu.Unlock()

	e.handler(payload)
	return true
}

// Remove deletes the entry for id, live or neutralized.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		if e.reap != nil {
			e.reap.Stop()
		}
		delete(r.entries, id)
	}
}

// RemoveAbsorber deletes the entry for id only if it has been neutralized.
// It reports whether an absorber was removed.
func (r *Registry) RemoveAbsorber(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || !e.absorber {
		return false
	}
	if e.reap != nil {
		e.reap.Stop()
	}
	delete(r.entries, id)
	debug.Log("registry", "absorber removed", "id", id)
	return true
}

// Contains reports whether id has an entry of any kind.
func (r *Registry) Contains(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// IsLive reports whether id is registered with a live handler.
func (r *Registry) IsLive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return ok && !e.absorber
}

// Len returns the number of entries, including absorbers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
