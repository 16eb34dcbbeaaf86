// Package memory provides an in-memory storage.Journal for tests and
// single-process use. Entries are lost when the process exits. An optional
// size limit evicts the oldest entries first.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/rhuss/xsr/pkg/debug"
	"github.com/rhuss/xsr/pkg/storage"
)

type entry struct {
	e    *storage.Entry
	elem *list.Element // position in insertion order
}

// Journal is an in-memory storage.Journal with optional eviction.
type Journal struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   *list.List // front = newest, back = oldest
	maxSize int        // 0 = unlimited
}

// Ensure Journal implements storage.Journal at compile time.
var _ storage.Journal = (*Journal)(nil)

// New creates an in-memory journal. If maxSize is 0 the journal grows
// without limit; otherwise the oldest entry is evicted at the limit.
func New(maxSize int) *Journal {
	return &Journal{
		entries: make(map[string]*entry),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// Append stores a copy of e.
func (j *Journal) Append(_ context.Context, e *storage.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.entries[e.ID]; exists {
		return storage.ErrConflict
	}
	if j.maxSize > 0 && len(j.entries) >= j.maxSize {
		j.evictOldest()
	}

	cp := *e
	j.entries[e.ID] = &entry{e: &cp, elem: j.order.PushFront(e.ID)}
	return nil
}

// Get returns a copy of the entry for id.
func (j *Journal) Get(_ context.Context, id string) (*storage.Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	en, ok := j.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *en.e
	return &cp, nil
}

// List returns matching entries, most recently finished first.
func (j *Journal) List(_ context.Context, opts storage.ListOptions) ([]*storage.Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var matches []*storage.Entry
	for _, en := range j.entries {
		if opts.Name != "" && en.e.Name != opts.Name {
			continue
		}
		if opts.Outcome != "" && en.e.Outcome != opts.Outcome {
			continue
		}
		cp := *en.e
		matches = append(matches, &cp)
	}

	sort.Slice(matches, func(a, b int) bool {
		if !matches[a].FinishedAt.Equal(matches[b].FinishedAt) {
			return matches[a].FinishedAt.After(matches[b].FinishedAt)
		}
		return matches[a].ID > matches[b].ID
	})

	if opts.After != "" {
		idx := -1
		for i, e := range matches {
			if e.ID == opts.After {
				idx = i
				break
			}
		}
		if idx < 0 {
			return []*storage.Entry{}, nil
		}
		matches = matches[idx+1:]
	}

	if limit := opts.EffectiveLimit(); len(matches) > limit {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []*storage.Entry{}
	}
	return matches, nil
}

// Len returns the number of stored entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.entries)
}

// Close is a no-op for the in-memory journal.
func (j *Journal) Close() error {
	return nil
}

// evictOldest removes the oldest entry. Must be called with j.mu held.
func (j *Journal) evictOldest() {
	back := j.order.Back()
	if back == nil {
		return
	}
	id := back.Value.(string)
	j.order.Remove(back)
	delete(j.entries, id)
	debug.Log("storage", "journal entry evicted", "id", id)
}
