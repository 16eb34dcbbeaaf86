package transport

import (
	"sync"
	"time"
)

// artifact is what a dispatch leaves behind until teardown.
type artifact struct {
	url     string
	started time.Time
	done    bool
}

// artifacts tracks dispatched artifacts by handle. All methods are safe
// for concurrent access.
type artifacts struct {
	mu      sync.Mutex
	entries map[Handle]*artifact
}

func newArtifacts() *artifacts {
	return &artifacts{entries: make(map[Handle]*artifact)}
}

func (a *artifacts) add(h Handle, url string, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries[h] = &artifact{url: url, started: now}
}

// finish marks the fetch behind h as done. It returns false if the
// artifact was already torn down.
func (a *artifacts) finish(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	art, ok := a.entries[h]
	if !ok {
		return false
	}
	art.done = true
	return true
}

// remove drops the artifact and reports whether it existed.
func (a *artifacts) remove(h Handle) (*artifact, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	art, ok := a.entries[h]
	if ok {
		delete(a.entries, h)
	}
	return art, ok
}

func (a *artifacts) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
