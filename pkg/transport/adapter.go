package transport

import (
	"context"
	"sync/atomic"
)

// Adapter dispatches a request URL to the far end.
type Adapter interface {
	// Dispatch starts the fetch for url and returns a handle to the
	// artifact it created. It must not block on the fetch itself.
	Dispatch(ctx context.Context, url string) (Handle, error)

	// Teardown removes the artifact behind h. It does not stop a fetch
	// that is still running. Unknown handles are ignored.
	Teardown(h Handle)
}

// Handle identifies the artifact created by one Dispatch. The zero
// Handle refers to nothing.
type Handle uint64

var handleSeq atomic.Uint64

// NewHandle returns a process-unique handle for adapter implementations.
func NewHandle() Handle {
	return Handle(handleSeq.Add(1))
}
