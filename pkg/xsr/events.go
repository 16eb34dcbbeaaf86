package xsr

import (
	"slices"
	"time"

	"github.com/rhuss/xsr/pkg/api"
)

// RequestEvent is passed to request observers before an invocation is
// registered. Calling Cancel aborts the send.
type RequestEvent struct {
	Config    Config
	cancelled bool
}

// Cancel aborts the send that emitted e.
func (e *RequestEvent) Cancel() {
	e.cancelled = true
}

// Outcome describes a finished invocation.
type Outcome[T any] struct {
	ID    string
	URL   string
	State api.State
	// Result is set when State is completed.
	Result T
	// Err is set when State is failed.
	Err      error
	Duration time.Duration
}

// OK reports whether the invocation delivered a transformed result.
func (o Outcome[T]) OK() bool {
	return o.State == api.StateCompleted
}

type observers[T any] struct {
	request  []func(*RequestEvent)
	success  []func(T)
	failure  []func(error)
	cancel   []func()
	timeout  []func()
	complete []func(Outcome[T])
}

// OnRequest registers fn for the request notification.
func (r *Request[T]) OnRequest(fn func(*RequestEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs.request = append(r.obs.request, fn)
}

// OnSuccess registers fn for successful deliveries.
func (r *Request[T]) OnSuccess(fn func(T)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs.success = append(r.obs.success, fn)
}

// OnFailure registers fn for deliveries the transform rejected.
func (r *Request[T]) OnFailure(fn func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs.failure = append(r.obs.failure, fn)
}

// OnCancel registers fn for cancellations.
func (r *Request[T]) OnCancel(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs.cancel = append(r.obs.cancel, fn)
}

// OnTimeout registers fn for timeouts.
func (r *Request[T]) OnTimeout(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs.timeout = append(r.obs.timeout, fn)
}

// OnComplete registers fn for the notification that ends every
// invocation, whatever its outcome.
func (r *Request[T]) OnComplete(fn func(Outcome[T])) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs.complete = append(r.obs.complete, fn)
}

// snapshot copies the observer lists so they can be called without the
// lock held.
func (r *Request[T]) snapshot() observers[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return observers[T]{
		request:  slices.Clone(r.obs.request),
		success:  slices.Clone(r.obs.success),
		failure:  slices.Clone(r.obs.failure),
		cancel:   slices.Clone(r.obs.cancel),
		timeout:  slices.Clone(r.obs.timeout),
		complete: slices.Clone(r.obs.complete),
	}
}
