package transport

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rhuss/xsr/pkg/registry"
)

// Responder produces the reply for a loopback dispatch. It returns the
// payload to deliver and whether to deliver at all.
type Responder func(u *url.URL, callbackID string) (payload any, ok bool)

// Dispatched records one loopback dispatch.
type Dispatched struct {
	Handle     Handle
	URL        string
	CallbackID string
}

// Loopback is an in-process adapter. It records every dispatch and,
// when a Responder is set, invokes the callback named in the URL.
type Loopback struct {
	registry  *registry.Registry
	param     string
	responder Responder
	async     bool
	delay     time.Duration
	err       error

	mu         sync.Mutex
	dispatched []Dispatched
	torndown   []Handle
	artifacts  *artifacts
	wg         sync.WaitGroup
}

// LoopbackOption configures a Loopback adapter.
type LoopbackOption func(*Loopback)

// WithLoopbackRegistry sets the registry replies are delivered to.
func WithLoopbackRegistry(r *registry.Registry) LoopbackOption {
	return func(l *Loopback) { l.registry = r }
}

// WithCallbackParam names the query parameter carrying the callback id.
func WithCallbackParam(name string) LoopbackOption {
	return func(l *Loopback) { l.param = name }
}

// WithResponder sets the reply function. Without one, nothing is
// delivered and requests run into their timeout.
func WithResponder(fn Responder) LoopbackOption {
	return func(l *Loopback) { l.responder = fn }
}

// WithAsync delivers replies from a separate goroutine after delay
// instead of from inside Dispatch.
func WithAsync(delay time.Duration) LoopbackOption {
	return func(l *Loopback) {
		l.async = true
		l.delay = delay
	}
}

// WithDispatchError makes every Dispatch fail with err.
func WithDispatchError(err error) LoopbackOption {
	return func(l *Loopback) { l.err = err }
}

// NewLoopback creates a loopback adapter.
func NewLoopback(opts ...LoopbackOption) *Loopback {
	l := &Loopback{
		registry:  registry.Default(),
		param:     "callback",
		artifacts: newArtifacts(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reply returns a Responder that always delivers payload.
func Reply(payload any) Responder {
	return func(*url.URL, string) (any, bool) { return payload, true }
}

// Dispatch records the URL and, if a responder is set, delivers its reply.
func (l *Loopback) Dispatch(_ context.Context, rawURL string) (Handle, error) {
	if l.err != nil {
		return 0, l.err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	id := u.Query().Get(l.param)

	h := NewHandle()
	l.artifacts.add(h, rawURL, time.Now())
	l.mu.Lock()
	l.dispatched = append(l.dispatched, Dispatched{Handle: h, URL: rawURL, CallbackID: id})
	l.mu.Unlock()

	if l.responder == nil || id == "" {
		return h, nil
	}
	deliver := func() {
		if payload, ok := l.responder(u, id); ok {
			l.artifacts.finish(h)
			l.registry.Invoke(id, payload)
		}
	}
	if !l.async {
		deliver()
		return h, nil
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if l.delay > 0 {
			time.Sleep(l.delay)
		}
		deliver()
	}()
	return h, nil
}

// Teardown records the teardown and drops the artifact.
func (l *Loopback) Teardown(h Handle) {
	if _, ok := l.artifacts.remove(h); !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.torndown = append(l.torndown, h)
}

// Dispatched returns a copy of all recorded dispatches in order.
func (l *Loopback) Dispatched() []Dispatched {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Dispatched(nil), l.dispatched...)
}

// Last returns the most recent dispatch.
func (l *Loopback) Last() (Dispatched, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.dispatched) == 0 {
		return Dispatched{}, false
	}
	return l.dispatched[len(l.dispatched)-1], true
}

// TornDown returns the handles passed to Teardown in order.
func (l *Loopback) TornDown() []Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Handle(nil), l.torndown...)
}

// InFlight returns the number of artifacts not yet torn down.
func (l *Loopback) InFlight() int {
	return l.artifacts.len()
}

// Wait blocks until all asynchronous replies have been delivered.
func (l *Loopback) Wait() {
	l.wg.Wait()
}
