package xsr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rhuss/xsr/pkg/api"
	"github.com/rhuss/xsr/pkg/debug"
	"github.com/rhuss/xsr/pkg/observability"
	"github.com/rhuss/xsr/pkg/registry"
	"github.com/rhuss/xsr/pkg/storage"
	"github.com/rhuss/xsr/pkg/transform"
	"github.com/rhuss/xsr/pkg/transport"
)

// ErrPending is returned by Send when an invocation is in flight and the
// link policy is LinkNone.
var ErrPending = errors.New("request already pending")

const journalTimeout = 5 * time.Second

// invocation is one Send cycle. All fields are guarded by the Request
// mutex.
type invocation struct {
	id      string
	url     string
	started time.Time
	timer   *clock.Timer

	// registered is set once the id is in the registry and the state is
	// pending.
	registered bool
	// dispatched is set once Dispatch returned a handle. Until then the
	// terminal path leaves teardown to the dispatching goroutine.
	dispatched bool
	handle     transport.Handle
	// settled decides the race between delivery, cancel and timeout.
	settled bool
}

// Request is a reusable client for one endpoint. Each Send runs one
// invocation; the link policy decides what happens to a Send while an
// invocation is pending. A Request is safe for concurrent use.
type Request[T any] struct {
	transform transform.Transform[T]
	registry  *registry.Registry
	transport transport.Adapter
	clock     clock.Clock
	newID     func() string
	logger    *slog.Logger
	collector *observability.Collector
	journal   storage.Journal
	name      string

	mu     sync.Mutex
	cfg    Config
	state  api.State
	id     string
	active *invocation
	chain  chainQueue
	obs    observers[T]
}

// New creates a Request bound to tr. The transform cannot be changed
// afterwards.
func New[T any](cfg Config, tr transform.Transform[T], opts ...Option) (*Request[T], error) {
	if tr == nil {
		return nil, api.NewInvalidRequestError("transform is required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	link, _ := api.ParseLinkPolicy(string(cfg.Link))
	cfg.Link = link

	o := options{
		clock:  clock.New(),
		newID:  api.NewCallbackID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = registry.Default()
	}
	if o.transport == nil {
		o.transport = transport.NewScript(transport.WithRegistry(o.registry), transport.WithLogger(o.logger))
	}

	return &Request[T]{
		transform: tr,
		registry:  o.registry,
		transport: o.transport,
		clock:     o.clock,
		newID:     o.newID,
		logger:    o.logger,
		collector: o.collector,
		journal:   o.journal,
		name:      o.name,
		cfg:       cfg.clone(),
		state:     api.StateIdle,
	}, nil
}

// State returns the lifecycle state of the current or last invocation.
func (r *Request[T]) State() api.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ID returns the correlation id of the current or last invocation.
func (r *Request[T]) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

// Pending reports whether an invocation is waiting for its callback.
func (r *Request[T]) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil && r.active.registered
}

// Config returns a copy of the current configuration.
func (r *Request[T]) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.clone()
}

// ChainLen returns the number of queued sends.
func (r *Request[T]) ChainLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chain.len()
}

// ClearChain drops all queued sends and returns how many were dropped.
func (r *Request[T]) ClearChain() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chain.clear()
}

// Send starts an invocation with p applied on top of the configuration.
//
// While an invocation is in flight the link policy decides: LinkNone
// returns ErrPending and changes nothing, LinkChain queues p and returns
// nil, LinkCancel cancels the in-flight invocation and starts a new one.
//
// Send returns once the URL is dispatched. The outcome is reported to
// observers. A refused dispatch returns a transport failure and leaves no
// pending state behind.
func (r *Request[T]) Send(ctx context.Context, p Params) error {
	r.mu.Lock()
	for r.active != nil {
		policy := r.cfg.Link
		r.collector.LinkDecision(string(policy))
		switch policy {
		case api.LinkChain:
			r.chain.enqueue(ctx, p)
			n := r.chain.len()
			r.mu.Unlock()
			debug.Log("request", "send chained", "name", r.name, "queued", n)
			return nil
		case api.LinkCancel:
			r.mu.Unlock()
			debug.Log("request", "send cancels pending", "name", r.name)
			r.Cancel()
			r.mu.Lock()
		default:
			r.mu.Unlock()
			debug.Log("request", "send dropped, request pending", "name", r.name)
			return ErrPending
		}
	}

	err := r.start(ctx, p)
	if err != nil {
		r.drain()
	}
	return err
}

// start runs one invocation. It is called with r.mu held and no active
// invocation, and returns with r.mu released.
func (r *Request[T]) start(ctx context.Context, p Params) error {
	cfg := r.cfg.merge(p)
	if err := cfg.validate(); err != nil {
		r.mu.Unlock()
		return err
	}
	link, _ := api.ParseLinkPolicy(string(cfg.Link))
	cfg.Link = link
	r.cfg = cfg
	if cfg.URL == "" {
		r.mu.Unlock()
		return api.NewInvalidRequestError("url is required")
	}

	inv := &invocation{}
	r.active = inv
	r.mu.Unlock()

	ev := &RequestEvent{Config: cfg.clone()}
	for _, fn := range r.snapshot().request {
		fn(ev)
	}

	r.mu.Lock()
	if inv.settled || ev.cancelled {
		if r.active == inv {
			r.active = nil
		}
		r.mu.Unlock()
		debug.Log("request", "send aborted by observer", "name", r.name)
		return api.NewAbortedError("send cancelled before dispatch")
	}

	id, err := r.registry.Allocate(r.newID, func(payload any) { r.deliver(inv, payload) })
	if err != nil {
		r.active = nil
		r.mu.Unlock()
		r.logger.Error("correlation id allocation failed", "name", r.name, "error", err)
		return api.NewCollisionError("could not allocate correlation id", err)
	}

	prevState, prevID := r.state, r.id
	inv.id = id
	inv.url = buildURL(cfg.URL, cfg.Data, cfg.CallbackParam, id)
	inv.started = r.clock.Now()
	inv.timer = r.clock.AfterFunc(cfg.Timeout, func() { r.expire(inv) })
	inv.registered = true
	r.id = id
	r.setState(api.StatePending)
	r.mu.Unlock()

	r.collector.Started()
	debug.Log("request", "dispatch", "name", r.name, "id", id, "url", inv.url, "timeout", cfg.Timeout)

	h, err := r.transport.Dispatch(ctx, inv.url)

	r.mu.Lock()
	if err != nil {
		if inv.settled {
			// Cancelled while dispatching; the cancel path already
			// reported the outcome.
			r.mu.Unlock()
			return api.NewTransportError(id, "dispatch failed", err)
		}
		inv.settled = true
		inv.timer.Stop()
		r.registry.Remove(id)
		r.active = nil
		r.state, r.id = prevState, prevID
		r.mu.Unlock()

		r.collector.TransportFailure()
		r.logger.Warn("dispatch failed", "name", r.name, "id", id, "url", inv.url, "error", err)
		return api.NewTransportError(id, "dispatch failed", err)
	}
	inv.dispatched = true
	inv.handle = h
	settled := inv.settled
	r.mu.Unlock()

	if settled {
		// Delivered or cancelled while Dispatch was running.
		r.transport.Teardown(h)
	}
	return nil
}

// Cancel ends the in-flight invocation. The registry entry is
// neutralized, not removed: the fetch cannot be stopped and its late
// delivery must be absorbed. Cancel emits cancel then complete and
// returns false when nothing was in flight.
//
// A Cancel that arrives while request observers are still running aborts
// that send without emitting anything.
func (r *Request[T]) Cancel() bool {
	r.mu.Lock()
	inv := r.active
	if inv == nil || inv.settled {
		r.mu.Unlock()
		return false
	}
	inv.settled = true
	r.active = nil
	if !inv.registered {
		r.mu.Unlock()
		return true
	}
	inv.timer.Stop()
	r.registry.Neutralize(inv.id)
	r.setState(api.StateCancelled)
	h, dispatched := inv.handle, inv.dispatched
	r.mu.Unlock()

	if dispatched {
		r.transport.Teardown(h)
	}
	debug.Log("request", "cancelled", "name", r.name, "id", inv.id)

	out := Outcome[T]{ID: inv.id, URL: inv.url, State: api.StateCancelled, Duration: r.clock.Since(inv.started)}
	r.record(out)
	obs := r.snapshot()
	for _, fn := range obs.cancel {
		fn()
	}
	for _, fn := range obs.complete {
		fn(out)
	}
	r.drain()
	return true
}

// expire is the timeout action for inv.
func (r *Request[T]) expire(inv *invocation) {
	r.mu.Lock()
	if inv.settled || r.active != inv {
		r.mu.Unlock()
		return
	}
	inv.settled = true
	r.active = nil
	r.registry.Neutralize(inv.id)
	r.setState(api.StateTimedOut)
	h, dispatched := inv.handle, inv.dispatched
	r.mu.Unlock()

	if dispatched {
		r.transport.Teardown(h)
	}
	r.logger.Info("request timed out", "name", r.name, "id", inv.id, "url", inv.url)

	out := Outcome[T]{ID: inv.id, URL: inv.url, State: api.StateTimedOut, Duration: r.clock.Since(inv.started)}
	r.record(out)
	obs := r.snapshot()
	for _, fn := range obs.timeout {
		fn()
	}
	for _, fn := range obs.complete {
		fn(out)
	}
	r.drain()
}

// deliver is the live registry handler for inv.
func (r *Request[T]) deliver(inv *invocation, payload any) {
	r.mu.Lock()
	if inv.settled || r.active != inv {
		r.mu.Unlock()
		// The handler was looked up before a timeout or cancel neutralized
		// the id; this call is the late delivery the absorber waits for.
		if r.registry.RemoveAbsorber(inv.id) {
			debug.Log("request", "late delivery raced neutralization", "name", r.name, "id", inv.id)
			return
		}
		debug.Log("request", "spurious delivery ignored", "name", r.name, "id", inv.id)
		return
	}
	inv.settled = true
	r.active = nil
	inv.timer.Stop()
	r.registry.Remove(inv.id)
	r.setState(api.StateCompleted)
	h, dispatched := inv.handle, inv.dispatched
	r.mu.Unlock()

	if dispatched {
		r.transport.Teardown(h)
	}

	out := Outcome[T]{ID: inv.id, URL: inv.url, State: api.StateCompleted}
	result, err := r.transform.Transform(payload)
	out.Duration = r.clock.Since(inv.started)
	obs := r.snapshot()

	if err != nil {
		r.mu.Lock()
		if r.active == nil && r.id == inv.id {
			r.setState(api.StateFailed)
		}
		r.mu.Unlock()
		r.logger.Warn("response transform failed", "name", r.name, "id", inv.id, "error", err)

		out.State = api.StateFailed
		out.Err = err
		r.record(out)
		for _, fn := range obs.failure {
			fn(err)
		}
		for _, fn := range obs.complete {
			fn(out)
		}
		r.drain()
		return
	}

	debug.Log("request", "delivered", "name", r.name, "id", inv.id, "duration", out.Duration)
	out.Result = result
	r.record(out)
	for _, fn := range obs.success {
		fn(result)
	}
	for _, fn := range obs.complete {
		fn(out)
	}
	r.drain()
}

// drain starts queued sends until one is dispatched, the queue is empty,
// or another invocation is already active.
func (r *Request[T]) drain() {
	for {
		r.mu.Lock()
		if r.active != nil {
			r.mu.Unlock()
			return
		}
		item, ok := r.chain.next()
		if !ok {
			r.mu.Unlock()
			return
		}
		debug.Log("request", "running chained send", "name", r.name, "remaining", r.chain.len())
		err := r.start(item.ctx, item.params)
		if err == nil {
			return
		}
		r.logger.Warn("chained send failed", "name", r.name, "error", err)
	}
}

// setState moves to the given state. Must be called with r.mu held.
func (r *Request[T]) setState(to api.State) {
	if err := api.ValidateTransition(r.state, to); err != nil {
		r.logger.Warn("unexpected state transition", "name", r.name, "error", err)
	}
	r.state = to
}

// record reports a finished invocation to metrics and the journal.
func (r *Request[T]) record(out Outcome[T]) {
	outcome := api.OutcomeFor(out.State)
	r.collector.Finished(outcome, out.Duration)
	if r.journal == nil {
		return
	}

	now := r.clock.Now()
	e := &storage.Entry{
		ID:         out.ID,
		Name:       r.name,
		URL:        out.URL,
		Outcome:    outcome,
		StartedAt:  now.Add(-out.Duration),
		FinishedAt: now,
	}
	if out.Err != nil {
		e.Error = out.Err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := r.journal.Append(ctx, e); err != nil {
		r.logger.Warn("journal append failed", "name", r.name, "id", out.ID, "error", fmt.Errorf("append: %w", err))
	}
}
