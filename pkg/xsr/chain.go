package xsr

import "context"

// queued is a deferred Send.
type queued struct {
	ctx    context.Context
	params Params
}

// chainQueue is the FIFO of deferred sends owned by one Request. It is
// guarded by the Request mutex.
type chainQueue struct {
	items []queued
}

func (q *chainQueue) enqueue(ctx context.Context, p Params) {
	q.items = append(q.items, queued{ctx: context.WithoutCancel(ctx), params: p})
}

func (q *chainQueue) next() (queued, bool) {
	if len(q.items) == 0 {
		return queued{}, false
	}
	item := q.items[0]
	q.items[0] = queued{}
	q.items = q.items[1:]
	return item, true
}

func (q *chainQueue) len() int {
	return len(q.items)
}

func (q *chainQueue) clear() int {
	n := len(q.items)
	q.items = nil
	return n
}
