// Package xsr implements a cross-origin request client for transports that
// answer by calling a named callback, the technique known as JSONP.
//
// A Request dispatches a URL carrying a fresh correlation id in a query
// parameter. The far end answers with a script that invokes the callback
// of that name, which reaches the live handler through the callback
// registry. The handler settles the request, runs the bound transform
// and notifies observers.
//
// The transport cannot be aborted. Cancel and timeout therefore never stop
// the fetch: they neutralize the registry entry so that a late delivery is
// absorbed silently, and tear down the dispatch artifact.
//
// # Lifecycle
//
// Each Send runs one invocation: idle or terminal, then pending, then
// exactly one of completed (or failed when the transform rejects the
// payload), cancelled or timed_out. Observers see request, then one of
// success, failure, cancel or timeout, then complete.
//
// # Link policy
//
// A Send while an invocation is pending is decided by the link policy:
// LinkNone drops it with ErrPending, LinkChain queues it until the pending
// invocation ends, LinkCancel cancels the pending invocation and starts
// over.
package xsr
