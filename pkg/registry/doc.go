// Package registry maps correlation ids to response handlers.
//
// A request registers a live handler under a fresh id before it dispatches,
// and the far end addresses that handler by invoking the id. Cancellation is
// soft: the transport cannot be stopped, so a cancelled or timed out id is
// neutralized instead of removed. Its handler is replaced by an absorber that
// removes its own entry when the late delivery eventually arrives and does
// nothing else. Absorbers that never see a delivery are reaped after a
// configurable TTL.
//
// The registry is safe for concurrent use. Handlers run without the
// registry lock held, so a handler may call back into the registry.
package registry
