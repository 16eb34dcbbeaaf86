// Package api defines the shared types of the xsr request client.
//
// It holds the request lifecycle states and the transition table between
// them, the link policies that decide what a second Send does while a
// request is in flight, the notification kinds emitted to observers, the
// structured error type, and correlation id generation.
//
// The package performs no I/O. Apart from the UUID based id scheme it uses
// the Go standard library only.
//
// Core types:
//   - [State]: lifecycle state of a request instance
//   - [LinkPolicy]: behavior of Send while a request is pending
//   - [Event]: notification kinds delivered to observers
//   - [Error]: structured error with type, correlation id, message and cause
package api
