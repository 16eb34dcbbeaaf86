// Package storage defines the outcome journal: one Entry per finished
// request invocation, written by the request core when a journal is
// configured.
//
// Journal adapters (memory, postgres) implement the Journal interface.
// Only finished invocations are recorded; pending requests are never
// persisted and do not survive a restart.
package storage
