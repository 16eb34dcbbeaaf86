// Package transport issues the one-shot fetch-and-execute operation that
// carries a request to the far end.
//
// The far end answers with a script that calls the callback named by the
// correlation id, for example
//
//	xsr_Q2x8vR0aLpM4nT6bYc1dEf3g({"a":1});
//
// Executing that script invokes the addressed entry in the callback
// registry. The transport gives no way to abort a fetch once dispatched:
// Teardown only removes the artifact that Dispatch created. Cancellation
// is handled by neutralizing the registry entry instead.
//
// # Adapters
//
//   - Script fetches the URL over HTTP and evaluates the returned callback
//     script against a registry.
//   - Loopback records dispatched URLs and answers in process. It is used
//     in tests and for embedding a far end in the same binary.
//
// # Codec
//
// EncodeCall renders a callback invocation, ParseCalls reads the calls
// out of a script body. Only the call-with-JSON-argument subset of script
// is understood.
package transport
