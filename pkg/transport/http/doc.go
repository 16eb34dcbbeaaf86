// Package http serves the far end of the script-callback protocol.
//
// A far-end endpoint reads the callback id from a query parameter,
// computes a payload and answers with a script that invokes the callback:
//
//	mux.Handle("GET /echo", http.Endpoint("callback", func(r *gohttp.Request) (any, error) {
//		return r.URL.Query().Get("msg"), nil
//	}))
//
// Server wraps such handlers with panic recovery, X-Request-ID
// propagation and structured access logging, and shuts down gracefully
// on SIGINT or SIGTERM.
package http
