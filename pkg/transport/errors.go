package transport

import "errors"

var (
	// ErrNoCall means a script body contained no callback invocation.
	ErrNoCall = errors.New("script contains no callback invocation")

	// ErrMalformedCall means a script body could not be parsed as a
	// sequence of callback invocations.
	ErrMalformedCall = errors.New("malformed callback invocation")

	// ErrInvalidCallbackName means a callback name is not a valid
	// script identifier.
	ErrInvalidCallbackName = errors.New("invalid callback name")

	// ErrUnsupportedURL means the dispatch URL cannot be fetched.
	ErrUnsupportedURL = errors.New("unsupported dispatch url")

	// ErrRateLimited means the dispatch rate limit was exceeded.
	ErrRateLimited = errors.New("dispatch rate limit exceeded")
)
