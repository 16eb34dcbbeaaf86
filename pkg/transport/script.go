package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rhuss/xsr/pkg/debug"
	"github.com/rhuss/xsr/pkg/registry"
)

const (
	// DefaultFetchTimeout bounds a single script fetch. Request timeouts
	// are enforced by the caller; this only keeps goroutines from
	// hanging forever on a dead connection.
	DefaultFetchTimeout = 2 * time.Minute

	// MaxScriptSize is the largest script body that is evaluated.
	MaxScriptSize = 10 << 20
)

// Script is the HTTP adapter. Dispatch fetches the URL in the background
// and evaluates the returned callback script against a registry.
type Script struct {
	client   *http.Client
	registry *registry.Registry
	limiter  *rate.Limiter
	logger   *slog.Logger
	now      func() time.Time

	artifacts *artifacts
	wg        sync.WaitGroup
}

// ScriptOption configures a Script adapter.
type ScriptOption func(*Script)

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(c *http.Client) ScriptOption {
	return func(s *Script) { s.client = c }
}

// WithRegistry sets the registry evaluated scripts invoke.
// Defaults to registry.Default().
func WithRegistry(r *registry.Registry) ScriptOption {
	return func(s *Script) { s.registry = r }
}

// WithRateLimit caps dispatches at rps per second with the given burst.
// Dispatches over the limit fail with ErrRateLimited instead of waiting.
func WithRateLimit(rps float64, burst int) ScriptOption {
	return func(s *Script) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithLogger sets the logger for fetch failures.
func WithLogger(l *slog.Logger) ScriptOption {
	return func(s *Script) { s.logger = l }
}

// NewScript creates a Script adapter.
func NewScript(opts ...ScriptOption) *Script {
	s := &Script{
		client:    &http.Client{Timeout: DefaultFetchTimeout},
		registry:  registry.Default(),
		logger:    slog.Default(),
		now:       time.Now,
		artifacts: newArtifacts(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch validates rawURL and starts fetching it. The fetch outlives
// ctx cancellation; only ctx values are carried over.
func (s *Script) Dispatch(ctx context.Context, rawURL string) (Handle, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
	if u.Host == "" {
		return 0, fmt.Errorf("%w: missing host", ErrUnsupportedURL)
	}
	if s.limiter != nil && !s.limiter.Allow() {
		return 0, ErrRateLimited
	}

	h := NewHandle()
	s.artifacts.add(h, rawURL, s.now())
	debug.Log("transport", "dispatch", "handle", uint64(h), "url", rawURL)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fetch(context.WithoutCancel(ctx), h, rawURL)
	}()
	return h, nil
}

// Teardown drops the artifact record for h. A fetch still in progress
// runs to completion and its script is still evaluated.
func (s *Script) Teardown(h Handle) {
	if art, ok := s.artifacts.remove(h); ok {
		debug.Log("transport", "teardown", "handle", uint64(h), "url", art.url, "fetched", art.done)
	}
}

// InFlight returns the number of artifacts not yet torn down.
func (s *Script) InFlight() int {
	return s.artifacts.len()
}

// Wait blocks until every started fetch has finished.
func (s *Script) Wait() {
	s.wg.Wait()
}

func (s *Script) fetch(ctx context.Context, h Handle, rawURL string) {
	start := s.now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		s.logger.Warn("script fetch failed", "url", rawURL, "error", err)
		return
	}
	req.Header.Set("Accept", "application/javascript, text/javascript, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("script fetch failed", "url", rawURL, "error", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxScriptSize))
	if err != nil {
		s.logger.Warn("script read failed", "url", rawURL, "error", err)
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// A failed script load never runs, so the request times out.
		s.logger.Warn("script fetch returned error status",
			"url", rawURL, "status", resp.StatusCode)
		return
	}

	if !s.artifacts.finish(h) {
		debug.Log("transport", "evaluating script after teardown", "handle", uint64(h))
	}
	debug.Log("transport", "script fetched", "handle", uint64(h),
		"bytes", len(body), "duration", s.now().Sub(start))
	debug.Trace("transport", "script body", "body", debug.Truncate(string(body), 4096))

	if _, err := s.Evaluate(string(body)); err != nil {
		s.logger.Warn("script evaluation failed", "url", rawURL, "error", err)
	}
}

// Evaluate runs every callback invocation in script against the
// registry and returns how many of them addressed a registered id.
func (s *Script) Evaluate(script string) (int, error) {
	calls, err := ParseCalls(script)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, c := range calls {
		if s.registry.Invoke(c.Name, c.Payload) {
			delivered++
		} else {
			debug.Log("transport", "call to unregistered callback", "name", c.Name)
		}
	}
	return delivered, nil
}
