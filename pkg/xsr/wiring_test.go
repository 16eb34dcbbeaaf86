package xsr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/xsr/pkg/api"
	"github.com/rhuss/xsr/pkg/observability"
	"github.com/rhuss/xsr/pkg/registry"
	"github.com/rhuss/xsr/pkg/storage"
	"github.com/rhuss/xsr/pkg/storage/memory"
	"github.com/rhuss/xsr/pkg/transform"
	"github.com/rhuss/xsr/pkg/transport"
	xsrhttp "github.com/rhuss/xsr/pkg/transport/http"
)

func TestJournalRecordsOutcomes(t *testing.T) {
	h := newHarness()
	j := memory.New(0)
	r, rec := newPassthrough(t, h, Config{Timeout: time.Second}, WithJournal(j), WithName("feed"))
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, Params{}))
	first := r.ID()
	h.deliverLast(t, "ok")

	require.NoError(t, r.Send(ctx, Params{}))
	second := r.ID()
	h.clock.Add(time.Second)
	require.Eventually(t, func() bool { return rec.count(api.EventTimeout) == 1 }, time.Second, 5*time.Millisecond)

	e, err := j.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "success", e.Outcome)
	assert.Equal(t, "feed", e.Name)
	assert.Contains(t, e.URL, "callback="+first)

	e, err = j.Get(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "timeout", e.Outcome)
	assert.Equal(t, time.Second, e.Duration())

	list, err := j.List(ctx, storage.ListOptions{Name: "feed"})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCollectorCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := observability.NewCollectorWithRegistry(reg)

	h := &harness{clock: clock.NewMock(), observer: &countingObserver{}}
	h.registry = registry.New(registry.WithClock(h.clock), registry.WithObserver(c))
	h.loopback = transport.NewLoopback(transport.WithLoopbackRegistry(h.registry))

	r, _ := newPassthrough(t, h, Config{Link: api.LinkCancel}, WithCollector(c))
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, Params{}))
	stale := r.ID()
	require.NoError(t, r.Send(ctx, Params{}))
	h.deliverLast(t, "ok")
	h.registry.Invoke(stale, "late")

	expected := `
# HELP xsr_requests_finished_total Finished invocations by outcome
# TYPE xsr_requests_finished_total counter
xsr_requests_finished_total{outcome="cancel"} 1
xsr_requests_finished_total{outcome="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "xsr_requests_finished_total"))

	expected = `
# HELP xsr_stale_deliveries_total Late deliveries absorbed after cancel or timeout
# TYPE xsr_stale_deliveries_total counter
xsr_stale_deliveries_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "xsr_stale_deliveries_total"))

	expected = `
# HELP xsr_requests_started_total Invocations that entered the pending state
# TYPE xsr_requests_started_total counter
xsr_requests_started_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "xsr_requests_started_total"))
}

type searchResult struct {
	Query string   `json:"query"`
	Hits  []string `json:"hits"`
}

func TestScriptTransportEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/search", xsrhttp.Endpoint("cb", func(req *http.Request) (any, error) {
		q := req.URL.Query().Get("q")
		return searchResult{Query: q, Hits: []string{q + "-1", q + "-2"}}, nil
	}))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	reg := registry.New()
	script := transport.NewScript(transport.WithRegistry(reg), transport.WithHTTPClient(srv.Client()))

	r, err := New(Config{
		URL:           srv.URL + "/search",
		CallbackParam: "cb",
		Timeout:       5 * time.Second,
	}, transform.JSON[searchResult](), WithRegistry(reg), WithTransport(script))
	require.NoError(t, err)

	done := make(chan Outcome[transform.Decoded[searchResult]], 1)
	r.OnComplete(func(o Outcome[transform.Decoded[searchResult]]) { done <- o })

	require.NoError(t, r.Send(context.Background(), Params{Data: map[string]string{"q": "gopher"}}))

	select {
	case out := <-done:
		require.True(t, out.OK(), "outcome %v: %v", out.State, out.Err)
		assert.Equal(t, "gopher", out.Result.Value.Query)
		assert.Equal(t, []string{"gopher-1", "gopher-2"}, out.Result.Value.Hits)
	case <-time.After(5 * time.Second):
		t.Fatal("no completion")
	}

	script.Wait()
	assert.Equal(t, 0, script.InFlight())
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, api.StateCompleted, r.State())
}

func TestScriptTransportMissingCallbackTimesOut(t *testing.T) {
	srv := httptest.NewServer(xsrhttp.Endpoint("cb", func(*http.Request) (any, error) {
		return "never", nil
	}))
	defer srv.Close()

	reg := registry.New()
	script := transport.NewScript(transport.WithRegistry(reg), transport.WithHTTPClient(srv.Client()))

	// The far end expects "cb" but the request sends "callback": the
	// endpoint answers 400 and nothing is delivered.
	r, err := New(Config{URL: srv.URL, Timeout: 200 * time.Millisecond}, transform.Passthrough(),
		WithRegistry(reg), WithTransport(script))
	require.NoError(t, err)

	done := make(chan Outcome[any], 1)
	r.OnComplete(func(o Outcome[any]) { done <- o })
	require.NoError(t, r.Send(context.Background(), Params{}))

	select {
	case out := <-done:
		assert.Equal(t, api.StateTimedOut, out.State)
	case <-time.After(5 * time.Second):
		t.Fatal("no completion")
	}
	assert.False(t, reg.IsLive(r.ID()))
}
