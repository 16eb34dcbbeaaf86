package xsr

import (
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/rhuss/xsr/pkg/observability"
	"github.com/rhuss/xsr/pkg/registry"
	"github.com/rhuss/xsr/pkg/storage"
	"github.com/rhuss/xsr/pkg/transport"
)

// Option configures a Request.
type Option func(*options)

type options struct {
	registry  *registry.Registry
	transport transport.Adapter
	clock     clock.Clock
	newID     func() string
	logger    *slog.Logger
	collector *observability.Collector
	journal   storage.Journal
	name      string
}

// WithRegistry sets the callback registry. Defaults to registry.Default().
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithTransport sets the dispatch adapter. Defaults to a Script adapter
// bound to the request's registry.
func WithTransport(t transport.Adapter) Option {
	return func(o *options) { o.transport = t }
}

// WithClock sets the clock used for timeouts.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator sets the correlation id generator. Generated ids must
// be valid callback names.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCollector records lifecycle metrics.
func WithCollector(c *observability.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithJournal records one entry per finished invocation.
func WithJournal(j storage.Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithName labels the request in logs and journal entries.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}
