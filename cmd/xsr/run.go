package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/html"

	"github.com/rhuss/xsr/pkg/api"
	"github.com/rhuss/xsr/pkg/config"
	"github.com/rhuss/xsr/pkg/debug"
	"github.com/rhuss/xsr/pkg/observability"
	"github.com/rhuss/xsr/pkg/registry"
	"github.com/rhuss/xsr/pkg/storage"
	"github.com/rhuss/xsr/pkg/storage/memory"
	"github.com/rhuss/xsr/pkg/storage/postgres"
	"github.com/rhuss/xsr/pkg/transform"
	"github.com/rhuss/xsr/pkg/transport"
	xsrhttp "github.com/rhuss/xsr/pkg/transport/http"
	"github.com/rhuss/xsr/pkg/validate"
	"github.com/rhuss/xsr/pkg/xsr"
)

// ErrInvalidInput is returned when the request data fails form validation.
var ErrInvalidInput = errors.New("invalid input")

func run(ctx context.Context, args []string, out io.Writer) error {
	var opts Options
	if _, err := flags.ParseArgs(&opts, args); err != nil {
		return err
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	if err := opts.apply(cfg); err != nil {
		return fmt.Errorf("flags: %w", err)
	}
	logger := debug.Init(cfg.Debug.Categories, cfg.Debug.Level, cfg.Debug.Format)

	if cfg.Client.URL == "" {
		return errors.New("no URL: set --url, client.url or XSR_URL")
	}

	st, err := newStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	switch opts.Transform {
	case "json":
		return execute(ctx, st, transform.JSON[any](transform.WithSecure(!opts.InsecureJSON)), renderDecoded, out)
	case "html":
		var mopts []transform.MarkupOption
		if opts.Select != "" {
			mopts = append(mopts, transform.WithFilter(func(n *html.Node) bool {
				return transform.HasClass(n, opts.Select)
			}))
		}
		return execute(ctx, st, transform.Markup(mopts...), renderFragment, out)
	case "xml":
		return execute(ctx, st, transform.Document(), renderDocument, out)
	default:
		return execute(ctx, st, transform.Passthrough(), func(v any) (any, error) { return v, nil }, out)
	}
}

// stack holds the components shared by every request of one run.
type stack struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *registry.Registry
	transport *transport.Script
	collector *observability.Collector
	journal   storage.Journal
	validator *validate.Validator
	metrics   *xsrhttp.Server
	stop      context.CancelFunc
}

func newStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stack, error) {
	promReg := prometheus.NewRegistry()
	st := &stack{
		cfg:       cfg,
		logger:    logger,
		collector: observability.NewCollectorWithRegistry(promReg),
		stop:      func() {},
	}

	st.registry = registry.New(
		registry.WithAbsorbTTL(cfg.Registry.AbsorbTTL),
		registry.WithMaxAttempts(cfg.Registry.MaxAttempts),
		registry.WithObserver(st.collector),
	)

	topts := []transport.ScriptOption{
		transport.WithRegistry(st.registry),
		transport.WithHTTPClient(&http.Client{Timeout: cfg.Transport.FetchTimeout}),
		transport.WithLogger(logger),
	}
	if cfg.Transport.RateLimit > 0 {
		topts = append(topts, transport.WithRateLimit(cfg.Transport.RateLimit, cfg.Transport.RateBurst))
	}
	st.transport = transport.NewScript(topts...)

	switch cfg.Journal.Type {
	case "memory":
		st.journal = memory.New(cfg.Journal.MaxSize)
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Journal.Postgres.DSN,
			MaxConns:       cfg.Journal.Postgres.MaxConns,
			MigrateOnStart: cfg.Journal.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		st.journal = pg
	}

	if len(cfg.Form.Fields) > 0 {
		st.validator = newValidator(cfg, logger)
	}

	if cfg.Observability.Metrics.Enabled {
		ln, err := net.Listen("tcp", cfg.Observability.Metrics.Addr)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle(cfg.Observability.Metrics.Path, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		st.metrics = xsrhttp.NewServer(mux, []xsrhttp.ServerOption{xsrhttp.WithLogger(logger)})

		mctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		st.stop = cancel
		go func() {
			if err := st.metrics.ServeOn(mctx, ln); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}
	return st, nil
}

// newValidator builds a form over the configured data keys.
func newValidator(cfg *config.Config, logger *slog.Logger) *validate.Validator {
	v := validate.New(validate.WithMessages(cfg.Form.Messages), validate.WithLogger(logger))
	for name, annotation := range cfg.Form.Fields {
		v.Add(&validate.Input{FieldName: name, Text: cfg.Client.Data[name], Class: annotation})
	}
	v.OnInvalidField(func(f validate.Field, messages []string) {
		logger.Error("invalid field", "field", f.Name(), "messages", strings.Join(messages, " "))
	})
	return v
}

func (st *stack) idGenerator() func() string {
	if st.cfg.Client.IDScheme == "uuid" {
		return api.UUIDCallbackID
	}
	return api.NewCallbackID
}

// Close stops the metrics server and closes the journal.
func (st *stack) Close() {
	st.stop()
	if st.journal != nil {
		if err := st.journal.Close(); err != nil {
			st.logger.Warn("closing journal", "error", err)
		}
	}
}

// execute sends one request with tr and writes the rendered result.
func execute[T any](ctx context.Context, st *stack, tr transform.Transform[T], render func(T) (any, error), out io.Writer) error {
	c := st.cfg.Client
	ropts := []xsr.Option{
		xsr.WithRegistry(st.registry),
		xsr.WithTransport(st.transport),
		xsr.WithIDGenerator(st.idGenerator()),
		xsr.WithLogger(st.logger),
		xsr.WithCollector(st.collector),
		xsr.WithName(c.Name),
	}
	if st.journal != nil {
		ropts = append(ropts, xsr.WithJournal(st.journal))
	}

	req, err := xsr.New(xsr.Config{
		URL:           c.URL,
		Data:          c.Data,
		CallbackParam: c.CallbackParam,
		Timeout:       c.Timeout,
		Link:          api.LinkPolicy(c.Link),
	}, tr, ropts...)
	if err != nil {
		return err
	}

	done := make(chan xsr.Outcome[T], 1)
	req.OnComplete(func(o xsr.Outcome[T]) { done <- o })

	send := func() error { return req.Send(ctx, xsr.Params{}) }
	if st.validator != nil {
		valid, err := st.validator.Submit(send)
		if !valid {
			return ErrInvalidInput
		}
		if err != nil {
			return err
		}
	} else if err := send(); err != nil {
		return err
	}

	var o xsr.Outcome[T]
	select {
	case o = <-done:
	case <-ctx.Done():
		req.Cancel()
		o = <-done
	}
	st.logger.Info("request finished", "id", o.ID, "outcome", api.OutcomeFor(o.State), "duration", o.Duration.Round(time.Millisecond))

	switch o.State {
	case api.StateCompleted:
	case api.StateTimedOut:
		return fmt.Errorf("request %s timed out after %s", o.ID, c.Timeout)
	case api.StateCancelled:
		return fmt.Errorf("request %s interrupted", o.ID)
	default:
		return fmt.Errorf("request %s failed: %w", o.ID, o.Err)
	}

	v, err := render(o.Result)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func renderDecoded(d transform.Decoded[any]) (any, error) {
	return map[string]any{"value": d.Value, "text": d.Text}, nil
}

func renderFragment(f *transform.Fragment) (any, error) {
	markup, err := f.HTML()
	if err != nil {
		return nil, err
	}
	return map[string]any{"html": markup, "script": f.Script}, nil
}

func renderDocument(p *transform.Parsed) (any, error) {
	return map[string]any{"root": p.Root}, nil
}
