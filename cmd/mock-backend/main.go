// Command mock-backend runs a deterministic far end that answers every
// request with a callback script, for exercising the xsr client.
//
// Routes (the callback name is read from ?callback=):
//
//	/echo       passes the query parameters back as an object
//	/text       passes a greeting string
//	/html       passes an HTML document with an inline script
//	/xml        passes an XML document
//	/slow       like /echo after ?delay= (default 2s, max 30s)
//	/silent     answers 200 without invoking the callback
//	/malformed  passes a string that is not valid JSON
//	/healthz    liveness probe
//	/metrics    Prometheus metrics
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/xsr/pkg/observability"
	xsrhttp "github.com/rhuss/xsr/pkg/transport/http"
)

const (
	callbackParam = "callback"
	defaultDelay  = 2 * time.Second
	maxDelay      = 30 * time.Second
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	srv := xsrhttp.NewServer(newMux(),
		[]xsrhttp.ServerOption{xsrhttp.WithAddr(":" + port)},
		observability.MetricsMiddleware,
	)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("mock backend failed", "error", err)
		os.Exit(1)
	}
}

func newMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /echo", xsrhttp.Endpoint(callbackParam, echo))
	mux.Handle("GET /text", xsrhttp.Endpoint(callbackParam, greeting))
	mux.Handle("GET /html", xsrhttp.Endpoint(callbackParam, htmlPage))
	mux.Handle("GET /xml", xsrhttp.Endpoint(callbackParam, xmlDocument))
	mux.Handle("GET /slow", xsrhttp.Endpoint(callbackParam, slow))
	mux.HandleFunc("GET /silent", silent)
	mux.Handle("GET /malformed", xsrhttp.Endpoint(callbackParam, malformed))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// echo returns the query parameters without the callback name.
func echo(r *http.Request) (any, error) {
	out := make(map[string]any)
	for k, v := range r.URL.Query() {
		if k == callbackParam {
			continue
		}
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = v
		}
	}
	return map[string]any{"path": r.URL.Path, "query": out}, nil
}

func greeting(r *http.Request) (any, error) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "world"
	}
	return "hello, " + name, nil
}

func htmlPage(r *http.Request) (any, error) {
	title := r.URL.Query().Get("title")
	if title == "" {
		title = "Mock page"
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>%[1]s</title></head>
<body>
<h1 class="title">%[1]s</h1>
<ul class="items"><li>one</li><li>two</li></ul>
<script>window.loaded = true;</script>
</body></html>`, htmlEscape(title)), nil
}

func xmlDocument(r *http.Request) (any, error) {
	n := r.URL.Query().Get("n")
	if n == "" {
		n = "2"
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<feed count="%s">
  <entry id="1"><title>first</title></entry>
  <entry id="2"><title>second</title></entry>
</feed>`, htmlEscape(n)), nil
}

// slow waits for ?delay= before echoing. A cancelled request ends the
// wait without an answer.
func slow(r *http.Request) (any, error) {
	delay := defaultDelay
	if v := r.URL.Query().Get("delay"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid delay: %w", err)
		}
		delay = min(d, maxDelay)
	}
	select {
	case <-time.After(delay):
	case <-r.Context().Done():
		return nil, r.Context().Err()
	}
	return echo(r)
}

// silent answers with a script that names no callback.
func silent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write([]byte("/* nothing to see */\n"))
}

func malformed(*http.Request) (any, error) {
	return `{"unterminated": `, nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func htmlEscape(s string) string {
	return htmlEscaper.Replace(s)
}
