package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rhuss/xsr/pkg/config"
	xsrhttp "github.com/rhuss/xsr/pkg/transport/http"
)

func farEnd(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/echo", xsrhttp.Endpoint("callback", func(r *http.Request) (any, error) {
		return map[string]string{"q": r.URL.Query().Get("q")}, nil
	}))
	mux.Handle("/page", xsrhttp.Endpoint("callback", func(*http.Request) (any, error) {
		return `<body><p class="keep">a</p><p>b</p><script>go()</script></body>`, nil
	}))
	mux.HandleFunc("/silent", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("XSR_CONFIG", "")
	t.Setenv("XSR_URL", "")
	return srv
}

func TestRunJSON(t *testing.T) {
	srv := farEnd(t)
	var out bytes.Buffer

	err := run(context.Background(), []string{
		"--url", srv.URL + "/echo", "--data", "q=gopher", "--transform", "json", "--id-scheme", "uuid",
	}, &out)
	if err != nil {
		t.Fatalf("run() error: %v", err)
	}

	var got struct {
		Value map[string]string `json:"value"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if got.Value["q"] != "gopher" {
		t.Errorf("value.q = %q, want \"gopher\"", got.Value["q"])
	}
}

func TestRunHTMLSelect(t *testing.T) {
	srv := farEnd(t)
	var out bytes.Buffer

	err := run(context.Background(), []string{
		"-u", srv.URL + "/page", "-x", "html", "--select", "keep",
	}, &out)
	if err != nil {
		t.Fatalf("run() error: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["html"] != `<p class="keep">a</p>` {
		t.Errorf("html = %q, want only the selected element", got["html"])
	}
	if got["script"] != "go()" {
		t.Errorf("script = %q, want \"go()\"", got["script"])
	}
}

func TestRunTimeout(t *testing.T) {
	srv := farEnd(t)

	err := run(context.Background(), []string{"--url", srv.URL + "/silent", "--timeout", "100ms"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("run() error = %v, want timeout", err)
	}
}

func TestRunInterrupted(t *testing.T) {
	srv := farEnd(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, []string{"--url", srv.URL + "/silent"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "interrupted") {
		t.Errorf("run() error = %v, want interrupted", err)
	}
}

func TestRunFormValidation(t *testing.T) {
	srv := farEnd(t)
	cfgFile := filepath.Join(t.TempDir(), "xsr.yaml")
	yaml := `
form:
  fields:
    q: "required minLength(3)"
`
	if err := os.WriteFile(cfgFile, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), []string{"-c", cfgFile, "--url", srv.URL + "/echo", "-d", "q=go"}, &bytes.Buffer{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("run() error = %v, want ErrInvalidInput", err)
	}

	var out bytes.Buffer
	err = run(context.Background(), []string{"-c", cfgFile, "--url", srv.URL + "/echo", "-d", "q=gopher"}, &out)
	if err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if !strings.Contains(out.String(), "gopher") {
		t.Errorf("output = %q, want the echoed value", out.String())
	}
}

func TestRunRequiresURL(t *testing.T) {
	farEnd(t)

	err := run(context.Background(), nil, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "no URL") {
		t.Errorf("run() error = %v, want missing URL", err)
	}
}

func TestOptionsApply(t *testing.T) {
	cfg := config.Defaults()
	opts := Options{
		URL:         "https://api.example.test",
		Data:        []string{"a=1", "b=x=y"},
		Journal:     "memory",
		MetricsAddr: "127.0.0.1:0",
	}

	if err := opts.apply(&cfg); err != nil {
		t.Fatalf("apply() error: %v", err)
	}
	if cfg.Client.Data["a"] != "1" || cfg.Client.Data["b"] != "x=y" {
		t.Errorf("client.data = %v, want a=1 b=x=y", cfg.Client.Data)
	}
	if cfg.Journal.Type != "memory" {
		t.Errorf("journal.type = %q, want \"memory\"", cfg.Journal.Type)
	}
	if !cfg.Observability.Metrics.Enabled {
		t.Error("metrics not enabled by --metrics-addr")
	}

	bad := Options{Data: []string{"novalue"}}
	if err := bad.apply(&cfg); err == nil {
		t.Error("apply() accepted --data without '='")
	}
}
