package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/rhuss/xsr/pkg/config"
)

// Options are the command-line flags. Zero values leave the configured
// setting unchanged.
type Options struct {
	Config        string        `short:"c" long:"config" description:"config file (default: $XSR_CONFIG, ./xsr.yaml, /etc/xsr/xsr.yaml)"`
	URL           string        `short:"u" long:"url" description:"endpoint URL"`
	Data          []string      `short:"d" long:"data" description:"query parameter as key=value, repeatable"`
	Timeout       time.Duration `short:"t" long:"timeout" description:"time to wait for the callback"`
	CallbackParam string        `long:"callback-param" description:"query parameter carrying the callback name"`
	Transform     string        `short:"x" long:"transform" default:"passthrough" choice:"passthrough" choice:"json" choice:"html" choice:"xml" description:"response transform"`
	InsecureJSON  bool          `long:"insecure-json" description:"accept object-literal syntax in JSON payloads"`
	Select        string        `long:"select" description:"with --transform html, keep only elements with this class"`
	IDScheme      string        `long:"id-scheme" choice:"random" choice:"uuid" description:"correlation id generator"`
	Name          string        `short:"n" long:"name" description:"request name for logs and the journal"`
	Journal       string        `long:"journal" choice:"none" choice:"memory" choice:"postgres" description:"outcome journal"`
	MetricsAddr   string        `long:"metrics-addr" description:"serve Prometheus metrics on this address while the request runs"`
	Debug         string        `long:"debug" description:"debug categories, e.g. request,transport or all"`
}

// apply overrides cfg with the flags that were set.
func (o *Options) apply(cfg *config.Config) error {
	if o.URL != "" {
		cfg.Client.URL = o.URL
	}
	if len(o.Data) > 0 {
		data, err := parseData(o.Data)
		if err != nil {
			return err
		}
		if cfg.Client.Data == nil {
			cfg.Client.Data = make(map[string]string, len(data))
		}
		for k, v := range data {
			cfg.Client.Data[k] = v
		}
	}
	if o.Timeout != 0 {
		cfg.Client.Timeout = o.Timeout
	}
	if o.CallbackParam != "" {
		cfg.Client.CallbackParam = o.CallbackParam
	}
	if o.IDScheme != "" {
		cfg.Client.IDScheme = o.IDScheme
	}
	if o.Name != "" {
		cfg.Client.Name = o.Name
	}
	if o.Journal != "" {
		cfg.Journal.Type = o.Journal
	}
	if o.MetricsAddr != "" {
		cfg.Observability.Metrics.Enabled = true
		cfg.Observability.Metrics.Addr = o.MetricsAddr
	}
	if o.Debug != "" {
		cfg.Debug.Categories = o.Debug
	}
	return cfg.Validate()
}

func parseData(pairs []string) (map[string]string, error) {
	data := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--data %q: want key=value", p)
		}
		data[k] = v
	}
	return data, nil
}
