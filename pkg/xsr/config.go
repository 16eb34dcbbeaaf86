package xsr

import (
	"fmt"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/rhuss/xsr/pkg/api"
)

const (
	// DefaultTimeout is the time a request waits for its callback.
	DefaultTimeout = 30 * time.Second

	// DefaultCallbackParam names the query parameter carrying the id.
	DefaultCallbackParam = "callback"
)

// Config is the per-request configuration.
type Config struct {
	URL           string
	Data          map[string]string
	CallbackParam string
	Timeout       time.Duration
	Link          api.LinkPolicy
}

// Params overrides configuration for one Send. Overrides persist: the
// next Send starts from the merged configuration. Data keys are merged
// into the existing data.
type Params struct {
	URL           string
	Data          map[string]string
	CallbackParam string
	Timeout       time.Duration
	Link          api.LinkPolicy
}

func (c Config) withDefaults() Config {
	if c.CallbackParam == "" {
		c.CallbackParam = DefaultCallbackParam
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Link == "" {
		c.Link = api.LinkNone
	}
	return c
}

func (c Config) validate() error {
	if c.Timeout < 0 {
		return api.NewInvalidRequestError(fmt.Sprintf("timeout must not be negative, got %s", c.Timeout))
	}
	if _, err := api.ParseLinkPolicy(string(c.Link)); err != nil {
		return api.NewInvalidRequestError(err.Error())
	}
	return nil
}

func (c Config) clone() Config {
	c.Data = maps.Clone(c.Data)
	return c
}

// merge applies p on top of c.
func (c Config) merge(p Params) Config {
	c = c.clone()
	if p.URL != "" {
		c.URL = p.URL
	}
	if len(p.Data) > 0 {
		if c.Data == nil {
			c.Data = make(map[string]string, len(p.Data))
		}
		maps.Copy(c.Data, p.Data)
	}
	if p.CallbackParam != "" {
		c.CallbackParam = p.CallbackParam
	}
	if p.Timeout != 0 {
		c.Timeout = p.Timeout
	}
	if p.Link != "" {
		c.Link = p.Link
	}
	return c
}

// buildURL appends data and the callback id to base as a query string.
func buildURL(base string, data map[string]string, param, id string) string {
	q := url.Values{}
	for k, v := range data {
		q.Set(k, v)
	}
	q.Set(param, id)

	sep := "?"
	switch {
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
		sep = ""
	case strings.Contains(base, "?"):
		sep = "&"
	}
	return base + sep + q.Encode()
}
