package xsr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rhuss/xsr/pkg/api"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		data map[string]string
		want string
	}{
		{"bare", "https://h.test/p", nil, "https://h.test/p?callback=xsr_1"},
		{"existing query", "https://h.test/p?a=1", nil, "https://h.test/p?a=1&callback=xsr_1"},
		{"trailing question mark", "https://h.test/p?", nil, "https://h.test/p?callback=xsr_1"},
		{"trailing ampersand", "https://h.test/p?a=1&", nil, "https://h.test/p?a=1&callback=xsr_1"},
		{"data encoded", "https://h.test/p", map[string]string{"q": "a b&c"}, "https://h.test/p?callback=xsr_1&q=a+b%26c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildURL(tt.base, tt.data, "callback", "xsr_1"))
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{URL: "https://h.test"}.withDefaults()

	assert.Equal(t, DefaultCallbackParam, cfg.CallbackParam)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, api.LinkNone, cfg.Link)
}

func TestConfigMerge(t *testing.T) {
	base := Config{
		URL:           "https://h.test/a",
		Data:          map[string]string{"q": "go", "page": "1"},
		CallbackParam: "callback",
		Timeout:       time.Second,
		Link:          api.LinkNone,
	}

	got := base.merge(Params{
		URL:     "https://h.test/b",
		Data:    map[string]string{"page": "2"},
		Timeout: 2 * time.Second,
		Link:    api.LinkChain,
	})

	assert.Equal(t, "https://h.test/b", got.URL)
	assert.Equal(t, map[string]string{"q": "go", "page": "2"}, got.Data)
	assert.Equal(t, "callback", got.CallbackParam)
	assert.Equal(t, 2*time.Second, got.Timeout)
	assert.Equal(t, api.LinkChain, got.Link)

	// The receiver is unchanged.
	assert.Equal(t, "1", base.Data["page"])
}
