package transform

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/xsr/pkg/api"
	"github.com/rhuss/xsr/pkg/debug"
)

// Decoded is the result of the JSON transform.
type Decoded[V any] struct {
	Value V
	// Text is the payload as delivered when it was textual, empty when the
	// far end passed a structure directly.
	Text string
}

type jsonConfig struct {
	secure bool
}

// JSONOption configures the JSON transform.
type JSONOption func(*jsonConfig)

// WithSecure selects strict JSON decoding (the default). With secure off,
// object-literal syntax is accepted too: unquoted keys, single quoted
// strings and flow-style collections.
func WithSecure(secure bool) JSONOption {
	return func(c *jsonConfig) { c.secure = secure }
}

// JSON decodes textual payloads into V. Structured payloads are
// re-encoded into V.
func JSON[V any](opts ...JSONOption) Transform[Decoded[V]] {
	cfg := jsonConfig{secure: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return Func[Decoded[V]](func(payload any) (Decoded[V], error) {
		var out Decoded[V]
		s, isText := text(payload)
		if !isText {
			if err := convert(payload, &out.Value); err != nil {
				return out, api.NewDecodeError("payload does not match result type", err)
			}
			return out, nil
		}

		out.Text = s
		if cfg.secure {
			if err := json.Unmarshal([]byte(s), &out.Value); err != nil {
				debug.Log("transform", "strict decode failed", "error", err, "text", debug.Truncate(s, 256))
				return out, api.NewDecodeError("invalid JSON payload", err)
			}
			return out, nil
		}

		var loose any
		if err := yaml.Unmarshal([]byte(s), &loose); err != nil {
			debug.Log("transform", "lenient decode failed", "error", err, "text", debug.Truncate(s, 256))
			return out, api.NewDecodeError("invalid object literal payload", err)
		}
		if err := convert(normalize(loose), &out.Value); err != nil {
			return out, api.NewDecodeError("payload does not match result type", err)
		}
		return out, nil
	})
}

// convert moves a generic structure into dst through its JSON encoding,
// so dst's json tags apply.
func convert(src any, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// normalize turns the map[any]any nodes yaml produces for non-string
// keys into map[string]any so the tree can be JSON encoded.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	}
	return v
}
