package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/xsr/pkg/api"
)

func TestPassthrough(t *testing.T) {
	for _, payload := range []any{"ok", nil, map[string]any{"a": 1.0}, []any{1.0}} {
		got, err := Passthrough().Transform(payload)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestFunc(t *testing.T) {
	upper := Func[int](func(p any) (int, error) {
		s, _ := p.(string)
		return len(s), nil
	})
	got, err := upper.Transform("four")
	require.NoError(t, err)
	assert.Equal(t, 4, got)
}

func TestJSONRoundTrip(t *testing.T) {
	got, err := JSON[map[string]int]().Transform(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Value["a"])
	assert.Equal(t, `{"a":1}`, got.Text)
}

func TestJSONStructTarget(t *testing.T) {
	type item struct {
		Name  string   `json:"name"`
		Tags  []string `json:"tags"`
		Count int      `json:"count"`
	}
	got, err := JSON[item]().Transform(`{"name":"x","tags":["a","b"],"count":3}`)
	require.NoError(t, err)
	assert.Equal(t, item{Name: "x", Tags: []string{"a", "b"}, Count: 3}, got.Value)
}

func TestJSONStructuredPayload(t *testing.T) {
	payload := map[string]any{"a": 1.0, "b": []any{"x"}}
	got, err := JSON[map[string]any]().Transform(payload)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Value)
	assert.Empty(t, got.Text)
}

func TestJSONSecureRejectsObjectLiteral(t *testing.T) {
	_, err := JSON[map[string]any]().Transform(`{a: 1, 'b': 'two'}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &api.Error{Type: api.ErrorTypeDecodeFailure}))
}

func TestJSONLenientAcceptsObjectLiteral(t *testing.T) {
	got, err := JSON[map[string]any](WithSecure(false)).Transform(`{a: 1, 'b': 'two', 3: [true, null]}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0, "b": "two", "3": []any{true, nil}}, got.Value)
	assert.Equal(t, `{a: 1, 'b': 'two', 3: [true, null]}`, got.Text)
}

func TestJSONDecodeFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		opts    []JSONOption
	}{
		{"truncated", `{"a":`, nil},
		{"not json", `hello`, nil},
		{"type mismatch", `{"a":"x"}`, nil},
		{"lenient unbalanced", `{a: [1, 2}`, []JSONOption{WithSecure(false)}},
		{"structured mismatch", map[string]any{"a": "x"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := JSON[map[string]int](tt.opts...).Transform(tt.payload)
			require.Error(t, err)
			var apiErr *api.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, api.ErrorTypeDecodeFailure, apiErr.Type)
		})
	}
}
