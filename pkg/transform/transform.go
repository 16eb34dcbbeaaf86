// Package transform converts a delivered callback payload into a typed
// result.
//
// A transform is bound to a request at construction and runs once per
// successful delivery. It is pure with respect to the transport: it may
// parse and decode locally but never fetches. A transform error turns the
// delivery into a failure instead of a success.
//
// Variants:
//   - [Passthrough]: the payload unchanged
//   - [JSON]: structured data decode, returning the value and the original text
//   - [Markup]: HTML fragment assembly with script extraction
//   - [Document]: generic XML tag tree
package transform

// Transform converts a raw payload into a result of type T.
type Transform[T any] interface {
	Transform(payload any) (T, error)
}

// Func adapts an ordinary function into a Transform.
type Func[T any] func(payload any) (T, error)

// Transform calls f(payload).
func (f Func[T]) Transform(payload any) (T, error) {
	return f(payload)
}

// Passthrough returns the payload unchanged.
func Passthrough() Transform[any] {
	return Func[any](func(payload any) (any, error) {
		return payload, nil
	})
}

// text extracts a textual payload.
func text(payload any) (string, bool) {
	switch v := payload.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}
