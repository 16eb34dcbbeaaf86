package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var callbackNamePattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Call is one callback invocation read from a script.
type Call struct {
	Name string
	// Payload is the decoded argument: a string, float64, bool, nil,
	// []any or map[string]any.
	Payload any
}

// ValidCallbackName reports whether name can be invoked directly by a
// script.
func ValidCallbackName(name string) bool {
	return callbackNamePattern.MatchString(name)
}

// EncodeCall renders name(payload); with payload encoded as JSON. A
// string payload becomes a string literal, so the receiving side sees
// text rather than a structure.
func EncodeCall(name string, payload any) (string, error) {
	if !ValidCallbackName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCallbackName, name)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("encoding callback payload: %w", err)
	}
	return name + "(" + strings.TrimSuffix(buf.String(), "\n") + ");", nil
}

// ParseCalls reads every callback invocation in script. Statements are
// separated by optional semicolons; whitespace and comments are skipped.
// A call takes zero or one JSON argument.
func ParseCalls(script string) ([]Call, error) {
	p := &callParser{src: script}
	var calls []Call
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		if p.peek() == ';' {
			p.pos++
			continue
		}
		c, err := p.call()
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	if len(calls) == 0 {
		return nil, ErrNoCall
	}
	return calls, nil
}

type callParser struct {
	src string
	pos int
}

func (p *callParser) eof() bool  { return p.pos >= len(p.src) }
func (p *callParser) peek() byte { return p.src[p.pos] }

func (p *callParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrMalformedCall, p.pos, fmt.Sprintf(format, args...))
}

func (p *callParser) skipSpace() {
	for !p.eof() {
		switch {
		case strings.ContainsRune(" \t\r\n", rune(p.peek())):
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "//"):
			if i := strings.IndexByte(p.src[p.pos:], '\n'); i >= 0 {
				p.pos += i + 1
			} else {
				p.pos = len(p.src)
			}
		case strings.HasPrefix(p.src[p.pos:], "/*"):
			if i := strings.Index(p.src[p.pos+2:], "*/"); i >= 0 {
				p.pos += i + 4
			} else {
				p.pos = len(p.src)
			}
		default:
			return
		}
	}
}

func (p *callParser) call() (Call, error) {
	start := p.pos
	for !p.eof() && p.peek() != '(' && !strings.ContainsRune(" \t\r\n", rune(p.peek())) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if !ValidCallbackName(name) {
		p.pos = start
		return Call{}, p.errorf("expected callback name")
	}

	p.skipSpace()
	if p.eof() || p.peek() != '(' {
		return Call{}, p.errorf("expected '(' after %s", name)
	}
	p.pos++
	p.skipSpace()

	c := Call{Name: name}
	if !p.eof() && p.peek() == ')' {
		p.pos++
		return c, nil
	}

	dec := json.NewDecoder(strings.NewReader(p.src[p.pos:]))
	if err := dec.Decode(&c.Payload); err != nil {
		if err == io.EOF {
			return Call{}, p.errorf("unterminated call to %s", name)
		}
		return Call{}, fmt.Errorf("%w: argument of %s: %v", ErrMalformedCall, name, err)
	}
	p.pos += int(dec.InputOffset())

	p.skipSpace()
	if p.eof() || p.peek() != ')' {
		return Call{}, p.errorf("expected ')' to close call to %s", name)
	}
	p.pos++
	return c, nil
}
