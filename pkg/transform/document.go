package transform

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rhuss/xsr/pkg/api"
)

// Node is an element of a parsed document.
type Node struct {
	Name     string
	Space    string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Find returns all descendants of n with the given local name, in
// document order.
func (n *Node) Find(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
		out = append(out, c.Find(name)...)
	}
	return out
}

// Child returns the first direct child with the given local name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Parsed is the result of the Document transform.
type Parsed struct {
	Root *Node
	// Text is the payload as delivered.
	Text string
}

// Document parses a textual payload as a generic XML tag tree. Unlike
// Markup it performs no HTML specific extraction.
func Document() Transform[*Parsed] {
	return Func[*Parsed](func(payload any) (*Parsed, error) {
		raw, ok := text(payload)
		if !ok {
			return nil, api.NewDecodeError(fmt.Sprintf("document payload must be text, got %T", payload), nil)
		}
		root, err := parseDocument(raw)
		if err != nil {
			return nil, api.NewDecodeError("invalid document payload", err)
		}
		return &Parsed{Root: root, Text: raw}, nil
	})
}

func parseDocument(raw string) (*Node, error) {
	dec := xml.NewDecoder(strings.NewReader(raw))
	var (
		root  *Node
		stack []*Node
		buf   []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local, Space: t.Name.Space}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			buf = append(buf, &strings.Builder{})
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.Text = strings.TrimSpace(buf[len(buf)-1].String())
			stack = stack[:len(stack)-1]
			buf = buf[:len(buf)-1]
		case xml.CharData:
			if len(buf) > 0 {
				buf[len(buf)-1].Write(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}
