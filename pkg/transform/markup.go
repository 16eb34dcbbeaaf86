package transform

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/rhuss/xsr/pkg/api"
	"github.com/rhuss/xsr/pkg/debug"
)

var (
	scriptPattern = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)
	bodyPattern   = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
)

// Fragment is the result of the Markup transform.
type Fragment struct {
	// Root is the detached container holding the parsed nodes.
	Root *html.Node
	// Tree holds the container's child nodes, or the filtered elements
	// when a filter is set.
	Tree []*html.Node
	// Elements holds every element below the container in document order.
	Elements []*html.Node
	// Text is the payload as delivered.
	Text string
	// Script is the text of all script blocks, joined by newlines.
	Script string
}

// HTML renders the nodes in Tree.
func (f *Fragment) HTML() (string, error) {
	var b strings.Builder
	for _, n := range f.Tree {
		if err := html.Render(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// Updater receives the script-free markup of each delivery.
type Updater interface {
	Update(markup string) error
}

// UpdaterFunc adapts a function into an Updater.
type UpdaterFunc func(markup string) error

// Update calls f(markup).
func (f UpdaterFunc) Update(markup string) error { return f(markup) }

// ScriptRunner evaluates extracted script text. *transport.Script
// satisfies it, so embedded callback invocations reach the registry.
type ScriptRunner interface {
	Evaluate(script string) (int, error)
}

type markupConfig struct {
	filter      func(*html.Node) bool
	update      Updater
	runner      ScriptRunner
	evalScripts *bool
}

// MarkupOption configures the Markup transform.
type MarkupOption func(*markupConfig)

// WithFilter replaces Tree with the elements matching keep.
func WithFilter(keep func(*html.Node) bool) MarkupOption {
	return func(c *markupConfig) { c.filter = keep }
}

// WithUpdate injects the script-free markup into u on every delivery.
func WithUpdate(u Updater) MarkupOption {
	return func(c *markupConfig) { c.update = u }
}

// WithScriptRunner evaluates extracted scripts with r.
func WithScriptRunner(r ScriptRunner) MarkupOption {
	return func(c *markupConfig) { c.runner = r }
}

// WithEvalScripts toggles script evaluation. It defaults to true when a
// runner is set.
func WithEvalScripts(eval bool) MarkupOption {
	return func(c *markupConfig) { c.evalScripts = &eval }
}

// Markup assembles a textual payload into a detached HTML node tree.
// Script blocks are removed before parsing and returned separately; when
// the payload has a body element only its content is kept.
func Markup(opts ...MarkupOption) Transform[*Fragment] {
	var cfg markupConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	eval := cfg.runner != nil
	if cfg.evalScripts != nil {
		eval = *cfg.evalScripts && cfg.runner != nil
	}

	return Func[*Fragment](func(payload any) (*Fragment, error) {
		raw, ok := text(payload)
		if !ok {
			return nil, api.NewDecodeError(fmt.Sprintf("markup payload must be text, got %T", payload), nil)
		}

		stripped, script := StripScripts(raw)
		content := stripped
		if m := bodyPattern.FindStringSubmatch(stripped); m != nil {
			content = m[1]
		}

		root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
		nodes, err := html.ParseFragment(strings.NewReader(content), root)
		if err != nil {
			return nil, api.NewDecodeError("invalid markup payload", err)
		}
		for _, n := range nodes {
			root.AppendChild(n)
		}

		f := &Fragment{Root: root, Text: raw, Script: script}
		for c := root.FirstChild; c != nil; c = c.NextSibling {
			f.Tree = append(f.Tree, c)
		}
		f.Elements = Descendants(root)

		if cfg.filter != nil {
			var kept []*html.Node
			for _, el := range f.Elements {
				if cfg.filter(el) {
					kept = append(kept, el)
				}
			}
			f.Tree = kept
		}
		if cfg.update != nil {
			if err := cfg.update.Update(stripped); err != nil {
				return nil, api.NewDecodeError("markup update failed", err)
			}
		}
		if eval && script != "" {
			n, err := cfg.runner.Evaluate(script)
			if err != nil {
				return nil, api.NewDecodeError("embedded script evaluation failed", err)
			}
			debug.Log("transform", "embedded script evaluated", "calls", n)
		}
		return f, nil
	})
}

// StripScripts removes every script block from markup and returns the
// remaining markup and the script bodies joined by newlines.
func StripScripts(markup string) (string, string) {
	var scripts []string
	stripped := scriptPattern.ReplaceAllStringFunc(markup, func(block string) string {
		m := scriptPattern.FindStringSubmatch(block)
		scripts = append(scripts, m[1])
		return ""
	})
	return stripped, strings.Join(scripts, "\n")
}

// Descendants returns all element nodes below n in document order.
func Descendants(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// HasClass reports whether the element n carries class name.
func HasClass(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == name {
					return true
				}
			}
		}
	}
	return false
}
