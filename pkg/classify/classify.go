// Package classify decides whether a node's text needs the rich-content
// (markdown-capable) shape.
//
// Classification is a pure predicate over the token set the markdown
// renderer recognizes. It never parses markdown; a single recognizable
// construct is enough to ask for rich rendering.
package classify

import (
	"regexp"

	"github.com/matzehuels/mdcanvas/pkg/diagram"
)

// Construct names a markdown-significant construct.
type Construct string

const (
	Emphasis      Construct = "emphasis"
	Heading       Construct = "heading"
	CodeSpan      Construct = "code-span"
	CodeBlock     Construct = "code-block"
	Link          Construct = "link"
	Image         Construct = "image"
	Table         Construct = "table"
	List          Construct = "list"
	Strikethrough Construct = "strikethrough"
	Highlight     Construct = "highlight"
)

type rule struct {
	construct Construct
	re        *regexp.Regexp
}

// Paired delimiters only count when the text right inside them is not
// whitespace, so "a == b == c" stays plain.
//
// Rules are checked in order; cheap and common constructs come first.
var rules = []rule{
	{CodeBlock, regexp.MustCompile("(?m)^\\s*(```|~~~)")},
	{CodeSpan, regexp.MustCompile("`[^`\\n]+`")},
	{Image, regexp.MustCompile(`!\[[^\]\n]*\]\([^)\s]+[^)\n]*\)`)},
	{Link, regexp.MustCompile(`\[[^\]\n]+\]\([^)\s]+[^)\n]*\)`)},
	{Heading, regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+\S`)},
	{Emphasis, regexp.MustCompile(`\*\*[^*\s](?:[^*\n]*[^*\s])?\*\*|__[^_\s](?:[^_\n]*[^_\s])?__`)},
	{Emphasis, regexp.MustCompile(`(?:^|[^\w*])\*[^*\s](?:[^*\n]*[^*\s])?\*(?:[^\w*]|$)`)},
	{Emphasis, regexp.MustCompile(`(?:^|[^\w_])_[^_\s](?:[^_\n]*[^_\s])?_(?:[^\w_]|$)`)},
	{Strikethrough, regexp.MustCompile(`~~[^~\s](?:[^~\n]*[^~\s])?~~`)},
	{Highlight, regexp.MustCompile(`==[^=\s](?:[^=\n]*[^=\s])?==`)},
	{Table, regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)},
	{Table, regexp.MustCompile(`(?m)^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)},
	{List, regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d{1,9}[.)])\s+\S`)},
}

// NeedsRichRendering reports whether text is non-empty and contains at least
// one markdown-significant construct.
func NeedsRichRendering(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range rules {
		if r.re.MatchString(text) {
			return true
		}
	}
	return false
}

// Constructs returns every distinct construct found in text, in rule order.
func Constructs(text string) []Construct {
	if text == "" {
		return nil
	}
	var out []Construct
	seen := make(map[Construct]bool)
	for _, r := range rules {
		if !seen[r.construct] && r.re.MatchString(text) {
			seen[r.construct] = true
			out = append(out, r.construct)
		}
	}
	return out
}

// IsRichContentNode reports whether n already has the rich-content shape.
func IsRichContentNode(n *diagram.Node) bool {
	return n != nil && n.Shape == diagram.ShapeRichContent
}
