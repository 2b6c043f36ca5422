// internal/selector/css.go
package selector

import (
	"strconv"

	"github.com/xkilldash9x/boxscope/internal/document"
)

// Synthesizer builds short CSS selectors that resolve to exactly one node of a document.
type Synthesizer struct {
	doc    *document.Document
	escape Escaper
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithEscaper swaps the identifier escaping primitive.
func WithEscaper(e Escaper) Option {
	return func(s *Synthesizer) {
		if e != nil {
			s.escape = e
		}
	}
}

// New creates a Synthesizer bound to doc.
func New(doc *document.Document, opts ...Option) *Synthesizer {
	s := &Synthesizer{doc: doc, escape: Escape}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectorFor returns a selector matching only n. Text nodes resolve through their
// parent element. The zero Node, or a text node without a parent, yields "".
func (s *Synthesizer) SelectorFor(n document.Node) string {
	if n.IsText() {
		parent, ok := n.ParentElement()
		if !ok {
			return ""
		}
		n = parent
	}
	if !n.IsElement() {
		return ""
	}

	// An id only helps if nobody else shares it.
	if id := n.ID(); id != "" {
		sel := "#" + s.escape(id)
		if s.unique(sel) {
			return sel
		}
	}

	tag := n.LocalName()
	switch tag {
	case "html", "head", "body":
		return tag
	}

	escapedTag := s.escape(tag)
	nth := ":nth-child(" + strconv.Itoa(n.ChildIndex()) + ")"

	for _, class := range n.Classes() {
		sel := "." + s.escape(class)
		if s.unique(sel) {
			return sel
		}
		sel = escapedTag + sel
		if s.unique(sel) {
			return sel
		}
		sel += nth
		if s.unique(sel) {
			return sel
		}
	}

	sel := escapedTag + nth
	if parent, ok := n.ParentElement(); ok {
		sel = s.SelectorFor(parent) + " > " + sel
	}
	return sel
}

func (s *Synthesizer) unique(sel string) bool {
	return s.doc.Count(sel) == 1
}
