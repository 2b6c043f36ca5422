// internal/document/node.go
package document

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/boxscope/api/schemas"
)

// Kind discriminates the two node variants that take part in picking.
type Kind int

const (
	// Invalid is the zero Node.
	Invalid Kind = iota
	Element
	Text
)

func (k Kind) String() string {
	switch k {
	case Element:
		return "element"
	case Text:
		return "text"
	default:
		return "invalid"
	}
}

// Node is a non-owning handle to an element or text node of a Document.
// Nodes are comparable and can be used as map keys.
type Node struct {
	kind Kind
	n    *html.Node
}

// Wrap classifies an html.Node. Comments, doctypes and documents are not pickable
// and yield the zero Node.
func Wrap(n *html.Node) Node {
	if n == nil {
		return Node{}
	}
	switch n.Type {
	case html.ElementNode:
		return Node{kind: Element, n: n}
	case html.TextNode:
		return Node{kind: Text, n: n}
	default:
		return Node{}
	}
}

func (n Node) Kind() Kind       { return n.kind }
func (n Node) Valid() bool      { return n.kind != Invalid }
func (n Node) IsElement() bool  { return n.kind == Element }
func (n Node) IsText() bool     { return n.kind == Text }
func (n Node) HTML() *html.Node { return n.n }

// LocalName is the tag name of an element, empty for text. HTML names are
// lower case; SVG and MathML names keep their case (linearGradient).
func (n Node) LocalName() string {
	if n.kind != Element {
		return ""
	}
	if n.n.Namespace == "" || n.n.Namespace == "html" {
		return strings.ToLower(n.n.Data)
	}
	return n.n.Data
}

// NodeName follows the DOM nodeName convention: "DIV" for elements, "#text" for text.
func (n Node) NodeName() string {
	switch n.kind {
	case Element:
		if n.n.Namespace == "" || n.n.Namespace == "html" {
			return strings.ToUpper(n.n.Data)
		}
		return n.n.Data
	case Text:
		return "#text"
	default:
		return ""
	}
}

// Data returns the character data of a text node.
func (n Node) Data() string {
	if n.kind != Text {
		return ""
	}
	return n.n.Data
}

// Attributes enumerates the attributes of an element in source order. Text nodes have none.
func (n Node) Attributes() []schemas.Attribute {
	if n.kind != Element {
		return nil
	}
	attrs := make([]schemas.Attribute, 0, len(n.n.Attr))
	for _, a := range n.n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		attrs = append(attrs, schemas.Attribute{Name: name, Value: a.Val})
	}
	return attrs
}

// Attr looks up a single attribute by name.
func (n Node) Attr(name string) (string, bool) {
	if n.kind != Element {
		return "", false
	}
	for _, a := range n.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// ID returns the id attribute, or "".
func (n Node) ID() string {
	id, _ := n.Attr("id")
	return id
}

// Classes returns the class list in order with duplicates removed, like DOMTokenList.
func (n Node) Classes() []string {
	raw, ok := n.Attr("class")
	if !ok {
		return nil
	}
	fields := strings.Fields(raw)
	seen := make(map[string]struct{}, len(fields))
	classes := fields[:0]
	for _, c := range fields {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		classes = append(classes, c)
	}
	return classes
}

// ParentElement returns the closest element ancestor. The second result is false
// when the node hangs directly off the document root.
func (n Node) ParentElement() (Node, bool) {
	if !n.Valid() {
		return Node{}, false
	}
	for p := n.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return Node{kind: Element, n: p}, true
		}
		if p.Type == html.DocumentNode {
			break
		}
	}
	return Node{}, false
}

// ChildIndex is the 1-based position of an element among its parent's element
// children, matching :nth-child. A parentless element is child 1.
func (n Node) ChildIndex() int {
	if n.kind != Element {
		return 0
	}
	index := 1
	for prev := n.n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.ElementNode {
			index++
		}
	}
	return index
}

// TextIndex is the 1-based position of a text node among its sibling text nodes,
// matching XPath text()[i].
func (n Node) TextIndex() int {
	if n.kind != Text {
		return 0
	}
	index := 1
	for prev := n.n.PrevSibling; prev != nil; prev = prev.PrevSibling {
		if prev.Type == html.TextNode {
			index++
		}
	}
	return index
}
