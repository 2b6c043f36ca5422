// internal/document/document.go
package document

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ErrNotFound is returned when a lookup matches no pickable node.
var ErrNotFound = errors.New("node not found")

// Document is an immutable view over an html.Node tree rooted at a document node.
type Document struct {
	root *html.Node

	// cascadia folds type selectors to lower case, so mixed-case foreign
	// elements (linearGradient, foreignObject) are matched against a folded copy.
	foldOnce sync.Once
	folded   *html.Node
	origin   map[*html.Node]*html.Node
}

// New wraps an existing tree. A non-document root is re-parented under a fresh
// document node so that "is the parent the root" checks stay uniform.
func New(root *html.Node) *Document {
	if root == nil {
		root = &html.Node{Type: html.DocumentNode}
	}
	if root.Type != html.DocumentNode && root.Parent == nil {
		doc := &html.Node{Type: html.DocumentNode}
		doc.AppendChild(root)
		root = doc
	}
	return &Document{root: root}
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return New(root), nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Walk visits every element and text node in document order. Returning false stops the walk.
func (d *Document) Walk(fn func(Node) bool) {
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if node := Wrap(n); node.Valid() {
			if !fn(node) {
				return false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(d.root)
}

// Nodes collects the result of Walk.
func (d *Document) Nodes() []Node {
	var nodes []Node
	d.Walk(func(n Node) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// QueryAll evaluates a CSS selector against the whole document, like querySelectorAll.
func (d *Document) QueryAll(selector string) ([]Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	root, origin := d.matchRoot()
	matches := sel.MatchAll(root)
	nodes := make([]Node, 0, len(matches))
	for _, m := range matches {
		nodes = append(nodes, Wrap(origin(m)))
	}
	return nodes, nil
}

// Count returns how many elements match selector. Invalid selectors match nothing.
func (d *Document) Count(selector string) int {
	nodes, err := d.QueryAll(selector)
	if err != nil {
		return 0
	}
	return len(nodes)
}

// QuerySelector returns the first match of selector.
func (d *Document) QuerySelector(selector string) (Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return Node{}, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	root, origin := d.matchRoot()
	m := sel.MatchFirst(root)
	if m == nil {
		return Node{}, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return Wrap(origin(m)), nil
}

// matchRoot returns the tree CSS selectors run against and the mapping back
// to the nodes of d.
func (d *Document) matchRoot() (*html.Node, func(*html.Node) *html.Node) {
	d.foldOnce.Do(d.fold)
	if d.folded == nil {
		return d.root, func(n *html.Node) *html.Node { return n }
	}
	return d.folded, func(n *html.Node) *html.Node { return d.origin[n] }
}

func (d *Document) fold() {
	mixed := false
	d.Walk(func(n Node) bool {
		if n.IsElement() && n.n.Data != strings.ToLower(n.n.Data) {
			mixed = true
			return false
		}
		return true
	})
	if !mixed {
		return
	}
	d.origin = make(map[*html.Node]*html.Node)
	d.folded = foldTree(d.root, d.origin)
}

func foldTree(n *html.Node, origin map[*html.Node]*html.Node) *html.Node {
	c := &html.Node{Type: n.Type, DataAtom: n.DataAtom, Data: n.Data, Namespace: n.Namespace, Attr: n.Attr}
	if n.Type == html.ElementNode {
		c.Data = strings.ToLower(n.Data)
	}
	origin[c] = n
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(foldTree(ch, origin))
	}
	return c
}

// ElementByID returns the first element carrying id.
func (d *Document) ElementByID(id string) (Node, bool) {
	if id == "" {
		return Node{}, false
	}
	var found Node
	d.Walk(func(n Node) bool {
		if n.IsElement() && n.ID() == id {
			found = n
			return false
		}
		return true
	})
	return found, found.Valid()
}

// FindXPath resolves an XPath expression to a single element or text node.
func (d *Document) FindXPath(expr string) (Node, error) {
	n, err := htmlquery.Query(d.root, expr)
	if err != nil {
		return Node{}, fmt.Errorf("invalid XPath %q: %w", expr, err)
	}
	node := Wrap(n)
	if !node.Valid() {
		return Node{}, fmt.Errorf("%w: %s", ErrNotFound, expr)
	}
	return node, nil
}

// CountXPath returns how many nodes an XPath expression selects. Invalid expressions select none.
func (d *Document) CountXPath(expr string) int {
	nodes, err := htmlquery.QueryAll(d.root, expr)
	if err != nil {
		return 0
	}
	return len(nodes)
}
