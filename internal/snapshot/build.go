// internal/snapshot/build.go
package snapshot

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/boxscope/internal/document"
	"github.com/xkilldash9x/boxscope/internal/geometry"
)

type levelQuads [len(geometry.Levels)][]geometry.Quad

// Provider answers box quad queries for the nodes of a built snapshot.
type Provider struct {
	quads map[*html.Node]*levelQuads
}

// BoxQuads returns the quads of n at level, or nil if n is not laid out.
func (p *Provider) BoxQuads(n document.Node, level geometry.BoxLevel) []geometry.Quad {
	if p == nil || !n.Valid() || int(level) < 0 || int(level) >= len(geometry.Levels) {
		return nil
	}
	boxes, ok := p.quads[n.HTML()]
	if !ok {
		return nil
	}
	return boxes[level]
}

// Len is the number of nodes with at least one quad.
func (p *Provider) Len() int { return len(p.quads) }

// Build materializes the snapshot into a queryable document and a geometry
// provider keyed by the nodes of that document.
func Build(snap *Snapshot) (*document.Document, *Provider, error) {
	if snap == nil || snap.Root == nil {
		return nil, nil, ErrEmptySnapshot
	}
	p := &Provider{quads: make(map[*html.Node]*levelQuads)}

	root, err := p.build(snap.Root, "", "root")
	if err != nil {
		return nil, nil, err
	}
	if root.FirstChild == nil && root.Type == html.DocumentNode {
		return nil, nil, ErrEmptySnapshot
	}
	return document.New(root), p, nil
}

// build converts sn. ns is the namespace its children inherit: svg and math
// open a foreign subtree, foreignObject goes back to HTML.
func (p *Provider) build(sn *Node, ns, path string) (*html.Node, error) {
	var n *html.Node
	switch sn.Type {
	case TypeDocument:
		n = &html.Node{Type: html.DocumentNode}
	case TypeElement:
		if sn.Name == "" {
			return nil, fmt.Errorf("%s: element without a name", path)
		}
		name := sn.Name
		switch lower := strings.ToLower(name); {
		case ns == "" && (lower == "svg" || lower == "math"):
			ns, name = lower, lower
		case ns == "":
			name = lower
		}
		n = &html.Node{Type: html.ElementNode, Data: name, DataAtom: atom.Lookup([]byte(name)), Namespace: ns}
		if ns == "svg" && name == "foreignObject" {
			ns = ""
		}
		for _, a := range sn.Attributes {
			n.Attr = append(n.Attr, html.Attribute{Key: a.Name, Val: a.Value})
		}
	case TypeText:
		n = &html.Node{Type: html.TextNode, Data: sn.Text}
	default:
		return nil, fmt.Errorf("%s: unknown node type %q", path, sn.Type)
	}

	if err := p.record(n, sn.Boxes, path); err != nil {
		return nil, err
	}

	for i, c := range sn.Children {
		if c == nil {
			continue
		}
		child, err := p.build(c, ns, fmt.Sprintf("%s/%d", path, i))
		if err != nil {
			return nil, err
		}
		if child.Type == html.DocumentNode {
			return nil, fmt.Errorf("%s/%d: nested document node", path, i)
		}
		n.AppendChild(child)
	}
	return n, nil
}

func (p *Provider) record(n *html.Node, boxes *Boxes, path string) error {
	if boxes.Empty() || n.Type == html.DocumentNode {
		return nil
	}
	var levels levelQuads
	for _, level := range geometry.Levels {
		for i, v := range boxes.Level(level) {
			q, err := geometry.QuadFromVertices(v)
			if err != nil {
				return fmt.Errorf("%s: %s quad %d: %w", path, level, i, err)
			}
			levels[level] = append(levels[level], q)
		}
	}
	p.quads[n] = &levels
	return nil
}
