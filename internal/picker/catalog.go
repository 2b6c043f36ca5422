// internal/picker/catalog.go
package picker

import (
	"github.com/xkilldash9x/boxscope/internal/document"
	"github.com/xkilldash9x/boxscope/internal/geometry"
)

// GeometryProvider reports the box quads of a node. Nodes that are not laid out
// report no quads at any level.
type GeometryProvider interface {
	BoxQuads(n document.Node, level geometry.BoxLevel) []geometry.Quad
}

// Catalog is a one-shot list of the laid out nodes of a document, in document order.
// It is filled on first use and never refreshed; start a new Catalog to pick up changes.
type Catalog struct {
	doc       *document.Document
	geom      GeometryProvider
	exclude   document.Node
	nodes     []document.Node
	populated bool
}

// NewCatalog creates an empty catalog. exclude, typically the picker overlay, is
// never cataloged; pass the zero Node for none.
func NewCatalog(doc *document.Document, geom GeometryProvider, exclude document.Node) *Catalog {
	return &Catalog{doc: doc, geom: geom, exclude: exclude}
}

// Populate walks the document once. Later calls do nothing.
func (c *Catalog) Populate() {
	if c.populated {
		return
	}
	c.populated = true
	if c.doc == nil || c.geom == nil {
		return
	}

	c.doc.Walk(func(n document.Node) bool {
		if c.exclude.Valid() && n == c.exclude {
			return true
		}
		if c.laidOut(n) {
			c.nodes = append(c.nodes, n)
		}
		return true
	})
}

func (c *Catalog) laidOut(n document.Node) bool {
	for _, level := range geometry.Levels {
		if len(c.geom.BoxQuads(n, level)) > 0 {
			return true
		}
	}
	return false
}

// All returns the cataloged nodes, populating first if needed.
func (c *Catalog) All() []document.Node {
	c.Populate()
	return c.nodes
}

// Len is the number of cataloged nodes.
func (c *Catalog) Len() int { return len(c.All()) }

// Populated reports whether the walk already happened.
func (c *Catalog) Populated() bool { return c.populated }
