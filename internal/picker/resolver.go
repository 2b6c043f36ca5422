// internal/picker/resolver.go
package picker

import (
	"github.com/xkilldash9x/boxscope/internal/document"
	"github.com/xkilldash9x/boxscope/internal/geometry"
)

// Reason names the box layer of a node that covers a point.
type Reason string

const (
	ReasonMargin  Reason = "margin"
	ReasonBorder  Reason = "border"
	ReasonPadding Reason = "padding"
	ReasonContent Reason = "content"
	// ReasonText replaces content for text nodes.
	ReasonText Reason = "text"
)

// Contribution records that a node covers the queried point through one of its layers.
type Contribution struct {
	Node   document.Node
	Reason Reason
	Rect   geometry.Quad
}

// ResolveNode finds the outermost layer of n whose band contains p. Levels are
// tested margin first, so a point on a shared edge belongs to the outer band.
func ResolveNode(geom GeometryProvider, n document.Node, p geometry.Point) (Contribution, bool) {
	outer := geom.BoxQuads(n, geometry.Margin)
	for _, level := range geometry.Levels {
		inner, hasInner := level.Inner()
		var innerQuads []geometry.Quad
		if hasInner {
			innerQuads = geom.BoxQuads(n, inner)
		}

		bands := geometry.Decompose(level, outer, innerQuads, hasInner)
		if band, ok := geometry.FirstContaining(p, bands); ok {
			return Contribution{Node: n, Reason: reasonFor(n, band.Level), Rect: band.Quad}, true
		}
		outer = innerQuads
	}
	return Contribution{}, false
}

// Resolve collects the contributions of nodes at p, last node first. Reversing
// document order approximates paint order; stacking contexts are not considered.
func Resolve(geom GeometryProvider, nodes []document.Node, p geometry.Point) []Contribution {
	var out []Contribution
	for i := len(nodes) - 1; i >= 0; i-- {
		if c, ok := ResolveNode(geom, nodes[i], p); ok {
			out = append(out, c)
		}
	}
	return out
}

func reasonFor(n document.Node, level geometry.BoxLevel) Reason {
	if level == geometry.Content && n.IsText() {
		return ReasonText
	}
	return Reason(level.String())
}
