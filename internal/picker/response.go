// internal/picker/response.go
package picker

import (
	"github.com/xkilldash9x/boxscope/api/schemas"
	"github.com/xkilldash9x/boxscope/internal/document"
	"github.com/xkilldash9x/boxscope/internal/geometry"
)

// NodeResponse converts a contribution into its wire form. Text nodes carry no
// attributes and reuse their parent's selector.
func (s *Session) NodeResponse(c Contribution) schemas.NodeResponse {
	rect := RectFromQuad(c.Rect)
	return schemas.NodeResponse{
		NodeName:       c.Node.NodeName(),
		Attributes:     c.Node.Attributes(),
		Reason:         string(c.Reason),
		UniqueSelector: s.SelectorFor(c.Node),
		UniqueXPath:    s.XPathFor(c.Node),
		Rect:           &rect,
	}
}

// RectFromQuad reads the bounding rectangle of an axis-aligned quad.
func RectFromQuad(q geometry.Quad) schemas.Rect {
	return schemas.Rect{X: q.Left(), Y: q.Top(), Width: q.Width(), Height: q.Height()}
}

// Describe shapes a node that was not reached through Resolve. Reason is left
// empty and Rect is the outermost box the node has.
func (s *Session) Describe(n document.Node) schemas.NodeResponse {
	resp := schemas.NodeResponse{
		NodeName:       n.NodeName(),
		Attributes:     n.Attributes(),
		UniqueSelector: s.SelectorFor(n),
		UniqueXPath:    s.XPathFor(n),
	}
	if s.geom == nil {
		return resp
	}
	for _, level := range geometry.Levels {
		if quads := s.geom.BoxQuads(n, level); len(quads) > 0 {
			rect := RectFromQuad(quads[0])
			resp.Rect = &rect
			break
		}
	}
	return resp
}
