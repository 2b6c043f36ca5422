// internal/geometry/quad.go
package geometry

import "fmt"

// -- Core Structures: Points and Quads --

// Point is a location in the shared document coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Quad is an ordered 4-point polygon: P1 top-left, P2 top-right, P3 bottom-right, P4 bottom-left.
// Quads are assumed to be axis-aligned rectangles. Nothing here verifies that.
type Quad struct {
	P1 Point `json:"p1"`
	P2 Point `json:"p2"`
	P3 Point `json:"p3"`
	P4 Point `json:"p4"`
}

// NewRect builds an axis-aligned quad from its edges.
func NewRect(left, top, right, bottom float64) Quad {
	return Quad{
		P1: Point{X: left, Y: top},
		P2: Point{X: right, Y: top},
		P3: Point{X: right, Y: bottom},
		P4: Point{X: left, Y: bottom},
	}
}

// QuadFromVertices converts the flat [x1, y1, x2, y2, x3, y3, x4, y4] layout used by CDP.
func QuadFromVertices(v []float64) (Quad, error) {
	if len(v) != 8 {
		return Quad{}, fmt.Errorf("quad needs 8 coordinates, got %d", len(v))
	}
	return Quad{
		P1: Point{X: v[0], Y: v[1]},
		P2: Point{X: v[2], Y: v[3]},
		P3: Point{X: v[4], Y: v[5]},
		P4: Point{X: v[6], Y: v[7]},
	}, nil
}

// Vertices flattens the quad back into CDP order.
func (q Quad) Vertices() []float64 {
	return []float64{q.P1.X, q.P1.Y, q.P2.X, q.P2.Y, q.P3.X, q.P3.Y, q.P4.X, q.P4.Y}
}

// Edge accessors read P1, P2 and P4 only, so a malformed P3 never changes a result.

func (q Quad) Left() float64   { return q.P1.X }
func (q Quad) Top() float64    { return q.P1.Y }
func (q Quad) Right() float64  { return q.P2.X }
func (q Quad) Bottom() float64 { return q.P4.Y }

// Width is the horizontal extent. Negative for inverted quads.
func (q Quad) Width() float64 { return q.Right() - q.Left() }

// Height is the vertical extent. Negative for inverted quads.
func (q Quad) Height() float64 { return q.Bottom() - q.Top() }

// Area returns the covered area, clamped at zero for degenerate or inverted quads.
func (q Quad) Area() float64 {
	w, h := q.Width(), q.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Empty reports whether the quad covers no area.
func (q Quad) Empty() bool { return q.Area() == 0 }

func (q Quad) String() string {
	return fmt.Sprintf("(%g,%g)-(%g,%g)", q.Left(), q.Top(), q.Right(), q.Bottom())
}

// Contains reports whether p lies inside q, inclusive on every edge.
func Contains(p Point, q Quad) bool {
	return p.X >= q.P1.X && p.X <= q.P2.X && p.Y >= q.P1.Y && p.Y <= q.P4.Y
}
