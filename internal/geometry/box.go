// internal/geometry/box.go
package geometry

import "fmt"

// -- Box Model Levels --

// BoxLevel names one of the four nested CSS boxes of a node.
type BoxLevel int

const (
	Margin BoxLevel = iota
	Border
	Padding
	Content
)

// Levels lists every box level from the outermost inwards.
var Levels = [...]BoxLevel{Margin, Border, Padding, Content}

func (l BoxLevel) String() string {
	switch l {
	case Margin:
		return "margin"
	case Border:
		return "border"
	case Padding:
		return "padding"
	case Content:
		return "content"
	default:
		return fmt.Sprintf("BoxLevel(%d)", int(l))
	}
}

// Inner returns the level nested directly inside l. Content has none.
func (l BoxLevel) Inner() (BoxLevel, bool) {
	if l >= Content || l < Margin {
		return l, false
	}
	return l + 1, true
}

// ParseBoxLevel maps a CSS box keyword onto a BoxLevel.
func ParseBoxLevel(s string) (BoxLevel, error) {
	switch s {
	case "margin":
		return Margin, nil
	case "border":
		return Border, nil
	case "padding":
		return Padding, nil
	case "content":
		return Content, nil
	}
	return 0, fmt.Errorf("unknown box level %q", s)
}

func (l BoxLevel) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

func (l *BoxLevel) UnmarshalText(b []byte) error {
	v, err := ParseBoxLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// -- Bands --

// Band is a rectangle covering part of the region between two adjacent box levels.
type Band struct {
	Level BoxLevel `json:"level"`
	Quad  Quad     `json:"quad"`
}

// Decompose splits each outer quad minus its index-aligned inner quad into four
// non-overlapping bands: top and bottom span the full outer width, left and right
// fill the strip between them. When hasInner is false the outer quads are the bands.
//
// Outer quads without an inner counterpart at the same index are skipped so that a
// short inner list never pairs quads from different fragments.
func Decompose(level BoxLevel, outer, inner []Quad, hasInner bool) []Band {
	if !hasInner {
		bands := make([]Band, 0, len(outer))
		for _, q := range outer {
			bands = append(bands, Band{Level: level, Quad: q})
		}
		return bands
	}

	bands := make([]Band, 0, 4*len(outer))
	for i, o := range outer {
		if i >= len(inner) {
			break
		}
		in := inner[i]
		bands = append(bands,
			Band{Level: level, Quad: NewRect(o.Left(), o.Top(), o.Right(), in.Top())},
			Band{Level: level, Quad: NewRect(in.Right(), in.Top(), o.Right(), in.Bottom())},
			Band{Level: level, Quad: NewRect(o.Left(), in.Bottom(), o.Right(), o.Bottom())},
			Band{Level: level, Quad: NewRect(o.Left(), in.Top(), in.Left(), in.Bottom())},
		)
	}
	return bands
}

// FirstContaining returns the first band that contains p. Zero-area bands, such as
// the margin band of a node without margins, never match.
func FirstContaining(p Point, bands []Band) (Band, bool) {
	for _, b := range bands {
		if !b.Quad.Empty() && Contains(p, b.Quad) {
			return b, true
		}
	}
	return Band{}, false
}
