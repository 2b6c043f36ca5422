// internal/geometry/geometry_test.go
package geometry

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadFromVertices(t *testing.T) {
	q, err := QuadFromVertices([]float64{1, 2, 11, 2, 11, 22, 1, 22})
	require.NoError(t, err)
	assert.Equal(t, NewRect(1, 2, 11, 22), q)
	assert.Equal(t, []float64{1, 2, 11, 2, 11, 22, 1, 22}, q.Vertices())
	assert.Equal(t, 200.0, q.Area())

	_, err = QuadFromVertices([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestContains(t *testing.T) {
	r := NewRect(10, 10, 20, 30)

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"inside", Point{15, 15}, true},
		{"top-left corner", Point{10, 10}, true},
		{"right edge", Point{20, 25}, true},
		{"bottom edge", Point{12, 30}, true},
		{"left of rect", Point{9.99, 15}, false},
		{"below rect", Point{15, 30.01}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Contains(tt.p, r))
		})
	}
}

func TestContains_IgnoresP3(t *testing.T) {
	r := NewRect(0, 0, 10, 10)
	r.P3 = Point{X: -500, Y: 9000}
	assert.True(t, Contains(Point{5, 5}, r))
}

func TestDecompose_AreaAccounting(t *testing.T) {
	cases := []struct {
		name         string
		outer, inner Quad
	}{
		{"centered", NewRect(0, 0, 100, 50), NewRect(10, 5, 90, 45)},
		{"flush left", NewRect(0, 0, 100, 50), NewRect(0, 5, 90, 45)},
		{"flush top and bottom", NewRect(0, 0, 100, 50), NewRect(10, 0, 90, 50)},
		{"identical", NewRect(3, 4, 30, 40), NewRect(3, 4, 30, 40)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bands := Decompose(Border, []Quad{tc.outer}, []Quad{tc.inner}, true)
			require.Len(t, bands, 4)

			var sum float64
			for _, b := range bands {
				assert.Equal(t, Border, b.Level)
				sum += b.Quad.Area()
			}
			assert.InDelta(t, tc.outer.Area()-tc.inner.Area(), sum, 1e-9)

			for i := range bands {
				for j := i + 1; j < len(bands); j++ {
					assert.Zero(t, overlap(bands[i].Quad, bands[j].Quad), "bands %d and %d overlap", i, j)
				}
			}
		})
	}
}

func TestDecompose_Shapes(t *testing.T) {
	outer := NewRect(0, 0, 100, 20)
	inner := NewRect(10, 5, 90, 15)

	got := Decompose(Margin, []Quad{outer}, []Quad{inner}, true)
	want := []Band{
		{Level: Margin, Quad: NewRect(0, 0, 100, 5)},
		{Level: Margin, Quad: NewRect(90, 5, 100, 15)},
		{Level: Margin, Quad: NewRect(0, 15, 100, 20)},
		{Level: Margin, Quad: NewRect(0, 5, 10, 15)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decompose mismatch (-want +got):\n%s", diff)
	}
}

func TestDecompose_NoInnerLevel(t *testing.T) {
	quads := []Quad{NewRect(0, 0, 10, 10), NewRect(0, 12, 40, 22)}
	bands := Decompose(Content, quads, nil, false)
	require.Len(t, bands, 2)
	assert.Equal(t, quads[0], bands[0].Quad)
	assert.Equal(t, quads[1], bands[1].Quad)
}

func TestDecompose_MisalignedInnerIsSkipped(t *testing.T) {
	outer := []Quad{NewRect(0, 0, 10, 10), NewRect(0, 20, 10, 30)}
	inner := []Quad{NewRect(1, 1, 9, 9)}
	bands := Decompose(Padding, outer, inner, true)
	assert.Len(t, bands, 4)

	assert.Empty(t, Decompose(Padding, outer, nil, true))
}

func TestFirstContaining_BoundaryGoesToOuterBand(t *testing.T) {
	border := NewRect(0, 0, 100, 100)
	padding := NewRect(10, 10, 90, 90)
	content := NewRect(20, 20, 80, 80)

	borderBands := Decompose(Border, []Quad{border}, []Quad{padding}, true)
	paddingBands := Decompose(Padding, []Quad{padding}, []Quad{content}, true)

	// On the border/padding seam: the border band is tested first and wins.
	p := Point{X: 50, Y: 10}
	b, ok := FirstContaining(p, borderBands)
	require.True(t, ok)
	assert.Equal(t, Border, b.Level)

	// Strictly inside padding.
	p = Point{X: 50, Y: 15}
	_, ok = FirstContaining(p, borderBands)
	assert.False(t, ok)
	b, ok = FirstContaining(p, paddingBands)
	require.True(t, ok)
	assert.Equal(t, Padding, b.Level)
}

func TestFirstContaining_SkipsZeroAreaBands(t *testing.T) {
	q := NewRect(0, 0, 50, 50)
	bands := Decompose(Margin, []Quad{q}, []Quad{q}, true)
	_, ok := FirstContaining(Point{X: 0, Y: 0}, bands)
	assert.False(t, ok)
}

func TestBoxLevel(t *testing.T) {
	for _, l := range Levels {
		parsed, err := ParseBoxLevel(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, parsed)
	}
	inner, ok := Margin.Inner()
	assert.True(t, ok)
	assert.Equal(t, Border, inner)
	_, ok = Content.Inner()
	assert.False(t, ok)

	_, err := ParseBoxLevel("outline")
	assert.Error(t, err)
}

// FuzzDecompose feeds arbitrary, often non-rectangular quads through the band
// pipeline. Nothing may panic and the results must be stable across calls.
func FuzzDecompose(f *testing.F) {
	f.Add([]byte("seed-quad-data-0123456789abcdef"))
	f.Fuzz(func(t *testing.T, data []byte) {
		c := fuzz.NewConsumer(data)
		var outer, inner Quad
		var p Point
		if err := c.GenerateStruct(&outer); err != nil {
			return
		}
		if err := c.GenerateStruct(&inner); err != nil {
			return
		}
		if err := c.GenerateStruct(&p); err != nil {
			return
		}

		first := Decompose(Border, []Quad{outer}, []Quad{inner}, true)
		second := Decompose(Border, []Quad{outer}, []Quad{inner}, true)
		b1, ok1 := FirstContaining(p, first)
		b2, ok2 := FirstContaining(p, second)
		if ok1 != ok2 || (ok1 && b1.Quad.String() != b2.Quad.String()) {
			t.Fatalf("non-deterministic containment for %v in %v/%v", p, outer, inner)
		}
	})
}

func overlap(a, b Quad) float64 {
	l := max(a.Left(), b.Left())
	r := min(a.Right(), b.Right())
	tp := max(a.Top(), b.Top())
	bt := min(a.Bottom(), b.Bottom())
	if r <= l || bt <= tp {
		return 0
	}
	return (r - l) * (bt - tp)
}
