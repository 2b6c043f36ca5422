// internal/snapshot/snapshot.go
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/boxscope/api/schemas"
	"github.com/xkilldash9x/boxscope/internal/geometry"
)

// Version of the snapshot file format written by Save.
const Version = 1

// ErrEmptySnapshot is returned when a snapshot has no tree to build.
var ErrEmptySnapshot = errors.New("snapshot contains no nodes")

// NodeType discriminates snapshot nodes.
type NodeType string

const (
	TypeDocument NodeType = "document"
	TypeElement  NodeType = "element"
	TypeText     NodeType = "text"
)

// Viewport is the layout viewport the geometry was captured in.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Boxes holds the box model quads of one node, each as 8 numbers x1,y1..x4,y4.
// A node that does not take part in layout has no boxes.
type Boxes struct {
	Margin  [][]float64 `json:"margin,omitempty"`
	Border  [][]float64 `json:"border,omitempty"`
	Padding [][]float64 `json:"padding,omitempty"`
	Content [][]float64 `json:"content,omitempty"`
}

// Level returns the raw quads recorded for one box level.
func (b *Boxes) Level(level geometry.BoxLevel) [][]float64 {
	if b == nil {
		return nil
	}
	switch level {
	case geometry.Margin:
		return b.Margin
	case geometry.Border:
		return b.Border
	case geometry.Padding:
		return b.Padding
	case geometry.Content:
		return b.Content
	}
	return nil
}

// Empty reports whether no level carries a quad.
func (b *Boxes) Empty() bool {
	for _, level := range geometry.Levels {
		if len(b.Level(level)) > 0 {
			return false
		}
	}
	return true
}

// NewBoxes builds Boxes from quads, one slice per level.
func NewBoxes(margin, border, padding, content []geometry.Quad) *Boxes {
	return &Boxes{
		Margin:  vertices(margin),
		Border:  vertices(border),
		Padding: vertices(padding),
		Content: vertices(content),
	}
}

// RectBoxes is shorthand for an element laid out as a single box per level.
func RectBoxes(margin, border, padding, content geometry.Quad) *Boxes {
	return NewBoxes([]geometry.Quad{margin}, []geometry.Quad{border}, []geometry.Quad{padding}, []geometry.Quad{content})
}

func vertices(quads []geometry.Quad) [][]float64 {
	if len(quads) == 0 {
		return nil
	}
	out := make([][]float64, len(quads))
	for i, q := range quads {
		out[i] = q.Vertices()
	}
	return out
}

// Node is one node of a captured tree.
type Node struct {
	Type       NodeType            `json:"type"`
	Name       string              `json:"name,omitempty"`
	Attributes []schemas.Attribute `json:"attributes,omitempty"`
	Text       string              `json:"text,omitempty"`
	Boxes      *Boxes              `json:"boxes,omitempty"`
	Children   []*Node             `json:"children,omitempty"`

	// BackendNodeID ties the node to the browser that captured it.
	BackendNodeID int64 `json:"backendNodeId,omitempty"`
}

// Snapshot is a document tree frozen together with the box geometry of every node.
type Snapshot struct {
	Version    int       `json:"version"`
	URL        string    `json:"url,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
	Viewport   Viewport  `json:"viewport"`
	OverlayID  string    `json:"overlayId,omitempty"`
	Root       *Node     `json:"root"`
}

// Walk visits n and its descendants depth first.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Load decodes a snapshot.
func Load(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Root == nil {
		return nil, ErrEmptySnapshot
	}
	if snap.Version > Version {
		return nil, fmt.Errorf("unsupported snapshot version %d (max %d)", snap.Version, Version)
	}
	return &snap, nil
}

// Save encodes snap as indented JSON.
func Save(w io.Writer, snap *Snapshot) error {
	if snap == nil || snap.Root == nil {
		return ErrEmptySnapshot
	}
	if snap.Version == 0 {
		snap.Version = Version
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// LoadFile reads a snapshot from path.
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// SaveFile writes a snapshot to path, replacing any existing file.
func SaveFile(path string, snap *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := Save(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
