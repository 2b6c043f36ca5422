// api/schemas/pick.go
package schemas

import jsoniter "github.com/json-iterator/go"

// Attribute is one (name, value) pair of an element.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Point is a query location in page coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle as exchanged with clients.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NodeResponse is the serializable form of one contribution to a picked point.
// Attributes is nil for text contributions and omitted; an element without
// attributes carries a non-nil empty slice and marshals as [].
type NodeResponse struct {
	NodeName       string      `json:"nodeName"`
	Attributes     []Attribute `json:"attributes,omitempty"`
	Reason         string      `json:"reason"`
	UniqueSelector string      `json:"uniqueSelector"`
	UniqueXPath    string      `json:"uniqueXPath,omitempty"`
	Rect           *Rect       `json:"rect,omitempty"`
}

var wireJSON = jsoniter.Config{EscapeHTML: false}.Froze()

type nodeResponseWire struct {
	NodeName       string       `json:"nodeName"`
	Attributes     *[]Attribute `json:"attributes,omitempty"`
	Reason         string       `json:"reason"`
	UniqueSelector string       `json:"uniqueSelector"`
	UniqueXPath    string       `json:"uniqueXPath,omitempty"`
	Rect           *Rect        `json:"rect,omitempty"`
}

// MarshalJSON omits attributes only when they are nil.
func (r NodeResponse) MarshalJSON() ([]byte, error) {
	w := nodeResponseWire{
		NodeName:       r.NodeName,
		Reason:         r.Reason,
		UniqueSelector: r.UniqueSelector,
		UniqueXPath:    r.UniqueXPath,
		Rect:           r.Rect,
	}
	if r.Attributes != nil {
		w.Attributes = &r.Attributes
	}
	return wireJSON.Marshal(w)
}

// PickResponse is the answer to one pick or resolve request, topmost element first.
type PickResponse struct {
	SessionID string         `json:"sessionId,omitempty"`
	Point     Point          `json:"point"`
	Elements  []NodeResponse `json:"elements"`
}

// HighlightResponse carries the rectangle of a previously resolved contribution.
type HighlightResponse struct {
	Index int   `json:"index"`
	Found bool  `json:"found"`
	Rect  *Rect `json:"rect,omitempty"`
}

// PickMessage is the envelope exchanged over the pick WebSocket.
type PickMessage struct {
	Action   string         `json:"action"`
	Index    *int           `json:"index,omitempty"`
	Point    *Point         `json:"point,omitempty"`
	Elements []NodeResponse `json:"elements,omitempty"`
	Found    *bool          `json:"found,omitempty"`
	Rect     *Rect          `json:"rect,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Actions understood on the pick WebSocket.
const (
	ActionPick      = "pick"
	ActionResolve   = "resolve"
	ActionHighlight = "highlight"
	ActionElements  = "elements"
	ActionError     = "error"
)
