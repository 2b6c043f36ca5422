// internal/picker/session.go
package picker

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/api/schemas"
	"github.com/xkilldash9x/boxscope/internal/document"
	"github.com/xkilldash9x/boxscope/internal/geometry"
	"github.com/xkilldash9x/boxscope/internal/selector"
)

// Session owns the state of one pick: the node catalog and the last resolved
// contributions. It is not safe for concurrent use.
type Session struct {
	id      string
	doc     *document.Document
	geom    GeometryProvider
	overlay document.Node
	base    *zap.Logger
	logger  *zap.Logger
	synth   *selector.Synthesizer
	catalog *Catalog
	last    []Contribution
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Sessions are silent by default.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.base = logger.Named("picker")
		}
	}
}

// WithOverlay excludes the picker overlay node from results.
func WithOverlay(n document.Node) Option {
	return func(s *Session) { s.overlay = n }
}

// WithOverlayID excludes the element carrying id from results, if the document has one.
func WithOverlayID(id string) Option {
	return func(s *Session) {
		if s.doc == nil {
			return
		}
		if n, ok := s.doc.ElementByID(id); ok {
			s.overlay = n
		}
	}
}

// NewSession starts a pick session over a document and its geometry.
func NewSession(doc *document.Document, geom GeometryProvider, opts ...Option) *Session {
	s := &Session{
		doc:   doc,
		geom:  geom,
		base:  zap.NewNop(),
		synth: selector.New(doc),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

// ID identifies the current pick.
func (s *Session) ID() string { return s.id }

// Document returns the document being picked from.
func (s *Session) Document() *document.Document { return s.doc }

// Catalog exposes the node catalog of the current pick.
func (s *Session) Catalog() *Catalog { return s.catalog }

// Reset starts a new pick: the catalog is dropped and rebuilt on the next Resolve
// and the last result is forgotten.
func (s *Session) Reset() {
	s.id = uuid.New().String()
	s.catalog = NewCatalog(s.doc, s.geom, s.overlay)
	s.last = nil
	s.logger = s.base.With(zap.String("session_id", s.id))
}

// Resolve returns every node covering p, topmost first, and retains the list for
// HighlightAt.
func (s *Session) Resolve(p geometry.Point) []Contribution {
	if !s.catalog.Populated() {
		s.catalog.Populate()
		s.logger.Debug("Node catalog populated.", zap.Int("nodes", s.catalog.Len()))
	}

	s.last = Resolve(s.geom, s.catalog.All(), p)
	s.logger.Debug("Resolved point.",
		zap.Float64("x", p.X),
		zap.Float64("y", p.Y),
		zap.Int("contributions", len(s.last)),
	)
	return s.last
}

// Last returns the contributions of the most recent Resolve.
func (s *Session) Last() []Contribution { return s.last }

// HighlightAt returns the rectangle of the index-th contribution of the last
// Resolve. Out of range indexes report false.
func (s *Session) HighlightAt(index int) (geometry.Quad, bool) {
	if index < 0 || index >= len(s.last) {
		return geometry.Quad{}, false
	}
	return s.last[index].Rect, true
}

// SelectorFor returns a CSS selector that matches only n.
func (s *Session) SelectorFor(n document.Node) string { return s.synth.SelectorFor(n) }

// XPathFor returns an XPath that selects only n.
func (s *Session) XPathFor(n document.Node) string { return s.synth.XPathFor(n) }

// Pick resolves p and shapes the result for clients.
func (s *Session) Pick(p geometry.Point) schemas.PickResponse {
	contributions := s.Resolve(p)
	resp := schemas.PickResponse{
		SessionID: s.id,
		Point:     schemas.Point{X: p.X, Y: p.Y},
		Elements:  make([]schemas.NodeResponse, 0, len(contributions)),
	}
	for _, c := range contributions {
		resp.Elements = append(resp.Elements, s.NodeResponse(c))
	}
	return resp
}

// Highlight shapes HighlightAt for clients.
func (s *Session) Highlight(index int) schemas.HighlightResponse {
	q, ok := s.HighlightAt(index)
	resp := schemas.HighlightResponse{Index: index, Found: ok}
	if ok {
		r := RectFromQuad(q)
		resp.Rect = &r
	}
	return resp
}
