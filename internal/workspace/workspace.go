// internal/workspace/workspace.go
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/api/schemas"
	"github.com/xkilldash9x/boxscope/internal/document"
	"github.com/xkilldash9x/boxscope/internal/geometry"
	"github.com/xkilldash9x/boxscope/internal/picker"
	"github.com/xkilldash9x/boxscope/internal/snapshot"
)

var (
	// ErrNoSession is returned when nothing has been captured or loaded yet.
	ErrNoSession = errors.New("no snapshot loaded")
	// ErrNoBrowser is returned for live operations on a workspace without a browser.
	ErrNoBrowser = errors.New("no browser attached")
	// ErrInvalidQuery is returned by Locate for malformed lookups.
	ErrInvalidQuery = errors.New("invalid query")
)

// Browser is the live page a workspace captures from and picks on.
type Browser interface {
	Pick(ctx context.Context) (geometry.Point, error)
	Capture(ctx context.Context) (*snapshot.Snapshot, error)
}

// Workspace owns the active pick session. At most one pick or capture drives the
// browser at a time; reads of the active session never wait for one.
type Workspace struct {
	logger    *zap.Logger
	browser   Browser
	overlayID string

	// live serializes Pick and Capture. It is always taken before mu.
	live sync.Mutex

	mu      sync.Mutex
	session *picker.Session
	snap    *snapshot.Snapshot
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithBrowser attaches a live browser.
func WithBrowser(b Browser) Option {
	return func(w *Workspace) { w.browser = b }
}

// WithOverlayID sets the overlay id excluded from results when the snapshot does not name one.
func WithOverlayID(id string) Option {
	return func(w *Workspace) { w.overlayID = id }
}

// New creates an empty workspace.
func New(logger *zap.Logger, opts ...Option) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Workspace{logger: logger.Named("workspace")}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HasBrowser reports whether live picks are possible.
func (w *Workspace) HasBrowser() bool { return w.browser != nil }

// Load replaces the active session with one built from snap.
func (w *Workspace) Load(snap *snapshot.Snapshot) error {
	session, err := w.newSession(snap)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.session, w.snap = session, snap
	w.mu.Unlock()
	return nil
}

func (w *Workspace) newSession(snap *snapshot.Snapshot) (*picker.Session, error) {
	doc, provider, err := snapshot.Build(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}

	overlayID := snap.OverlayID
	if overlayID == "" {
		overlayID = w.overlayID
	}
	opts := []picker.Option{picker.WithLogger(w.logger)}
	if overlayID != "" {
		opts = append(opts, picker.WithOverlayID(overlayID))
	}

	session := picker.NewSession(doc, provider, opts...)
	w.logger.Info("Snapshot loaded.",
		zap.String("session_id", session.ID()),
		zap.String("url", snap.URL),
		zap.Int("nodes_with_geometry", provider.Len()),
	)
	return session, nil
}

// Snapshot returns the snapshot behind the active session, or nil.
func (w *Workspace) Snapshot() *snapshot.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snap
}

// Capture freezes the attached browser's page and makes it the active session.
func (w *Workspace) Capture(ctx context.Context) (*snapshot.Snapshot, error) {
	if w.browser == nil {
		return nil, ErrNoBrowser
	}
	w.live.Lock()
	defer w.live.Unlock()

	snap, err := w.browser.Capture(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.Load(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Pick waits for a click in the browser, captures the page and resolves the clicked point.
func (w *Workspace) Pick(ctx context.Context) (schemas.PickResponse, error) {
	if w.browser == nil {
		return schemas.PickResponse{}, ErrNoBrowser
	}
	w.live.Lock()
	defer w.live.Unlock()

	pt, err := w.browser.Pick(ctx)
	if err != nil {
		return schemas.PickResponse{}, err
	}
	snap, err := w.browser.Capture(ctx)
	if err != nil {
		return schemas.PickResponse{}, fmt.Errorf("failed to capture after pick: %w", err)
	}
	session, err := w.newSession(snap)
	if err != nil {
		return schemas.PickResponse{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.session, w.snap = session, snap
	return session.Pick(pt), nil
}

// Resolve answers a point against the active session.
func (w *Workspace) Resolve(p geometry.Point) (schemas.PickResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return schemas.PickResponse{}, ErrNoSession
	}
	return w.session.Pick(p), nil
}

// Highlight returns the rectangle of entry index of the last result list.
func (w *Workspace) Highlight(index int) (schemas.HighlightResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return schemas.HighlightResponse{}, ErrNoSession
	}
	return w.session.Highlight(index), nil
}

// Locate finds one node by XPath or CSS selector and describes it. Exactly one of
// xpath and css must be set.
func (w *Workspace) Locate(xpath, css string) (schemas.NodeResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return schemas.NodeResponse{}, ErrNoSession
	}
	if (xpath == "") == (css == "") {
		return schemas.NodeResponse{}, fmt.Errorf("%w: exactly one of xpath or selector is required", ErrInvalidQuery)
	}

	doc := w.session.Document()
	var (
		n   document.Node
		err error
	)
	if xpath != "" {
		n, err = doc.FindXPath(xpath)
	} else {
		n, err = doc.QuerySelector(css)
	}
	if errors.Is(err, document.ErrNotFound) {
		return schemas.NodeResponse{}, err
	}
	if err != nil {
		return schemas.NodeResponse{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return w.session.Describe(n), nil
}
