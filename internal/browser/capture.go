// internal/browser/capture.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/boxscope/api/schemas"
	"github.com/xkilldash9x/boxscope/internal/geometry"
	"github.com/xkilldash9x/boxscope/internal/snapshot"
)

// Text under these elements is never rendered.
var rawTextParents = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// boxTarget pairs a converted node with the backend id used to query its geometry.
type boxTarget struct {
	node *snapshot.Node
	id   cdp.BackendNodeID
}

// Capture freezes the current page into a snapshot: the full DOM tree plus the box
// model of every node. Nodes without layout are kept with no boxes.
func (s *Session) Capture(ctx context.Context) (*snapshot.Snapshot, error) {
	start := time.Now()
	captureCfg := s.cfg.Capture()

	var (
		root     *cdp.Node
		location string
	)
	err := s.run(ctx,
		chromedp.Location(&location),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			root, err = dom.GetDocument().WithDepth(-1).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	var targets []boxTarget
	tree := convertTree(root, captureCfg.IncludeText, &targets)
	if tree == nil {
		return nil, snapshot.ErrEmptySnapshot
	}

	missing, err := s.fetchBoxes(ctx, targets)
	if err != nil {
		return nil, err
	}

	vp := s.cfg.Browser().Viewport
	snap := &snapshot.Snapshot{
		Version:    snapshot.Version,
		URL:        location,
		CapturedAt: time.Now().UTC(),
		Viewport:   snapshot.Viewport{Width: vp.Width, Height: vp.Height},
		OverlayID:  s.cfg.Picker().OverlayID,
		Root:       tree,
	}

	s.logger.Info("Captured page geometry.",
		zap.String("url", location),
		zap.Int("nodes", len(targets)),
		zap.Int64("without_layout", missing),
		zap.Duration("duration", time.Since(start)),
	)
	return snap, nil
}

// fetchBoxes fills in the boxes of every target. It returns how many nodes had no
// geometry. Only cancellation of ctx is an error.
func (s *Session) fetchBoxes(ctx context.Context, targets []boxTarget) (int64, error) {
	captureCfg := s.cfg.Capture()

	var limiter *rate.Limiter
	if captureCfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(captureCfg.RateLimit), max(captureCfg.Burst, 1))
	}

	var missing atomic.Int64
	err := s.run(ctx, chromedp.ActionFunc(func(runCtx context.Context) error {
		g, gctx := errgroup.WithContext(runCtx)
		g.SetLimit(max(captureCfg.Concurrency, 1))

		for _, t := range targets {
			g.Go(func() error {
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						return err
					}
				}
				boxes, err := boxesFor(gctx, t)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					missing.Add(1)
					s.logger.Debug("No geometry for node.",
						zap.String("node", t.node.Name),
						zap.Int64("backend_node_id", int64(t.id)),
						zap.Error(err),
					)
					return nil
				}
				t.node.Boxes = boxes
				return nil
			})
		}
		return g.Wait()
	}))
	if err != nil {
		return 0, fmt.Errorf("box model capture interrupted: %w", err)
	}
	return missing.Load(), nil
}

// boxesFor queries one node. Elements report the four box levels; text nodes only
// have content quads, one per line fragment.
func boxesFor(ctx context.Context, t boxTarget) (*snapshot.Boxes, error) {
	if t.node.Type == snapshot.TypeText {
		quads, err := dom.GetContentQuads().WithBackendNodeID(t.id).Do(ctx)
		if err != nil {
			return nil, err
		}
		content, err := toQuads(quads)
		if err != nil {
			return nil, err
		}
		if len(content) == 0 {
			return nil, ErrNoBoxModel
		}
		return snapshot.NewBoxes(nil, nil, nil, content), nil
	}

	model, err := dom.GetBoxModel().WithBackendNodeID(t.id).Do(ctx)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrNoBoxModel
	}
	levels := make([][]geometry.Quad, 0, len(geometry.Levels))
	for _, q := range []dom.Quad{model.Margin, model.Border, model.Padding, model.Content} {
		quads, err := toQuads([]dom.Quad{q})
		if err != nil {
			return nil, err
		}
		levels = append(levels, quads)
	}
	return snapshot.NewBoxes(levels[0], levels[1], levels[2], levels[3]), nil
}

func toQuads(in []dom.Quad) ([]geometry.Quad, error) {
	out := make([]geometry.Quad, 0, len(in))
	for _, raw := range in {
		if len(raw) == 0 {
			continue
		}
		q, err := geometry.QuadFromVertices(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// convertTree maps a CDP node tree onto snapshot nodes. Every element and text node
// that may carry geometry is appended to targets. Frames, shadow roots and template
// contents are not descended into.
func convertTree(n *cdp.Node, includeText bool, targets *[]boxTarget) *snapshot.Node {
	if n == nil {
		return nil
	}
	switch n.NodeType {
	case cdp.NodeTypeDocument:
		out := &snapshot.Node{Type: snapshot.TypeDocument}
		out.Children = convertChildren(n, includeText, targets)
		return out

	case cdp.NodeTypeElement:
		name := n.LocalName
		if name == "" && n.NodeName == strings.ToUpper(n.NodeName) {
			name = strings.ToLower(n.NodeName)
		} else if name == "" {
			name = n.NodeName
		}
		out := &snapshot.Node{
			Type:          snapshot.TypeElement,
			Name:          name,
			Attributes:    attributePairs(n.Attributes),
			BackendNodeID: int64(n.BackendNodeID),
		}
		*targets = append(*targets, boxTarget{node: out, id: n.BackendNodeID})
		out.Children = convertChildren(n, includeText, targets)
		return out

	case cdp.NodeTypeText:
		if !includeText {
			return nil
		}
		out := &snapshot.Node{
			Type:          snapshot.TypeText,
			Text:          n.NodeValue,
			BackendNodeID: int64(n.BackendNodeID),
		}
		*targets = append(*targets, boxTarget{node: out, id: n.BackendNodeID})
		return out
	}
	return nil
}

func convertChildren(n *cdp.Node, includeText bool, targets *[]boxTarget) []*snapshot.Node {
	var out []*snapshot.Node
	for _, c := range n.Children {
		if c.NodeType == cdp.NodeTypeText && rawTextParents[strings.ToLower(n.LocalName)] {
			continue
		}
		if child := convertTree(c, includeText, targets); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// attributePairs unflattens CDP's [name1, value1, name2, value2, ...] list.
func attributePairs(flat []string) []schemas.Attribute {
	if len(flat) < 2 {
		return nil
	}
	attrs := make([]schemas.Attribute, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		attrs = append(attrs, schemas.Attribute{Name: flat[i], Value: flat[i+1]})
	}
	return attrs
}
