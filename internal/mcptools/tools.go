// internal/mcptools/tools.go
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/api/schemas"
	"github.com/xkilldash9x/boxscope/internal/geometry"
	"github.com/xkilldash9x/boxscope/internal/workspace"
)

// ResolvePointInput is the input of resolve_point.
type ResolvePointInput struct {
	X float64 `json:"x" jsonschema:"Horizontal viewport coordinate in CSS pixels"`
	Y float64 `json:"y" jsonschema:"Vertical viewport coordinate in CSS pixels"`
}

// HighlightInput is the input of highlight.
type HighlightInput struct {
	Index int `json:"index" jsonschema:"Position in the element list of the last resolve_point call, 0 is topmost"`
}

// SelectorForInput is the input of selector_for.
type SelectorForInput struct {
	XPath    string `json:"xpath,omitempty" jsonschema:"XPath of the node to describe"`
	Selector string `json:"selector,omitempty" jsonschema:"CSS selector of the node to describe, used when xpath is empty"`
}

// PickInput is the input of pick. It takes no arguments.
type PickInput struct{}

// Tools exposes a workspace to MCP clients.
type Tools struct {
	ws     *workspace.Workspace
	logger *zap.Logger
}

// New creates the tool set over ws.
func New(ws *workspace.Workspace, logger *zap.Logger) *Tools {
	return &Tools{ws: ws, logger: logger.Named("mcptools")}
}

// Register adds the tools to server. pick is only offered when the workspace has a browser.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "resolve_point",
		Description: `List every element whose CSS box covers a point of the loaded page, topmost first.

Each element carries the box layer that was hit (margin, border, padding, content, or text),
a unique CSS selector and a unique XPath.`,
	}, t.resolvePoint)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "highlight",
		Description: "Return the rectangle of one element of the last resolve_point result.",
	}, t.highlight)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "selector_for",
		Description: "Describe the node matched by an XPath or CSS selector, including its unique selector.",
	}, t.selectorFor)

	if t.ws.HasBrowser() {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "pick",
			Description: "Wait for the user to click the page in the browser, then resolve the clicked point.",
		}, t.pick)
	}
}

func (t *Tools) resolvePoint(_ context.Context, _ *mcp.CallToolRequest, in ResolvePointInput) (*mcp.CallToolResult, schemas.PickResponse, error) {
	resp, err := t.ws.Resolve(geometry.Point{X: in.X, Y: in.Y})
	if err != nil {
		return nil, schemas.PickResponse{}, err
	}
	t.logger.Debug("resolve_point", zap.Float64("x", in.X), zap.Float64("y", in.Y), zap.Int("elements", len(resp.Elements)))
	return textResult(summarize(resp)), resp, nil
}

func (t *Tools) highlight(_ context.Context, _ *mcp.CallToolRequest, in HighlightInput) (*mcp.CallToolResult, schemas.HighlightResponse, error) {
	resp, err := t.ws.Highlight(in.Index)
	if err != nil {
		return nil, schemas.HighlightResponse{}, err
	}
	if !resp.Found {
		return textResult(fmt.Sprintf("No element at index %d.", in.Index)), resp, nil
	}
	r := resp.Rect
	return textResult(fmt.Sprintf("Element %d: x=%g y=%g width=%g height=%g", in.Index, r.X, r.Y, r.Width, r.Height)), resp, nil
}

func (t *Tools) selectorFor(_ context.Context, _ *mcp.CallToolRequest, in SelectorForInput) (*mcp.CallToolResult, schemas.NodeResponse, error) {
	resp, err := t.ws.Locate(in.XPath, in.Selector)
	if err != nil {
		return nil, schemas.NodeResponse{}, err
	}
	return textResult(fmt.Sprintf("%s %s\nXPath: %s", resp.NodeName, resp.UniqueSelector, resp.UniqueXPath)), resp, nil
}

func (t *Tools) pick(ctx context.Context, _ *mcp.CallToolRequest, _ PickInput) (*mcp.CallToolResult, schemas.PickResponse, error) {
	resp, err := t.ws.Pick(ctx)
	if err != nil {
		return nil, schemas.PickResponse{}, err
	}
	return textResult(summarize(resp)), resp, nil
}

// summarize renders one line per element for the text content.
func summarize(resp schemas.PickResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d element(s) at (%g, %g)", len(resp.Elements), resp.Point.X, resp.Point.Y)
	for i, e := range resp.Elements {
		fmt.Fprintf(&b, "\n%d. %s [%s] %s", i, e.NodeName, e.Reason, e.UniqueSelector)
	}
	return b.String()
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
