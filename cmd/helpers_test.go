// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/api/schemas"
	"github.com/xkilldash9x/boxscope/internal/config"
	"github.com/xkilldash9x/boxscope/internal/geometry"
	"github.com/xkilldash9x/boxscope/internal/snapshot"
)

func testSnapshot() *snapshot.Snapshot {
	page := geometry.NewRect(0, 0, 400, 300)
	link := geometry.NewRect(100, 100, 200, 120)
	return &snapshot.Snapshot{
		Version:  snapshot.Version,
		URL:      "http://example.test/",
		Viewport: snapshot.Viewport{Width: 400, Height: 300},
		Root: &snapshot.Node{
			Type: snapshot.TypeElement, Name: "html",
			Boxes: snapshot.RectBoxes(page, page, page, page),
			Children: []*snapshot.Node{{
				Type: snapshot.TypeElement, Name: "body",
				Boxes: snapshot.RectBoxes(page, page, page, page),
				Children: []*snapshot.Node{{
					Type:       snapshot.TypeElement,
					Name:       "a",
					Attributes: []schemas.Attribute{{Name: "id", Value: "home"}, {Name: "href", Value: "/"}},
					Boxes:      snapshot.RectBoxes(link, link, link, link),
				}},
			}},
		},
	}
}

// writeSnapshot saves testSnapshot to a temp file and returns its path.
func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.json")
	require.NoError(t, snapshot.SaveFile(path, testSnapshot()))
	return path
}

// fakeSession stands in for a Chromium session.
type fakeSession struct {
	navigateErr error
	headless    bool
	url         string
	closed      atomic.Bool
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.url = url
	return f.navigateErr
}

func (f *fakeSession) Capture(context.Context) (*snapshot.Snapshot, error) {
	if f.closed.Load() {
		return nil, errors.New("session closed")
	}
	return testSnapshot(), nil
}

func (f *fakeSession) Pick(context.Context) (geometry.Point, error) {
	return geometry.Point{X: 150, Y: 110}, nil
}

func (f *fakeSession) Close() error {
	f.closed.Store(true)
	return nil
}

// useFakeBrowser routes browser creation to a fake for the duration of the test.
func useFakeBrowser(t *testing.T, f *fakeSession) {
	t.Helper()
	orig := newBrowserSession
	newBrowserSession = func(_ context.Context, cfg config.Interface, _ *zap.Logger) (browserSession, error) {
		f.headless = cfg.Browser().Headless
		return f, nil
	}
	t.Cleanup(func() { newBrowserSession = orig })
}

// run executes a fresh command tree and returns what it wrote to stdout.
func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	// Keep a developer's config file out of the tests.
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.ExecuteContext(ctx)
	return stdout.String(), err
}
