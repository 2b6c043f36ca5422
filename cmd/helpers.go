// File: cmd/helpers.go
package cmd

import (
	"context"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/internal/browser"
	"github.com/xkilldash9x/boxscope/internal/config"
	"github.com/xkilldash9x/boxscope/internal/geometry"
	"github.com/xkilldash9x/boxscope/internal/observability"
	"github.com/xkilldash9x/boxscope/internal/snapshot"
	"github.com/xkilldash9x/boxscope/internal/workspace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// browserSession is the part of browser.Session the commands drive.
type browserSession interface {
	Navigate(ctx context.Context, url string) error
	Capture(ctx context.Context) (*snapshot.Snapshot, error)
	Pick(ctx context.Context) (geometry.Point, error)
	Close() error
}

// newBrowserSession is replaced in tests.
var newBrowserSession = func(ctx context.Context, cfg config.Interface, logger *zap.Logger) (browserSession, error) {
	s, err := browser.NewSession(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// openPage starts a browser with the given headless mode and loads url.
func openPage(ctx context.Context, cfg *config.Config, url string, headless bool, logger *zap.Logger) (browserSession, error) {
	cfg.SetBrowserHeadless(headless)
	sess, err := newBrowserSession(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	if err := sess.Navigate(ctx, url); err != nil {
		_ = sess.Close()
		return nil, err
	}
	return sess, nil
}

// workspaceOptions selects where a long-running command gets its page from.
type workspaceOptions struct {
	snapshotPath string
	url          string
	headless     bool
}

func (o *workspaceOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.snapshotPath, "snapshot", "", "snapshot file to load at startup")
	cmd.Flags().StringVar(&o.url, "url", "", "page to open in a browser; enables picking")
	cmd.Flags().BoolVar(&o.headless, "headless", false, "run the browser without a window")
	cmd.MarkFlagsMutuallyExclusive("snapshot", "url")
}

// build creates the workspace. The returned cleanup closes the browser, if any.
func (o *workspaceOptions) build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ws *workspace.Workspace, cleanup func(), err error) {
	opts := []workspace.Option{workspace.WithOverlayID(cfg.Picker().OverlayID)}
	cleanup = func() {}
	defer func() {
		if err != nil {
			cleanup()
			cleanup = func() {}
		}
	}()

	var sess browserSession
	if o.url != "" {
		sess, err = openPage(ctx, cfg, o.url, o.headless, logger)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() {
			if err := sess.Close(); err != nil {
				logger.Warn("Failed to close browser session.", zap.Error(err))
			}
		}
		opts = append(opts, workspace.WithBrowser(sess))
	}

	ws = workspace.New(logger, opts...)
	switch {
	case o.snapshotPath != "":
		snap, err := snapshot.LoadFile(o.snapshotPath)
		if err != nil {
			return nil, cleanup, err
		}
		if err := ws.Load(snap); err != nil {
			return nil, cleanup, err
		}
	case sess != nil:
		if _, err := ws.Capture(ctx); err != nil {
			return nil, cleanup, fmt.Errorf("failed to capture %s: %w", o.url, err)
		}
	}
	return ws, cleanup, nil
}

// loadWorkspace loads a snapshot file into a fresh workspace.
func loadWorkspace(cmd *cobra.Command, path string) (*workspace.Workspace, error) {
	cfg := getConfig(cmd)
	snap, err := snapshot.LoadFile(path)
	if err != nil {
		return nil, err
	}
	ws := workspace.New(observability.GetLogger(), workspace.WithOverlayID(cfg.Picker().OverlayID))
	if err := ws.Load(snap); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return ws, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
