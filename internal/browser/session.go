// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/internal/config"
)

var (
	// ErrNoBoxModel is reported for nodes that are not rendered.
	ErrNoBoxModel = errors.New("node has no box model")
	// ErrPickCanceled is returned when a pick ends without a click.
	ErrPickCanceled = errors.New("pick canceled")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("browser session closed")
)

// Session is one Chromium tab driven over the DevTools protocol.
type Session struct {
	id     string
	cfg    config.Interface
	logger *zap.Logger

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	mu       sync.Mutex
	isClosed bool
}

// NewSession launches a browser and opens a tab sized to the configured viewport.
func NewSession(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	sessionLogger := logger.Named("browser").With(zap.String("session_id", sessionID))

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg.Browser())...)
	sugar := sessionLogger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	)

	s := &Session{
		id:          sessionID,
		cfg:         cfg,
		logger:      sessionLogger,
		allocCancel: allocCancel,
		ctx:         tabCtx,
		cancel:      tabCancel,
	}

	// The first Run starts the browser and attaches to the tab.
	vp := cfg.Browser().Viewport
	if err := chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height))); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s.logger.Info("Browser session started.", zap.Bool("headless", cfg.Browser().Headless))
	return s, nil
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string { return s.id }

// run executes actions on the tab, bounded by both the session and ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.isClosed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// Navigate loads url and waits for the page to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating to URL", zap.String("url", url))

	navTimeout := s.cfg.Browser().NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(ctx, navTimeout)
	defer navCancel()

	if err := s.run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	if wait := s.cfg.Browser().PostLoadWait; wait > 0 {
		if err := s.run(ctx, chromedp.Sleep(wait)); err != nil {
			return fmt.Errorf("post load wait interrupted: %w", err)
		}
	}
	return nil
}

// Close terminates the tab and the browser process. It is safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	var err error
	if cerr := chromedp.Cancel(s.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
		err = fmt.Errorf("failed to close browser: %w", cerr)
	}
	s.cancel()
	s.allocCancel()
	return err
}
