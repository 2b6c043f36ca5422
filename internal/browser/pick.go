// internal/browser/pick.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/internal/geometry"
)

// pickScript installs a transparent overlay over the whole viewport and resolves
// with the client coordinates of the first click. Escape rejects. %s is the
// JSON encoded overlay id.
const pickScript = `new Promise((resolve, reject) => {
	const id = %s;
	const stale = document.getElementById(id);
	if (stale) stale.remove();
	const overlay = document.createElement('div');
	overlay.id = id;
	overlay.style.cssText = 'position:fixed;left:0;top:0;width:100vw;height:100vh;' +
		'z-index:2147483647;cursor:crosshair;background:rgba(66,133,244,0.08);';
	const done = () => {
		overlay.remove();
		document.removeEventListener('keydown', onKey, true);
	};
	const onKey = (e) => {
		if (e.key === 'Escape') { done(); reject(new Error('pick canceled')); }
	};
	overlay.addEventListener('click', (e) => {
		e.preventDefault();
		e.stopPropagation();
		done();
		resolve({x: e.clientX, y: e.clientY});
	}, {once: true});
	document.addEventListener('keydown', onKey, true);
	(document.body || document.documentElement).appendChild(overlay);
})`

const removeOverlayScript = `(() => { const o = document.getElementById(%s); if (o) o.remove(); return true; })()`

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// Pick waits for the user to click the page and returns the viewport coordinates of
// the click. The overlay is in the DOM only while the pick is pending.
func (s *Session) Pick(ctx context.Context) (geometry.Point, error) {
	pickerCfg := s.cfg.Picker()
	id, err := json.MarshalToString(pickerCfg.OverlayID)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("failed to encode overlay id: %w", err)
	}

	pickCtx := ctx
	if pickerCfg.PickTimeout > 0 {
		var cancel context.CancelFunc
		pickCtx, cancel = context.WithTimeout(ctx, pickerCfg.PickTimeout)
		defer cancel()
	}

	s.logger.Info("Waiting for a click on the page.", zap.String("overlay_id", pickerCfg.OverlayID))
	var pt geometry.Point
	err = s.run(pickCtx, chromedp.Evaluate(fmt.Sprintf(pickScript, id), &pt, awaitPromise))
	if err == nil {
		s.logger.Debug("Picked point.", zap.Float64("x", pt.X), zap.Float64("y", pt.Y))
		return pt, nil
	}

	if pickCtx.Err() != nil {
		s.removeOverlay(id)
		return geometry.Point{}, fmt.Errorf("%w: %w", ErrPickCanceled, pickCtx.Err())
	}
	var exc *runtime.ExceptionDetails
	if errors.As(err, &exc) {
		return geometry.Point{}, ErrPickCanceled
	}
	return geometry.Point{}, fmt.Errorf("pick failed: %w", err)
}

// removeOverlay runs after the caller gave up, so it cannot use the caller's context.
func (s *Session) removeOverlay(encodedID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(removeOverlayScript, encodedID), nil)); err != nil {
		s.logger.Warn("Failed to remove pick overlay.", zap.Error(err))
	}
}
