// internal/browser/context.go
package browser

import "context"

// CombineContext derives a context from ctx1 that is also canceled when ctx2 is done.
// Values and deadline come from ctx1 only.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(ctx1)
	stop := context.AfterFunc(ctx2, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

