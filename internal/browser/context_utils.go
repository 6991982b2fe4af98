// internal/browser/context_utils.go
package browser

import "context"

// CombineContext returns a context that carries the values of ctx1 and is
// canceled when either ctx1 or ctx2 is done.
//
// chromedp locates its target through values stored on the tab context, so
// operations must derive from the tab context (ctx1) while honoring the
// caller's deadline and cancellation (ctx2).
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}
