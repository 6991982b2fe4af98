// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Session is one chromedp tab bound to the application's base URL. It
// implements Page.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	baseURL    string
	navTimeout time.Duration
	logger     *zap.Logger

	// dialogs receives native dialogs as they open. Capacity one: the app
	// never stacks dialogs, and a second one would block the page anyway.
	dialogs chan *page.EventJavascriptDialogOpening

	closeOnce sync.Once
	onClose   func()
}

var _ Page = (*Session)(nil)

func newSession(tabCtx context.Context, cancel context.CancelFunc, baseURL string, navTimeout time.Duration, logger *zap.Logger) *Session {
	s := &Session{
		ctx:        tabCtx,
		cancel:     cancel,
		baseURL:    strings.TrimRight(baseURL, "/"),
		navTimeout: navTimeout,
		logger:     logger,
		dialogs:    make(chan *page.EventJavascriptDialogOpening, 1),
	}

	chromedp.ListenTarget(tabCtx, s.onTargetEvent)
	return s
}

func (s *Session) onTargetEvent(ev interface{}) {
	switch e := ev.(type) {
	case *page.EventJavascriptDialogOpening:
		s.logger.Debug("Native dialog opened.", zap.String("type", string(e.Type)), zap.String("message", e.Message))
		select {
		case s.dialogs <- e:
		default:
			s.logger.Warn("Dropped native dialog; one is already pending.", zap.String("message", e.Message))
		}
	case *page.EventJavascriptDialogClosed:
		// Anything still pending was dismissed by the app or torn down by navigation.
		s.dropStaleDialog()
	}
}

// dropStaleDialog discards a pending dialog event, if any.
func (s *Session) dropStaleDialog() {
	select {
	case ev := <-s.dialogs:
		s.logger.Debug("Discarding stale native dialog.", zap.String("message", ev.Message))
	default:
	}
}

// run executes actions on the tab, bounded by the caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("browser session is closed: %w", err)
	}
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		// Report the caller's cancellation rather than chromedp's view of it.
		return ctx.Err()
	}
	return err
}

func (s *Session) BaseURL() string { return s.baseURL }

// Navigate loads url and waits for the body to be ready. A path starting
// with "/" is resolved against the base URL.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if strings.HasPrefix(url, "/") {
		url = s.baseURL + url
	}
	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	s.logger.Debug("Navigating.", zap.String("url", url))
	s.dropStaleDialog()
	if err := s.run(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = NewTimeoutError("page load of "+url, s.navTimeout, err)
		}
		return &NavigationError{URL: url, Err: err}
	}
	return nil
}

func (s *Session) Reload(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()
	s.dropStaleDialog()
	if err := s.run(navCtx, chromedp.Reload(), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := s.run(ctx, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("could not read location: %w", err)
	}
	return u, nil
}

func (s *Session) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query '%s' failed: %w", selector, err)
	}
	return s.wrap(nodes), nil
}

func (s *Session) Evaluate(ctx context.Context, expression string, res any) error {
	if err := s.run(ctx, chromedp.Evaluate(expression, res)); err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}
	return nil
}

func (s *Session) ClearCookies(ctx context.Context) error {
	if err := s.run(ctx, network.ClearBrowserCookies()); err != nil {
		return fmt.Errorf("could not clear cookies: %w", err)
	}
	return nil
}

func (s *Session) AcceptDialog(ctx context.Context) error {
	select {
	case ev := <-s.dialogs:
		s.logger.Debug("Accepting native dialog.", zap.String("message", ev.Message))
		if err := s.run(ctx, page.HandleJavaScriptDialog(true)); err != nil {
			return fmt.Errorf("could not accept dialog %q: %w", ev.Message, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("browser session closed while waiting for a dialog: %w", s.ctx.Err())
	}
}

// Close closes the tab. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.onClose != nil {
			s.onClose()
		}
	})
}

func (s *Session) wrap(nodes []*cdp.Node) []Element {
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &cdpElement{s: s, node: n})
	}
	return out
}
