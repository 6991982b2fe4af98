// Package wait holds the condition-polling primitives every step routes its
// readiness checks through.
package wait

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/browser"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultInterval = 250 * time.Millisecond
)

// Predicate reports whether a condition holds. An error is treated as "not
// yet" and remembered for the timeout report.
type Predicate func(ctx context.Context) (bool, error)

// Waiter polls conditions against one page with a bounded timeout.
type Waiter struct {
	page     browser.Page
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// New creates a Waiter. Zero durations fall back to the defaults.
func New(page browser.Page, timeout, interval time.Duration, logger *zap.Logger) *Waiter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Waiter{page: page, timeout: timeout, interval: interval, logger: logger.Named("wait")}
}

// WithTimeout returns a copy bounded by d.
func (w *Waiter) WithTimeout(d time.Duration) *Waiter {
	cp := *w
	cp.timeout = d
	return &cp
}

// Timeout is the bound applied to each wait.
func (w *Waiter) Timeout() time.Duration { return w.timeout }

// Until polls pred until it holds or the timeout elapses. The first check
// happens immediately.
func (w *Waiter) Until(ctx context.Context, condition string, pred Predicate) error {
	start := time.Now()
	deadline := start.Add(w.timeout)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastErr error
	for {
		checkCtx, cancel := context.WithDeadline(ctx, deadline)
		ok, err := pred(checkCtx)
		cancel()

		if err != nil && ctx.Err() == nil {
			lastErr = err
		}
		if ok && err == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !time.Now().Before(deadline) {
			elapsed := time.Since(start)
			w.logger.Debug("Condition not met.", zap.String("condition", condition), zap.Duration("elapsed", elapsed), zap.Error(lastErr))
			return browser.NewTimeoutError(condition, elapsed, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Clickable waits for the first element matching selector that is visible and enabled.
func (w *Waiter) Clickable(ctx context.Context, selector string) (browser.Element, error) {
	var found browser.Element
	err := w.Until(ctx, fmt.Sprintf("element '%s' to be clickable", selector), func(ctx context.Context) (bool, error) {
		els, err := w.page.QueryAll(ctx, selector)
		if err != nil {
			return false, err
		}
		for _, el := range els {
			ok, err := el.Clickable(ctx)
			if err != nil {
				return false, err
			}
			if ok {
				found = el
				return true, nil
			}
		}
		return false, nil
	})
	return found, err
}

// Present waits until at least one element matches selector and returns all matches.
func (w *Waiter) Present(ctx context.Context, selector string) ([]browser.Element, error) {
	var found []browser.Element
	err := w.Until(ctx, fmt.Sprintf("element '%s' to be present", selector), func(ctx context.Context) (bool, error) {
		els, err := w.page.QueryAll(ctx, selector)
		if err != nil {
			return false, err
		}
		found = els
		return len(els) > 0, nil
	})
	return found, err
}

// URLContains waits until the current URL contains substring and returns it.
func (w *Waiter) URLContains(ctx context.Context, substring string) (string, error) {
	var current string
	err := w.Until(ctx, fmt.Sprintf("URL to contain '%s'", substring), func(ctx context.Context) (bool, error) {
		u, err := w.page.CurrentURL(ctx)
		if err != nil {
			return false, err
		}
		current = u
		return strings.Contains(u, substring), nil
	})
	if err != nil {
		var te *browser.TimeoutError
		if errors.As(err, &te) {
			te.Condition += fmt.Sprintf(" (last URL '%s')", current)
		}
		return current, err
	}
	return current, nil
}

// BodyText returns the rendered text of the document body, or "" when the
// body is not there yet.
func BodyText(ctx context.Context, page browser.Scope) (string, error) {
	bodies, err := page.QueryAll(ctx, "body")
	if err != nil || len(bodies) == 0 {
		return "", err
	}
	return bodies[0].Text(ctx)
}

// TextContains waits until the body text contains fragment, ignoring case.
func (w *Waiter) TextContains(ctx context.Context, fragment string) error {
	needle := strings.ToLower(fragment)
	return w.Until(ctx, fmt.Sprintf("page text to contain '%s'", fragment), func(ctx context.Context) (bool, error) {
		text, err := BodyText(ctx, w.page)
		if err != nil {
			return false, err
		}
		return strings.Contains(strings.ToLower(text), needle), nil
	})
}
