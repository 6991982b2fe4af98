// Package steps implements the cinema acceptance-test vocabulary. Each
// journey lives in its own file; Register binds the phrases to godog.
//
// Every step reads and writes scenario values through the context it is
// handed, so a step method is safe to call directly from a unit test.
package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/browser"
	"github.com/xkilldash9x/marquee/internal/config"
	"github.com/xkilldash9x/marquee/internal/locate"
	"github.com/xkilldash9x/marquee/internal/wait"
)

// Selectors shared by more than one journey.
const (
	selSubmit    = "button[type='submit']"
	selButtons   = "button"
	selTableRows = "table tbody tr"
	selFilmCards = "a[href^='/films/']"
)

// defaultSeatSettle is the pause after a seat click while the seat map re-renders.
const defaultSeatSettle = 500 * time.Millisecond

// AssertionFailure reports an expectation about the application that did not hold.
type AssertionFailure struct {
	Step    string
	Message string
}

func (e *AssertionFailure) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

func fail(step, format string, args ...any) error {
	return &AssertionFailure{Step: step, Message: fmt.Sprintf(format, args...)}
}

// Library holds the collaborators every step needs. It borrows the page; the
// lifecycle hooks own it.
type Library struct {
	page    browser.Page
	waiter  *wait.Waiter
	locator *locate.Locator
	bridge  *browser.StateBridge
	app     config.AppConfig
	creds   config.CredentialsConfig
	logger  *zap.Logger

	seatSettle time.Duration
}

// NewLibrary creates a step library driving page.
func NewLibrary(page browser.Page, app config.AppConfig, creds config.CredentialsConfig, logger *zap.Logger) *Library {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("steps")
	return &Library{
		page:       page,
		waiter:     wait.New(page, app.WaitTimeout(), app.PollInterval, logger),
		locator:    locate.New(logger),
		bridge:     browser.NewStateBridge(page),
		app:        app,
		creds:      creds,
		logger:     logger,
		seatSettle: defaultSeatSettle,
	}
}

func policy(p config.PollConfig) wait.RetryPolicy {
	return wait.RetryPolicy{Attempts: p.Attempts, Delay: p.Delay}
}

// sleep pauses for d unless ctx ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// typeSlowly sends text one character at a time. Some of the application's
// inputs drop characters when a whole string arrives in one burst.
func (l *Library) typeSlowly(ctx context.Context, el browser.Element, text string) error {
	for _, r := range text {
		if err := el.SendKeys(ctx, string(r)); err != nil {
			return fmt.Errorf("typing %q: %w", text, err)
		}
		if err := sleep(ctx, l.app.TypingDelay); err != nil {
			return err
		}
	}
	return nil
}

// fill waits for the input matching selector, clears it and types value.
func (l *Library) fill(ctx context.Context, selector, value string, slowly bool) error {
	el, err := l.waiter.Clickable(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Clear(ctx); err != nil {
		return fmt.Errorf("clearing %s: %w", selector, err)
	}
	if slowly {
		return l.typeSlowly(ctx, el, value)
	}
	return el.SendKeys(ctx, value)
}

// find polls until the locator yields a candidate under the document.
// A miss surfaces as a TimeoutError wrapping the ElementNotFoundError.
func (l *Library) find(ctx context.Context, selector string, m locate.Matcher) (browser.Element, error) {
	return l.findIn(ctx, l.page, selector, m)
}

func (l *Library) findIn(ctx context.Context, scope browser.Scope, selector string, m locate.Matcher) (browser.Element, error) {
	var found browser.Element
	err := l.waiter.Until(ctx, fmt.Sprintf("'%s' where %s", selector, m), func(ctx context.Context) (bool, error) {
		el, err := l.locator.First(ctx, scope, selector, m)
		if err != nil {
			return false, err
		}
		found = el
		return true, nil
	})
	return found, err
}

// click finds the best candidate and clicks it.
func (l *Library) click(ctx context.Context, selector string, m locate.Matcher) error {
	el, err := l.find(ctx, selector, m)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

// texts returns the visible text of every element matching selector.
func texts(ctx context.Context, scope browser.Scope, selector string) ([]string, error) {
	els, err := scope.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(els))
	for _, el := range els {
		t, err := el.Text(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// navigatePath loads a path relative to the application's base URL.
func (l *Library) navigatePath(ctx context.Context, path string) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return l.page.Navigate(ctx, l.page.BaseURL()+path)
}
