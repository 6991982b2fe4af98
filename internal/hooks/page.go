package hooks

import (
	"context"
	"errors"

	"github.com/xkilldash9x/marquee/internal/browser"
)

// ErrNoSession is returned by steps that run before the suite acquired a browser.
var ErrNoSession = errors.New("no browser session; the suite setup did not complete")

// livePage forwards to whatever session the hooks currently hold, so the
// step library can be built before BeforeSuite runs.
type livePage struct {
	h *Hooks
}

var _ browser.Page = livePage{}

func (p livePage) BaseURL() string {
	if s := p.h.current(); s != nil {
		return s.BaseURL()
	}
	return p.h.app.BaseURL
}

func (p livePage) Navigate(ctx context.Context, url string) error {
	s := p.h.current()
	if s == nil {
		return ErrNoSession
	}
	return s.Navigate(ctx, url)
}

func (p livePage) Reload(ctx context.Context) error {
	s := p.h.current()
	if s == nil {
		return ErrNoSession
	}
	return s.Reload(ctx)
}

func (p livePage) CurrentURL(ctx context.Context) (string, error) {
	s := p.h.current()
	if s == nil {
		return "", ErrNoSession
	}
	return s.CurrentURL(ctx)
}

func (p livePage) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	s := p.h.current()
	if s == nil {
		return nil, ErrNoSession
	}
	return s.QueryAll(ctx, selector)
}

func (p livePage) Evaluate(ctx context.Context, expression string, res any) error {
	s := p.h.current()
	if s == nil {
		return ErrNoSession
	}
	return s.Evaluate(ctx, expression, res)
}

func (p livePage) ClearCookies(ctx context.Context) error {
	s := p.h.current()
	if s == nil {
		return ErrNoSession
	}
	return s.ClearCookies(ctx)
}

func (p livePage) AcceptDialog(ctx context.Context) error {
	s := p.h.current()
	if s == nil {
		return ErrNoSession
	}
	return s.AcceptDialog(ctx)
}
