package hooks

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/browser"
	"github.com/xkilldash9x/marquee/internal/config"
)

// Session is a page the hooks own and eventually close.
type Session interface {
	browser.Page
	Close()
}

// Launcher starts the browser and hands out the suite's session.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
	Shutdown(ctx context.Context) error
}

// ChromeLauncher starts Chrome through browser.Manager on first use.
type ChromeLauncher struct {
	cfg     config.BrowserConfig
	baseURL string
	logger  *zap.Logger
	mgr     *browser.Manager
}

// NewChromeLauncher creates a launcher; nothing starts until Launch.
func NewChromeLauncher(cfg config.BrowserConfig, baseURL string, logger *zap.Logger) *ChromeLauncher {
	return &ChromeLauncher{cfg: cfg, baseURL: baseURL, logger: logger}
}

func (c *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	if c.mgr == nil {
		mgr, err := browser.NewManager(ctx, c.logger, c.cfg, c.baseURL)
		if err != nil {
			return nil, err
		}
		c.mgr = mgr
	}
	s, err := c.mgr.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *ChromeLauncher) Shutdown(ctx context.Context) error {
	if c.mgr == nil {
		return nil
	}
	return c.mgr.Shutdown(ctx)
}
