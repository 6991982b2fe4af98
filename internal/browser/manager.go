// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/config"
)

const (
	launchCheckTimeout  = 30 * time.Second
	shutdownGracePeriod = 15 * time.Second
)

// Manager owns the Chrome process and hands out tabs as Sessions.
type Manager struct {
	logger  *zap.Logger
	cfg     config.BrowserConfig
	baseURL string

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// wg tracks open sessions so Shutdown can wait for them.
	wg sync.WaitGroup
}

// NewManager launches Chrome and verifies that it responds before returning.
func NewManager(ctx context.Context, logger *zap.Logger, browserCfg config.BrowserConfig, baseURL string) (*Manager, error) {
	m := &Manager{
		logger:  logger.Named("browser_manager"),
		cfg:     browserCfg,
		baseURL: baseURL,
	}
	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...", zap.Bool("headless", m.cfg.Headless))

	opts := DefaultAllocatorOptions(m.cfg)
	// The allocator must outlive the caller's context; Shutdown ends it.
	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(context.Background(), opts...)

	probeCtx, cancelProbe := chromedp.NewContext(m.allocatorCtx)
	defer cancelProbe()
	timeoutCtx, cancelTimeout := context.WithTimeout(probeCtx, launchCheckTimeout)
	defer cancelTimeout()
	runCtx, cancelRun := CombineContext(timeoutCtx, ctx)
	defer cancelRun()

	if err := chromedp.Run(runCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// allocatorFlags resolves the command line flags for Chrome. Custom args are
// applied last so they can override the defaults.
func allocatorFlags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":              cfg.Headless,
		"disable-gpu":           cfg.Headless,
		"disable-dev-shm-usage": true,
		"disable-extensions":    true,
		"mute-audio":            true,
	}
	if cfg.NoSandbox {
		flags["no-sandbox"] = true
		flags["disable-setuid-sandbox"] = true
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
		flags["allow-insecure-localhost"] = true
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			flags[name] = parts[1]
		} else {
			flags[name] = true
		}
	}
	return flags
}

// DefaultAllocatorOptions assembles the chromedp allocator options for cfg.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	flags := allocatorFlags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// NewSession opens a tab. The tab lives until Session.Close or Shutdown,
// independent of ctx, which only bounds the startup.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	logger := m.logger.Named("session").With(zap.String("session_id", id))

	var ctxOpts []chromedp.ContextOption
	if m.cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(logger.Sugar().Debugf))
	}
	tabCtx, cancel := chromedp.NewContext(m.allocatorCtx, ctxOpts...)

	// The first Run attaches the tab. It must use the tab context itself,
	// not a derived one, or the tab closes with the derived context.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()
	select {
	case err := <-started:
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open browser tab: %w", err)
		}
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}

	s := newSession(tabCtx, cancel, m.baseURL, m.cfg.NavigationTimeout, logger)
	m.wg.Add(1)
	s.onClose = m.wg.Done

	logger.Info("Browser session opened.")
	return s, nil
}

// Shutdown waits for open sessions, bounded by ctx, then stops Chrome.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated.")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions have closed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	if m.allocatorCancel != nil {
		m.allocatorCancel()
		select {
		case <-m.allocatorCtx.Done():
		case <-time.After(shutdownGracePeriod):
			return fmt.Errorf("browser process did not exit within %s", shutdownGracePeriod)
		}
	}
	return nil
}
