// Package hooks owns the acceptance suite's shared resources: the fixture
// store and the single browser session every scenario borrows.
package hooks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cucumber/godog"
	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/browser"
	"github.com/xkilldash9x/marquee/internal/config"
	"github.com/xkilldash9x/marquee/internal/fixture"
	"github.com/xkilldash9x/marquee/internal/scenario"
	"github.com/xkilldash9x/marquee/internal/steps"
)

// Scenario name fragments that change the per-scenario setup.
var (
	authFlowMarker    = "authentication flow"
	freshSessionWords = []string{"registration", "login", "unauthenticated"}
)

// Hooks runs setup and teardown around the suite and each scenario.
type Hooks struct {
	// ctx is the run context. godog's suite hooks take no context, so it is
	// captured here and used only by those hooks.
	ctx      context.Context
	app      config.AppConfig
	creds    config.CredentialsConfig
	fixtures config.FixtureConfig
	store    fixture.Store
	launcher Launcher
	logger   *zap.Logger
	root     *zap.Logger

	mu       sync.Mutex
	session  Session
	suiteErr error
}

// New creates the hooks. Nothing is started until BeforeSuite.
func New(ctx context.Context, cfg config.Interface, store fixture.Store, launcher Launcher, logger *zap.Logger) *Hooks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hooks{
		ctx:      ctx,
		app:      cfg.App(),
		creds:    cfg.Credentials(),
		fixtures: cfg.Fixture(),
		store:    store,
		launcher: launcher,
		logger:   logger.Named("hooks"),
		root:     logger,
	}
}

func (h *Hooks) current() Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Page is the page steps drive. It follows the session acquired by BeforeSuite.
func (h *Hooks) Page() browser.Page {
	return livePage{h: h}
}

// BeforeSuite resets fixtures and opens the browser session.
func (h *Hooks) BeforeSuite(ctx context.Context) error {
	if err := h.store.ClearCollections(ctx, h.fixtures.Collections...); err != nil {
		return fmt.Errorf("failed to reset fixtures: %w", err)
	}
	if err := h.store.RemoveTestFilms(ctx, h.fixtures.FilmMarker); err != nil {
		return fmt.Errorf("failed to remove leftover test films: %w", err)
	}

	s, err := h.launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire browser session: %w", err)
	}
	h.mu.Lock()
	h.session = s
	h.mu.Unlock()
	h.logger.Info("Suite setup complete.", zap.String("base_url", s.BaseURL()))
	return nil
}

// AfterSuite closes the session, stops the browser and releases the store.
func (h *Hooks) AfterSuite(ctx context.Context) error {
	h.mu.Lock()
	s := h.session
	h.session = nil
	h.mu.Unlock()

	if s != nil {
		s.Close()
	}
	err := h.launcher.Shutdown(ctx)
	if cerr := h.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// BeforeScenario prepares the shared session for the scenario called name.
// The browser persists across scenarios, so sign-in state is wiped only for
// scenarios that must start signed out.
func (h *Hooks) BeforeScenario(ctx context.Context, name string) error {
	s := h.current()
	if s == nil {
		return ErrNoSession
	}
	lower := strings.ToLower(name)

	if strings.Contains(lower, authFlowMarker) {
		if err := h.store.RemoveUser(ctx, h.fixtures.AuthUser); err != nil {
			return err
		}
	}

	if err := s.Navigate(ctx, s.BaseURL()); err != nil {
		return err
	}
	for _, w := range freshSessionWords {
		if !strings.Contains(lower, w) {
			continue
		}
		h.logger.Debug("Clearing session state.", zap.String("scenario", name))
		if err := browser.NewStateBridge(s).ClearSessionAndCookies(ctx); err != nil {
			return err
		}
		// Reload so the application boots without the cleared state.
		return s.Navigate(ctx, s.BaseURL())
	}
	return nil
}

// Install binds the suite hooks. A setup failure is reported by every
// scenario, since godog's suite hooks cannot return errors.
func (h *Hooks) Install(ts *godog.TestSuiteContext) {
	ts.BeforeSuite(func() {
		if err := h.BeforeSuite(h.ctx); err != nil {
			h.logger.Error("Suite setup failed.", zap.Error(err))
			h.mu.Lock()
			h.suiteErr = err
			h.mu.Unlock()
		}
	})
	ts.AfterSuite(func() {
		if err := h.AfterSuite(context.WithoutCancel(h.ctx)); err != nil {
			h.logger.Warn("Suite teardown failed.", zap.Error(err))
		}
	})
}

// InstallScenario seeds each scenario's state, runs BeforeScenario and
// registers the step library.
func (h *Hooks) InstallScenario(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
		h.mu.Lock()
		suiteErr := h.suiteErr
		h.mu.Unlock()
		if suiteErr != nil {
			return ctx, suiteErr
		}
		ctx = scenario.WithState(ctx, scenario.New())
		return ctx, h.BeforeScenario(ctx, s.Name)
	})
	steps.Register(sc, steps.NewLibrary(h.Page(), h.app, h.creds, h.root))
}
