package cmd

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/marquee/internal/config"
	"github.com/xkilldash9x/marquee/internal/fixture"
	"github.com/xkilldash9x/marquee/internal/hooks"
	"github.com/xkilldash9x/marquee/internal/observability"
)

// Swappable in tests.
var (
	openFixtureStore = fixture.Open
	newLauncher      = func(cfg config.Interface, logger *zap.Logger) hooks.Launcher {
		return hooks.NewChromeLauncher(cfg.Browser(), cfg.App().BaseURL, logger)
	}
)

func newAcceptCmd() *cobra.Command {
	var (
		tags     string
		format   string
		headless bool
	)

	cmd := &cobra.Command{
		Use:   "accept [feature paths...]",
		Short: "Run the Gherkin acceptance suite in Chrome",
		Long: `Runs the feature files against the application at app.base_url.
Fixtures are reset first, then every scenario shares one browser session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.SetAcceptPaths(args)
			}
			if cmd.Flags().Changed("tags") {
				cfg.SetAcceptTags(tags)
			}
			if cmd.Flags().Changed("format") {
				cfg.SetAcceptFormat(format)
			}
			if cmd.Flags().Changed("headless") {
				cfg.SetBrowserHeadless(headless)
			}
			return runAccept(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&tags, "tags", "t", "", "only run scenarios matching this tag expression")
	cmd.Flags().StringVarP(&format, "format", "f", "", "godog formatter (pretty, progress, cucumber, junit)")
	cmd.Flags().BoolVar(&headless, "headless", true, "run Chrome without a window")
	return cmd
}

func runAccept(cmd *cobra.Command, cfg config.Interface) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	store, err := openFixtureStore(ctx, cfg.Fixture(), logger)
	if err != nil {
		return fmt.Errorf("failed to open fixture store: %w", err)
	}
	h := hooks.New(ctx, cfg, store, newLauncher(cfg, logger), logger)

	acc := cfg.Accept()
	logger.Info("Running acceptance suite",
		zap.Strings("paths", acc.Paths),
		zap.String("tags", acc.Tags),
		zap.String("base_url", cfg.App().BaseURL),
	)

	status := godog.TestSuite{
		Name:                 "marquee",
		TestSuiteInitializer: h.Install,
		ScenarioInitializer:  h.InstallScenario,
		Options: &godog.Options{
			Format:         acc.Format,
			Output:         cmd.OutOrStdout(),
			Paths:          acc.Paths,
			Tags:           acc.Tags,
			Strict:         acc.Strict,
			StopOnFailure:  acc.StopOnFailure,
			Concurrency:    1,
			DefaultContext: ctx,
		},
	}.Run()

	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if status != 0 {
		return fmt.Errorf("acceptance suite failed with status %d", status)
	}
	return nil
}
